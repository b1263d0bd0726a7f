package account

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	xerrors "TokenPilot-Chain/internal/errors"
)

// MySQLStore 使用 MySQL 持久化别名，适合多实例部署。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建连接池并初始化数据表。
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) initSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS aliases (
        alias VARCHAR(128) NOT NULL PRIMARY KEY,
        owner VARCHAR(128) NOT NULL,
        sub_account VARCHAR(128) DEFAULT '',
        updated_at BIGINT NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("初始化 aliases 表失败: %w", err)
	}
	return nil
}

// Save 写入或覆盖一条别名记录。
func (s *MySQLStore) Save(ctx context.Context, alias SavedAlias) error {
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO aliases (alias, owner, sub_account, updated_at)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE owner = VALUES(owner), sub_account = VALUES(sub_account), updated_at = VALUES(updated_at)`
	if _, err := s.db.ExecContext(ctx, stmt,
		normalized.Alias, normalized.Owner, normalized.SubAccount, time.Now().Unix(),
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入别名失败")
	}
	return nil
}

// Get 查询指定别名。
func (s *MySQLStore) Get(ctx context.Context, alias string) (*SavedAlias, error) {
	const query = `SELECT alias, owner, sub_account FROM aliases WHERE alias = ?`
	var saved SavedAlias
	err := s.db.QueryRowContext(ctx, query, alias).Scan(&saved.Alias, &saved.Owner, &saved.SubAccount)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.New(xerrors.CodeUnknownRecipient,
			"别名 '"+alias+"' 不存在",
			xerrors.WithMetadata("field", "to"))
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询别名失败")
	}
	return &saved, nil
}

// List 返回全部别名。
func (s *MySQLStore) List(ctx context.Context) ([]SavedAlias, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias, owner, sub_account FROM aliases ORDER BY alias`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询别名列表失败")
	}
	defer rows.Close()

	var results []SavedAlias
	for rows.Next() {
		var saved SavedAlias
		if err := rows.Scan(&saved.Alias, &saved.Owner, &saved.SubAccount); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析别名记录失败")
		}
		results = append(results, saved)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历别名记录失败")
	}
	return results, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*MySQLStore)(nil)
