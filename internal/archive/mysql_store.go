package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	xerrors "TokenPilot-Chain/internal/errors"
)

// MySQLStore 使用 MySQL 持久化转账留档。
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
	const schema = `CREATE TABLE IF NOT EXISTS transfers (
        intent_id VARCHAR(64) NOT NULL PRIMARY KEY,
        owner VARCHAR(128) NOT NULL,
        checksum VARCHAR(32) NOT NULL,
        summary TEXT,
        result VARCHAR(255),
        executed_at BIGINT NOT NULL,
        KEY idx_transfers_owner (owner)
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("初始化 transfers 表失败: %w", err)
	}
	return nil
}

// Append 实现 Store 接口。重复投递同一意图时幂等覆盖。
func (s *MySQLStore) Append(ctx context.Context, record Record) error {
	const stmt = `INSERT INTO transfers (intent_id, owner, checksum, summary, result, executed_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE result = VALUES(result), executed_at = VALUES(executed_at)`
	if _, err := s.db.ExecContext(ctx, stmt,
		record.IntentID, record.Owner, record.Checksum, record.Summary, record.Result, record.ExecutedAt,
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入转账留档失败")
	}
	return nil
}

// List 实现 Store 接口。
func (s *MySQLStore) List(ctx context.Context, owner string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT intent_id, owner, checksum, summary, result, executed_at FROM transfers`
	args := []any{}
	if owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY executed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询转账留档失败")
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.IntentID, &record.Owner, &record.Checksum,
			&record.Summary, &record.Result, &record.ExecutedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析转账留档失败")
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历转账留档失败")
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
