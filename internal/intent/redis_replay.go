package intent

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	xerrors "TokenPilot-Chain/internal/errors"
)

// RedisReplayGuardConfig 描述 Redis 重放防护的连接参数。
type RedisReplayGuardConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// RedisReplayGuard 把已执行校验和保存在 Redis 集合中，
// 使重放防护在多实例部署下依旧生效。
type RedisReplayGuard struct {
	client *redis.Client
	key    string
}

// NewRedisReplayGuard 创建 Redis 重放防护实例。
func NewRedisReplayGuard(cfg RedisReplayGuardConfig) (*RedisReplayGuard, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis address 不能为空")
	}
	key := cfg.Key
	if key == "" {
		key = "tokenpilot:executed"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisReplayGuard{client: client, key: key}, nil
}

// Contains 实现 ReplayGuard 接口。
func (g *RedisReplayGuard) Contains(ctx context.Context, checksum string) (bool, error) {
	seen, err := g.client.SIsMember(ctx, g.key, checksum).Result()
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询重放集合失败")
	}
	return seen, nil
}

// Add 实现 ReplayGuard 接口。
func (g *RedisReplayGuard) Add(ctx context.Context, checksum string) error {
	if err := g.client.SAdd(ctx, g.key, checksum).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入重放集合失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (g *RedisReplayGuard) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

var _ ReplayGuard = (*RedisReplayGuard)(nil)
