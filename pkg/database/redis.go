package database

import (
	"context"
	"fmt"
	"studyplan_backend/internal/config"
	"studyplan_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// redisPingTimeout 启动时连通性检查的超时
const redisPingTimeout = 5 * time.Second

// InitRedis 创建客户端并确认可连通，供租约、提醒事件流与健康检查共用
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	logger.Log.Info("Redis connection established",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
		zap.Int("poolSize", cfg.PoolSize))
	return rdb, nil
}
