package lease

import (
	"context"
	"studyplan_backend/pkg/logger"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 只有持有者本人才能删除租约
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX PX 的分布式租约，多实例部署时使用
type RedisLocker struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{Redis: rdb, Prefix: "lease:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	token := uuid.New().String()
	fullKey := l.Prefix + key

	err := acquireLoop(ctx, wait, func() (bool, error) {
		return l.Redis.SetNX(ctx, fullKey, token, ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 使用独立 context，请求取消后也要释放
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.Redis, []string{fullKey}, token).Err(); err != nil && err != redis.Nil {
				logger.Log.Warn("failed to release lease", zap.String("key", fullKey), zap.Error(err))
			}
		})
	}, nil
}
