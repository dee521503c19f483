package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RunLock 以目标日期为键的运行锁
// 同一目标日期的定时触发与手工触发串行化，防止并发 upsert 互相踩踏；
// TTL 兜底：进程崩溃后锁最多存活一个 TTL
type RunLock struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewRunLock 创建运行锁
func NewRunLock(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *RunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunLock{
		redisClient: redisClient,
		keyPrefix:   "workpulse:run-lock:",
		ttl:         ttl,
		logger:      logger,
	}
}

func (l *RunLock) key(targetDate time.Time) string {
	return l.keyPrefix + targetDate.Format("2006-01-02")
}

// Acquire 尝试获取某目标日期的锁；已被占用返回 false
func (l *RunLock) Acquire(ctx context.Context, targetDate time.Time, runID string) (bool, error) {
	ok, err := l.redisClient.SetNX(ctx, l.key(targetDate), runID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release 释放某目标日期的锁（仅当仍由本次运行持有）
func (l *RunLock) Release(ctx context.Context, targetDate time.Time, runID string) error {
	key := l.key(targetDate)

	holder, err := l.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil // 锁已过期
		}
		return fmt.Errorf("failed to check run lock holder: %w", err)
	}
	if holder != runID {
		l.logger.Warn("Run lock held by another run, not releasing",
			zap.String("key", key),
			zap.String("holder", holder),
		)
		return nil
	}

	if err := l.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
