package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workpulse-insight/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ResultCache 分析结果缓存
// 批处理结束后把每位员工的最新汇总与在案异常写入 Redis（带 TTL），
// 供看板等下游只读消费，不参与检测逻辑
type ResultCache struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewResultCache 创建结果缓存
func NewResultCache(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *ResultCache {
	if keyPrefix == "" {
		keyPrefix = "workpulse:employee:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ResultCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

// summaryKey 汇总缓存键
func (c *ResultCache) summaryKey(employeeID string) string {
	return fmt.Sprintf("%s%s:summary", c.keyPrefix, employeeID)
}

// anomaliesKey 异常缓存键
func (c *ResultCache) anomaliesKey(employeeID string) string {
	return fmt.Sprintf("%s%s:anomalies", c.keyPrefix, employeeID)
}

// PutSummary 写入某员工的最新每日汇总
func (c *ResultCache) PutSummary(ctx context.Context, summary *models.DailySummary) error {
	if summary == nil {
		return fmt.Errorf("summary is required")
	}

	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.summaryKey(summary.EmployeeID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}

	return nil
}

// GetSummary 读取某员工缓存的汇总，不存在返回 nil
func (c *ResultCache) GetSummary(ctx context.Context, employeeID string) (*models.DailySummary, error) {
	val, err := c.redisClient.Get(ctx, c.summaryKey(employeeID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached summary: %w", err)
	}

	var summary models.DailySummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}

	return &summary, nil
}

// PutAnomalies 写入某员工当次检测出的异常列表
func (c *ResultCache) PutAnomalies(ctx context.Context, employeeID string, anomalies []*models.Anomaly) error {
	if employeeID == "" {
		return fmt.Errorf("employee_id is required")
	}

	jsonData, err := json.Marshal(anomalies)
	if err != nil {
		return fmt.Errorf("failed to marshal anomalies: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.anomaliesKey(employeeID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache anomalies: %w", err)
	}

	return nil
}

// GetAnomalies 读取某员工缓存的异常列表，不存在返回空列表
func (c *ResultCache) GetAnomalies(ctx context.Context, employeeID string) ([]*models.Anomaly, error) {
	val, err := c.redisClient.Get(ctx, c.anomaliesKey(employeeID)).Result()
	if err != nil {
		if err == redis.Nil {
			return []*models.Anomaly{}, nil
		}
		return nil, fmt.Errorf("failed to get cached anomalies: %w", err)
	}

	anomalies := []*models.Anomaly{}
	if err := json.Unmarshal([]byte(val), &anomalies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached anomalies: %w", err)
	}

	return anomalies, nil
}
