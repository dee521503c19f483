package alerter

import (
	"context"

	"workpulse-insight/internal/models"
)

// Channel 告警通道
// 实现方负责把统一载荷转换成自己的线上格式；新通道不需要改动检测或编排逻辑
type Channel interface {
	// Name 通道名（记入 alert_channels）
	Name() string
	// Send 发送一条告警，失败返回错误
	Send(ctx context.Context, payload *models.AlertPayload) error
}

// 各级别的标记与颜色（Slack 附件 / 邮件正文共用）
var severityEmoji = map[string]string{
	models.SeverityCritical: "🚨",
	models.SeverityHigh:     "⚠️",
	models.SeverityMedium:   "⚡",
	models.SeverityLow:      "ℹ️",
}

var severityColors = map[string]string{
	models.SeverityCritical: "#FF0000",
	models.SeverityHigh:     "#FF6B00",
	models.SeverityMedium:   "#FFD700",
	models.SeverityLow:      "#36A2EB",
}
