package alerter

import (
	"context"
	"fmt"
	"time"

	"workpulse-insight/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// slackField Slack 附件字段
type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// slackAttachment Slack 附件
type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

// slackMessage Slack webhook 消息体
type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// SlackChannel Slack webhook 告警通道
type SlackChannel struct {
	httpClient *resty.Client
	webhookURL string
	logger     *zap.Logger
}

// NewSlackChannel 创建 Slack 通道
func NewSlackChannel(webhookURL string, logger *zap.Logger) *SlackChannel {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")

	return &SlackChannel{
		httpClient: client,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// Name 通道名
func (c *SlackChannel) Name() string {
	return "slack"
}

// Send 把告警载荷转成 Slack 附件格式后推送 webhook
func (c *SlackChannel) Send(ctx context.Context, payload *models.AlertPayload) error {
	emoji := severityEmoji[payload.Severity]
	color, ok := severityColors[payload.Severity]
	if !ok {
		color = "#808080"
	}

	message := slackMessage{
		Text: fmt.Sprintf("%s *Productivity Anomaly Alert*", emoji),
		Attachments: []slackAttachment{
			{
				Color: color,
				Fields: []slackField{
					{Title: "Employee", Value: payload.EmployeeName, Short: true},
					{Title: "Employee ID", Value: payload.EmployeeID, Short: true},
					{Title: "Department", Value: payload.Department, Short: true},
					{Title: "Date", Value: payload.Date.Format("Monday, January 2, 2006"), Short: true},
					{Title: "Anomaly Type", Value: payload.AnomalyType, Short: true},
					{Title: "Severity", Value: fmt.Sprintf("%s %s", emoji, payload.Severity), Short: true},
					{Title: "Deviation", Value: fmt.Sprintf("%.0f%%", payload.DeviationPercent), Short: true},
					{Title: "Details", Value: payload.Description, Short: false},
				},
				Footer: "WorkPulse Insight",
				Ts:     time.Now().Unix(),
			},
		},
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(message).
		Post(c.webhookURL)

	if err != nil {
		return fmt.Errorf("failed to post slack webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack webhook returned %s", resp.Status())
	}

	c.logger.Debug("Slack alert sent",
		zap.String("anomaly_id", payload.AnomalyID),
	)
	return nil
}
