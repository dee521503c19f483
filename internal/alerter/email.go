package alerter

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// EmailConfig 邮件通道配置
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

// EmailChannel SMTP 邮件告警通道（纯文本正文）
type EmailChannel struct {
	cfg    EmailConfig
	logger *zap.Logger
}

// NewEmailChannel 创建邮件通道
func NewEmailChannel(cfg EmailConfig, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{
		cfg:    cfg,
		logger: logger,
	}
}

// Name 通道名
func (c *EmailChannel) Name() string {
	return "email"
}

// Send 发送告警邮件；连接与收发受 ctx 截止时间约束
func (c *EmailChannel) Send(ctx context.Context, payload *models.AlertPayload) error {
	emoji := severityEmoji[payload.Severity]
	subject := fmt.Sprintf("%s Productivity Anomaly Alert - %s (%s)",
		emoji, payload.EmployeeName, payload.Severity)

	body := c.buildBody(payload)

	var headers strings.Builder
	fmt.Fprintf(&headers, "From: WorkPulse Alerts <%s>\r\n", c.cfg.From)
	fmt.Fprintf(&headers, "To: %s\r\n", c.cfg.To)
	fmt.Fprintf(&headers, "Subject: %s\r\n", subject)
	headers.WriteString("MIME-Version: 1.0\r\n")
	headers.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	headers.WriteString("\r\n")

	message := headers.String() + body

	if err := c.send(ctx, []byte(message)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	c.logger.Debug("Email alert sent",
		zap.String("anomaly_id", payload.AnomalyID),
	)
	return nil
}

func (c *EmailChannel) buildBody(payload *models.AlertPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s PRODUCTIVITY ANOMALY ALERT\r\n\r\n", severityEmoji[payload.Severity])
	fmt.Fprintf(&b, "Employee: %s (%s)\r\n", payload.EmployeeName, payload.EmployeeID)
	fmt.Fprintf(&b, "Department: %s\r\n", payload.Department)
	fmt.Fprintf(&b, "Date: %s\r\n\r\n", payload.Date.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Anomaly Type: %s\r\n", payload.AnomalyType)
	fmt.Fprintf(&b, "Severity: %s\r\n", payload.Severity)
	fmt.Fprintf(&b, "Deviation: %.0f%%\r\n\r\n", payload.DeviationPercent)
	fmt.Fprintf(&b, "Actual Value: %.0f\r\n", payload.ActualValue)
	fmt.Fprintf(&b, "Expected Value: %.0f\r\n\r\n", payload.ExpectedValue)
	fmt.Fprintf(&b, "Description:\r\n%s\r\n\r\n", payload.Description)
	b.WriteString("Please review this anomaly and take appropriate action.\r\n")
	return b.String()
}

// send 手工走一遍 SMTP 会话，连接带上 ctx 的截止时间，避免慢服务器拖住整个告警阶段
func (c *EmailChannel) send(ctx context.Context, message []byte) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp server: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: c.cfg.Host}
		if err := client.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}

	if c.cfg.User != "" {
		auth := smtp.PlainAuth("", c.cfg.User, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	for _, rcpt := range strings.Split(c.cfg.To, ",") {
		if err := client.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("smtp RCPT failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}
