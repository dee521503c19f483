package alerter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workpulse-insight/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTConfig MQTT 通道配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTTChannel MQTT 告警通道：把载荷 JSON 发布到固定主题，供运维侧订阅
type MQTTChannel struct {
	client mqtt.Client
	cfg    MQTTConfig
	logger *zap.Logger
}

// NewMQTTChannel 创建 MQTT 通道并建立连接
func NewMQTTChannel(cfg MQTTConfig, logger *zap.Logger) (*MQTTChannel, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTChannel{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Name 通道名
func (c *MQTTChannel) Name() string {
	return "mqtt"
}

// Send 发布告警 JSON；发布等待受 ctx 截止时间约束
func (c *MQTTChannel) Send(ctx context.Context, payload *models.AlertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	waitTimeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		waitTimeout = time.Until(deadline)
	}

	token := c.client.Publish(c.cfg.Topic, c.cfg.QoS, false, data)
	if !token.WaitTimeout(waitTimeout) {
		return fmt.Errorf("mqtt publish timed out after %s", waitTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish alert: %w", token.Error())
	}

	c.logger.Debug("MQTT alert published",
		zap.String("anomaly_id", payload.AnomalyID),
		zap.String("topic", c.cfg.Topic),
	)
	return nil
}

// Close 断开 MQTT 连接
func (c *MQTTChannel) Close() {
	c.client.Disconnect(250)
}
