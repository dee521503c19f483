package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config 分析服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	// 评估配置
	Analysis struct {
		BaselineDays       int     // 基线窗口天数，默认 7
		DeviationThreshold float64 // 偏离阈值（%），默认 40
		LateStartHours     int     // 晚到阈值（小时），默认 2
		EarlyEndHours      int     // 早退阈值（小时），默认 2
		ExtendedIdleMin    int     // 连续空闲阈值（分钟），默认 120
		EventsPerHour      int     // 每小时期望鼠标+键盘事件数，默认 120
		StandardStartHour  int     // 无历史数据时的标准上班小时，默认 9
		StandardEndHour    int     // 无历史数据时的标准下班小时，默认 17
	}

	// 告警配置
	Alert struct {
		MinSeverity     string // 批量告警最低级别，默认 Medium
		ChannelTimeout  int    // 单通道发送超时（秒），默认 10
		SlackWebhookURL string // 为空则禁用 Slack 通道

		SMTP struct {
			Host     string // 为空则禁用邮件通道
			Port     int
			User     string
			Password string
			From     string
			To       string
		}

		MQTT struct {
			Broker   string // 为空则禁用 MQTT 通道
			ClientID string
			Username string
			Password string
			Topic    string
			QoS      byte
		}
	}

	// 调度配置
	Schedule struct {
		RunAt       string // 每日运行时刻 "HH:MM"，默认 "00:00"
		Timezone    string // IANA 时区，默认 "Asia/Colombo"
		Concurrency int    // 阶段内并发员工数，默认 4
		LockTTL     int    // 运行锁 TTL（秒），默认 3600
	}

	Cache struct {
		KeyPrefix string // 结果缓存键前缀，如 "workpulse:employee:"
		TTL       int    // 结果缓存 TTL（秒），默认 86400
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "workpulse")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Analysis.BaselineDays = getEnvInt("ANALYSIS_BASELINE_DAYS", 7)
	cfg.Analysis.DeviationThreshold = float64(getEnvInt("ANALYSIS_DEVIATION_THRESHOLD", 40))
	cfg.Analysis.LateStartHours = getEnvInt("ANALYSIS_LATE_START_HOURS", 2)
	cfg.Analysis.EarlyEndHours = getEnvInt("ANALYSIS_EARLY_END_HOURS", 2)
	cfg.Analysis.ExtendedIdleMin = getEnvInt("ANALYSIS_EXTENDED_IDLE_MIN", 120)
	cfg.Analysis.EventsPerHour = getEnvInt("ANALYSIS_EVENTS_PER_HOUR", 120)
	cfg.Analysis.StandardStartHour = getEnvInt("ANALYSIS_STANDARD_START_HOUR", 9)
	cfg.Analysis.StandardEndHour = getEnvInt("ANALYSIS_STANDARD_END_HOUR", 17)

	cfg.Alert.MinSeverity = getEnv("ALERT_MIN_SEVERITY", "Medium")
	cfg.Alert.ChannelTimeout = getEnvInt("ALERT_CHANNEL_TIMEOUT", 10)
	cfg.Alert.SlackWebhookURL = getEnv("ALERT_SLACK_WEBHOOK_URL", "")

	cfg.Alert.SMTP.Host = getEnv("ALERT_SMTP_HOST", "")
	cfg.Alert.SMTP.Port = getEnvInt("ALERT_SMTP_PORT", 587)
	cfg.Alert.SMTP.User = getEnv("ALERT_SMTP_USER", "")
	cfg.Alert.SMTP.Password = getEnv("ALERT_SMTP_PASSWORD", "")
	cfg.Alert.SMTP.From = getEnv("ALERT_SMTP_FROM", "")
	cfg.Alert.SMTP.To = getEnv("ALERT_SMTP_TO", "")

	cfg.Alert.MQTT.Broker = getEnv("ALERT_MQTT_BROKER", "")
	cfg.Alert.MQTT.ClientID = getEnv("ALERT_MQTT_CLIENT_ID", "workpulse-insight")
	cfg.Alert.MQTT.Username = getEnv("ALERT_MQTT_USERNAME", "")
	cfg.Alert.MQTT.Password = getEnv("ALERT_MQTT_PASSWORD", "")
	cfg.Alert.MQTT.Topic = getEnv("ALERT_MQTT_TOPIC", "workpulse/alerts")
	cfg.Alert.MQTT.QoS = byte(getEnvInt("ALERT_MQTT_QOS", 1))

	cfg.Schedule.RunAt = getEnv("SCHEDULE_RUN_AT", "00:00")
	cfg.Schedule.Timezone = getEnv("SCHEDULE_TIMEZONE", "Asia/Colombo")
	cfg.Schedule.Concurrency = getEnvInt("SCHEDULE_CONCURRENCY", 4)
	cfg.Schedule.LockTTL = getEnvInt("SCHEDULE_LOCK_TTL", 3600)

	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "workpulse:employee:")
	cfg.Cache.TTL = getEnvInt("CACHE_TTL", 86400)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
