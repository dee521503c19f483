package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"workpulse-insight/internal/alerter"
	"workpulse-insight/internal/baseline"
	"workpulse-insight/internal/cache"
	"workpulse-insight/internal/config"
	"workpulse-insight/internal/detector"
	"workpulse-insight/internal/orchestrator"
	"workpulse-insight/internal/repository"
	"workpulse-insight/internal/scoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

// AnalysisService 分析服务（整合各层）
type AnalysisService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	employeesRepo *repository.EmployeesRepository
	eventsRepo    *repository.ActivityEventsRepository
	summariesRepo *repository.DailySummariesRepository
	anomaliesRepo *repository.AnomaliesRepository
	calculator    *scoring.Calculator
	baselines     *baseline.Engine
	detector      *detector.Detector
	dispatcher    *alerter.Dispatcher
	resultCache   *cache.ResultCache
	orchestrator  *orchestrator.Orchestrator
	scheduler     *orchestrator.Scheduler
	mqttChannel   *alerter.MQTTChannel // 可为 nil
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(cfg *config.Config, logger *zap.Logger) (*AnalysisService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConns)
	}
	if cfg.Database.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdle)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 时区
	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	// 4. Repository 层
	employeesRepo := repository.NewEmployeesRepository(db, logger)
	eventsRepo := repository.NewActivityEventsRepository(db, logger)
	summariesRepo := repository.NewDailySummariesRepository(db, logger)
	anomaliesRepo := repository.NewAnomaliesRepository(db, logger)

	// 5. 评估层
	calculator := scoring.NewCalculator(cfg.Analysis.EventsPerHour, location)
	baselines := baseline.NewEngine(
		summariesRepo,
		cfg.Analysis.BaselineDays,
		cfg.Analysis.StandardStartHour,
		cfg.Analysis.StandardEndHour,
		logger,
	)
	det := detector.NewDetector(
		employeesRepo,
		eventsRepo,
		summariesRepo,
		anomaliesRepo,
		baselines,
		detector.Thresholds{
			DeviationPercent: cfg.Analysis.DeviationThreshold,
			LateStartHours:   cfg.Analysis.LateStartHours,
			EarlyEndHours:    cfg.Analysis.EarlyEndHours,
			ExtendedIdleMin:  cfg.Analysis.ExtendedIdleMin,
		},
		location,
		logger,
	)

	// 6. 告警通道（按配置逐个启用）
	channels := []alerter.Channel{}
	if cfg.Alert.SlackWebhookURL != "" {
		channels = append(channels, alerter.NewSlackChannel(cfg.Alert.SlackWebhookURL, logger))
	}
	if cfg.Alert.SMTP.Host != "" {
		channels = append(channels, alerter.NewEmailChannel(alerter.EmailConfig{
			Host:     cfg.Alert.SMTP.Host,
			Port:     cfg.Alert.SMTP.Port,
			User:     cfg.Alert.SMTP.User,
			Password: cfg.Alert.SMTP.Password,
			From:     cfg.Alert.SMTP.From,
			To:       cfg.Alert.SMTP.To,
		}, logger))
	}
	var mqttChannel *alerter.MQTTChannel
	if cfg.Alert.MQTT.Broker != "" {
		mqttChannel, err = alerter.NewMQTTChannel(alerter.MQTTConfig{
			Broker:   cfg.Alert.MQTT.Broker,
			ClientID: cfg.Alert.MQTT.ClientID,
			Username: cfg.Alert.MQTT.Username,
			Password: cfg.Alert.MQTT.Password,
			Topic:    cfg.Alert.MQTT.Topic,
			QoS:      cfg.Alert.MQTT.QoS,
		}, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, mqttChannel)
	}
	if len(channels) == 0 {
		logger.Warn("No alert channels configured, alerts will never be delivered")
	}

	dispatcher := alerter.NewDispatcher(
		anomaliesRepo,
		employeesRepo,
		channels,
		time.Duration(cfg.Alert.ChannelTimeout)*time.Second,
		logger,
	)

	// 7. 缓存与运行锁
	resultCache := cache.NewResultCache(
		redisClient,
		cfg.Cache.KeyPrefix,
		time.Duration(cfg.Cache.TTL)*time.Second,
		logger,
	)
	runLock := orchestrator.NewRunLock(
		redisClient,
		time.Duration(cfg.Schedule.LockTTL)*time.Second,
		logger,
	)

	// 8. 编排与调度
	orch := orchestrator.NewOrchestrator(
		employeesRepo,
		eventsRepo,
		summariesRepo,
		calculator,
		det,
		dispatcher,
		resultCache,
		runLock,
		orchestrator.Options{
			Concurrency:      cfg.Schedule.Concurrency,
			AlertMinSeverity: cfg.Alert.MinSeverity,
		},
		location,
		logger,
	)
	scheduler, err := orchestrator.NewScheduler(orch, cfg.Schedule.RunAt, cfg.Schedule.Timezone, orchestrator.SystemClock(), logger)
	if err != nil {
		return nil, err
	}

	return &AnalysisService{
		config:        cfg,
		db:            db,
		redisClient:   redisClient,
		logger:        logger,
		employeesRepo: employeesRepo,
		eventsRepo:    eventsRepo,
		summariesRepo: summariesRepo,
		anomaliesRepo: anomaliesRepo,
		calculator:    calculator,
		baselines:     baselines,
		detector:      det,
		dispatcher:    dispatcher,
		resultCache:   resultCache,
		orchestrator:  orch,
		scheduler:     scheduler,
		mqttChannel:   mqttChannel,
	}, nil
}

// Start 启动服务（阻塞在调度循环上）
func (s *AnalysisService) Start(ctx context.Context) error {
	s.logger.Info("Starting analysis service")
	return s.scheduler.Start(ctx)
}

// RunManual 手工触发一次分析；targetDate 为 nil 时默认前一天
func (s *AnalysisService) RunManual(ctx context.Context, targetDate *time.Time) (*orchestrator.RunReport, error) {
	return s.scheduler.RunManual(ctx, targetDate)
}

// Stop 停止服务
func (s *AnalysisService) Stop() error {
	s.logger.Info("Stopping analysis service")

	if s.mqttChannel != nil {
		s.mqttChannel.Close()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
