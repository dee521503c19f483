package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"workpulse-insight/internal/config"
	"workpulse-insight/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 3. 创建服务
	analysisService, err := service.NewAnalysisService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create analysis service",
			zap.Error(err),
		)
	}
	defer analysisService.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 一次性运行模式：RUN_ONCE=true 时跑完前一天（或 RUN_DATE 指定日）即退出
	if os.Getenv("RUN_ONCE") == "true" {
		runOnce(ctx, analysisService, logger)
		return
	}

	// 6. 启动调度循环（在 goroutine 中）
	serviceErrChan := make(chan error, 1)
	go func() {
		if err := analysisService.Start(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	// 7. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel() // 取消上下文，停止调度
	case err := <-serviceErrChan:
		logger.Fatal("Service error",
			zap.Error(err),
		)
	}

	logger.Info("Analysis service stopped")
}

// runOnce 手工触发一次分析后退出
func runOnce(ctx context.Context, analysisService *service.AnalysisService, logger *zap.Logger) {
	var targetDate *time.Time
	if raw := os.Getenv("RUN_DATE"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			logger.Fatal("Invalid RUN_DATE, expected YYYY-MM-DD",
				zap.String("run_date", raw),
				zap.Error(err),
			)
		}
		targetDate = &parsed
	}

	report, err := analysisService.RunManual(ctx, targetDate)
	if err != nil {
		logger.Fatal("Manual run failed",
			zap.Error(err),
		)
	}

	logger.Info("Manual run completed",
		zap.String("run_id", report.RunID),
		zap.String("target_date", report.TargetDate.Format("2006-01-02")),
		zap.Int("total_employees", report.TotalEmployees),
		zap.Int("total_anomalies", report.TotalAnomalies),
		zap.Duration("duration", report.Duration),
	)
}

// initLogger 初始化日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Log.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}
