package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Clock 可注入时钟（测试用假时钟，生产用系统时钟）
type Clock interface {
	Now() time.Time
}

// systemClock 系统时钟
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回系统时钟
func SystemClock() Clock { return systemClock{} }

// Runner 调度器驱动的运行口
type Runner interface {
	RunDailyAnalysis(ctx context.Context, targetDate time.Time) (*RunReport, error)
}

// Scheduler 每日定时触发器
// 每天在配置的本地时刻触发一次，默认分析前一天；
// 另提供手工触发入口，可指定目标日期
type Scheduler struct {
	runner   Runner
	runHour  int
	runMin   int
	location *time.Location
	clock    Clock
	logger   *zap.Logger
}

// NewScheduler 创建调度器；runAt 形如 "HH:MM"，timezone 为 IANA 时区名
func NewScheduler(runner Runner, runAt, timezone string, clock Clock, logger *zap.Logger) (*Scheduler, error) {
	var hour, min int
	if _, err := fmt.Sscanf(runAt, "%d:%d", &hour, &min); err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: %w", runAt, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return nil, fmt.Errorf("invalid schedule time %q", runAt)
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	if clock == nil {
		clock = SystemClock()
	}

	return &Scheduler{
		runner:   runner,
		runHour:  hour,
		runMin:   min,
		location: location,
		clock:    clock,
		logger:   logger,
	}, nil
}

// nextRunAfter 计算 now 之后最近一次的触发时刻
func (s *Scheduler) nextRunAfter(now time.Time) time.Time {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.runHour, s.runMin, 0, 0, s.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start 启动调度循环，阻塞直到 ctx 取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Scheduler started",
		zap.String("run_at", fmt.Sprintf("%02d:%02d", s.runHour, s.runMin)),
		zap.String("timezone", s.location.String()),
	)

	for {
		next := s.nextRunAfter(s.clock.Now())
		timer := time.NewTimer(next.Sub(s.clock.Now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}

		// 定时触发分析前一天
		targetDate := next.AddDate(0, 0, -1)
		s.logger.Info("Scheduled daily analysis triggered",
			zap.String("target_date", targetDate.Format("2006-01-02")),
		)

		if _, err := s.runner.RunDailyAnalysis(ctx, targetDate); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("Scheduled run skipped, already in progress",
					zap.String("target_date", targetDate.Format("2006-01-02")),
				)
				continue
			}
			s.logger.Error("Scheduled daily analysis failed",
				zap.String("target_date", targetDate.Format("2006-01-02")),
				zap.Error(err),
			)
		}
	}
}

// RunManual 手工触发一次分析；targetDate 为 nil 时默认前一天
func (s *Scheduler) RunManual(ctx context.Context, targetDate *time.Time) (*RunReport, error) {
	day := s.clock.Now().In(s.location).AddDate(0, 0, -1)
	if targetDate != nil {
		day = *targetDate
	}

	s.logger.Info("Manual analysis triggered",
		zap.String("target_date", day.Format("2006-01-02")),
	)
	return s.runner.RunDailyAnalysis(ctx, day)
}
