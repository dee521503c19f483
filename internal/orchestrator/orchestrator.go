package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"workpulse-insight/internal/alerter"
	"workpulse-insight/internal/cache"
	"workpulse-insight/internal/models"
	"workpulse-insight/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRunInProgress 同一目标日期已有运行在途
var ErrRunInProgress = errors.New("analysis run already in progress for target date")

// EmployeeLister 在职员工枚举口；枚举失败是整次运行唯一的致命错误
type EmployeeLister interface {
	ListActiveEmployees(ctx context.Context) ([]*models.Employee, error)
}

// EventStore 原始事件查询口
type EventStore interface {
	QueryEvents(ctx context.Context, employeeID string, from, to time.Time) ([]models.ActivityEvent, error)
}

// SummaryStore 每日汇总写入口
type SummaryStore interface {
	UpsertSummary(ctx context.Context, summary *models.DailySummary) error
}

// AnomalyDetector 异常检测口
type AnomalyDetector interface {
	Detect(ctx context.Context, employeeID string, date time.Time) ([]*models.Anomaly, error)
}

// AlertSender 批量告警口
type AlertSender interface {
	SendAlertsForUnresolved(ctx context.Context, minSeverity string) (*alerter.BatchResult, error)
}

// Options 编排器可调参数
type Options struct {
	Concurrency      int    // 阶段内并发员工数
	AlertMinSeverity string // 告警阶段最低级别
}

// Orchestrator 每日批处理编排器
// 一次运行依次经过评分、检测、告警三个阶段；阶段内按员工并发，
// 单个员工失败只记入报告，不影响其他员工
type Orchestrator struct {
	employees   EmployeeLister
	events      EventStore
	summaries   SummaryStore
	calculator  *scoring.Calculator
	detector    AnomalyDetector
	dispatcher  AlertSender
	resultCache *cache.ResultCache // 可为 nil（禁用缓存刷新）
	lock        *RunLock           // 可为 nil（禁用运行串行化，仅测试用）
	opts        Options
	location    *time.Location
	logger      *zap.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	employees EmployeeLister,
	events EventStore,
	summaries SummaryStore,
	calculator *scoring.Calculator,
	detector AnomalyDetector,
	dispatcher AlertSender,
	resultCache *cache.ResultCache,
	lock *RunLock,
	opts Options,
	location *time.Location,
	logger *zap.Logger,
) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.AlertMinSeverity == "" {
		opts.AlertMinSeverity = models.SeverityMedium
	}
	if location == nil {
		location = time.Local
	}
	return &Orchestrator{
		employees:   employees,
		events:      events,
		summaries:   summaries,
		calculator:  calculator,
		detector:    detector,
		dispatcher:  dispatcher,
		resultCache: resultCache,
		lock:        lock,
		opts:        opts,
		location:    location,
		logger:      logger,
	}
}

// workerOutcome 单个员工在某阶段的处理结果，由单一收集方汇入报告
type workerOutcome struct {
	employeeID string
	err        error
	summary    *models.DailySummary
	anomalies  []*models.Anomaly
}

// RunDailyAnalysis 对目标日期执行一次完整分析，总是返回一份报告
// 同一目标日期已有运行在途时返回 ErrRunInProgress
func (o *Orchestrator) RunDailyAnalysis(ctx context.Context, targetDate time.Time) (*RunReport, error) {
	day := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, o.location)

	report := &RunReport{
		RunID:      uuid.New().String(),
		TargetDate: day,
		StartedAt:  time.Now(),
		Scoring:    PhaseResult{Succeeded: []string{}, Failed: []WorkerFailure{}},
		Detection:  PhaseResult{Succeeded: []string{}, Failed: []WorkerFailure{}},
	}

	if o.lock != nil {
		acquired, err := o.lock.Acquire(ctx, day, report.RunID)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %s", ErrRunInProgress, day.Format("2006-01-02"))
		}
		defer func() {
			if err := o.lock.Release(context.Background(), day, report.RunID); err != nil {
				o.logger.Error("Failed to release run lock", zap.Error(err))
			}
		}()
	}

	o.logger.Info("Daily analysis started",
		zap.String("run_id", report.RunID),
		zap.String("target_date", day.Format("2006-01-02")),
	)

	employees, err := o.employees.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	report.TotalEmployees = len(employees)

	summaries := map[string]*models.DailySummary{}
	anomaliesByEmployee := map[string][]*models.Anomaly{}

	// 阶段1：评分
	for _, outcome := range o.forEachEmployee(ctx, employees, func(ctx context.Context, emp *models.Employee) workerOutcome {
		return o.scoreEmployee(ctx, emp, day)
	}) {
		if outcome.err != nil {
			report.Scoring.Failed = append(report.Scoring.Failed, WorkerFailure{
				EmployeeID: outcome.employeeID,
				Error:      outcome.err.Error(),
			})
			continue
		}
		report.Scoring.Succeeded = append(report.Scoring.Succeeded, outcome.employeeID)
		summaries[outcome.employeeID] = outcome.summary
	}

	// 阶段2：检测
	for _, outcome := range o.forEachEmployee(ctx, employees, func(ctx context.Context, emp *models.Employee) workerOutcome {
		anomalies, err := o.detector.Detect(ctx, emp.EmployeeID, day)
		return workerOutcome{employeeID: emp.EmployeeID, err: err, anomalies: anomalies}
	}) {
		if outcome.err != nil {
			report.Detection.Failed = append(report.Detection.Failed, WorkerFailure{
				EmployeeID: outcome.employeeID,
				Error:      outcome.err.Error(),
			})
			continue
		}
		report.Detection.Succeeded = append(report.Detection.Succeeded, outcome.employeeID)
		report.TotalAnomalies += len(outcome.anomalies)
		anomaliesByEmployee[outcome.employeeID] = outcome.anomalies
	}

	// 阶段3：告警（只在检测出异常时运行）
	if report.TotalAnomalies > 0 {
		batch, err := o.dispatcher.SendAlertsForUnresolved(ctx, o.opts.AlertMinSeverity)
		if err != nil {
			o.logger.Error("Alert phase failed",
				zap.String("run_id", report.RunID),
				zap.Error(err),
			)
			report.Alerts.Failed = report.TotalAnomalies
		} else {
			report.Alerts.Sent = batch.TotalSent
			report.Alerts.Failed = len(batch.Failed)
			report.Alerts.AlreadySent = batch.AlreadySent
		}
	}

	// 结果缓存刷新（尽力而为，失败只记日志）
	o.refreshCache(ctx, summaries, anomaliesByEmployee)

	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	o.logger.Info("Daily analysis completed",
		zap.String("run_id", report.RunID),
		zap.String("target_date", day.Format("2006-01-02")),
		zap.Int("employees", report.TotalEmployees),
		zap.Int("scored", len(report.Scoring.Succeeded)),
		zap.Int("anomalies", report.TotalAnomalies),
		zap.Int("alerts_sent", report.Alerts.Sent),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// RecalculateRange 对日期闭区间逐日重算评分（管理端回填用，不触发检测与告警）
func (o *Orchestrator) RecalculateRange(ctx context.Context, from, to time.Time) (map[string]PhaseResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: to is before from")
	}

	employees, err := o.employees.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}

	results := map[string]PhaseResult{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		day := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, o.location)
		phase := PhaseResult{Succeeded: []string{}, Failed: []WorkerFailure{}}

		for _, outcome := range o.forEachEmployee(ctx, employees, func(ctx context.Context, emp *models.Employee) workerOutcome {
			return o.scoreEmployee(ctx, emp, day)
		}) {
			if outcome.err != nil {
				phase.Failed = append(phase.Failed, WorkerFailure{
					EmployeeID: outcome.employeeID,
					Error:      outcome.err.Error(),
				})
			} else {
				phase.Succeeded = append(phase.Succeeded, outcome.employeeID)
			}
		}

		results[day.Format("2006-01-02")] = phase
	}

	return results, nil
}

// scoreEmployee 评分阶段的单员工任务：取事件、算汇总、落库
func (o *Orchestrator) scoreEmployee(ctx context.Context, emp *models.Employee, day time.Time) workerOutcome {
	outcome := workerOutcome{employeeID: emp.EmployeeID}

	dayEnd := day.Add(24*time.Hour - time.Nanosecond)
	events, err := o.events.QueryEvents(ctx, emp.EmployeeID, day, dayEnd)
	if err != nil {
		outcome.err = err
		return outcome
	}

	summary := o.calculator.Summarize(emp.EmployeeID, day, events)
	if err := o.summaries.UpsertSummary(ctx, summary); err != nil {
		outcome.err = err
		return outcome
	}

	outcome.summary = summary
	return outcome
}

// forEachEmployee 把单员工任务按有界并发展开
// 每个任务把结果发回收集通道，报告只由调用方单线程更新；
// 取消只在员工之间检查，不打断进行中的单员工计算
func (o *Orchestrator) forEachEmployee(ctx context.Context, employees []*models.Employee, task func(context.Context, *models.Employee) workerOutcome) []workerOutcome {
	results := make(chan workerOutcome, len(employees))
	sem := make(chan struct{}, o.opts.Concurrency)

	var wg sync.WaitGroup
	launched := 0
	for _, emp := range employees {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		launched++
		go func(emp *models.Employee) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- task(ctx, emp)
		}(emp)
	}

	wg.Wait()
	close(results)

	outcomes := make([]workerOutcome, 0, launched)
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// refreshCache 把本次运行的汇总与异常刷入 Redis
func (o *Orchestrator) refreshCache(ctx context.Context, summaries map[string]*models.DailySummary, anomalies map[string][]*models.Anomaly) {
	if o.resultCache == nil {
		return
	}

	for employeeID, summary := range summaries {
		if err := o.resultCache.PutSummary(ctx, summary); err != nil {
			o.logger.Warn("Failed to cache summary",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
		}
	}
	for employeeID, list := range anomalies {
		if err := o.resultCache.PutAnomalies(ctx, employeeID, list); err != nil {
			o.logger.Warn("Failed to cache anomalies",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
		}
	}
}
