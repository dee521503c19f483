package detector

import (
	"context"
	"fmt"
	"time"

	"workpulse-insight/internal/baseline"
	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// EmployeeStore 员工身份解析口
type EmployeeStore interface {
	GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error)
}

// EventStore 原始事件查询口
type EventStore interface {
	QueryEvents(ctx context.Context, employeeID string, from, to time.Time) ([]models.ActivityEvent, error)
}

// SummaryStore 当日汇总读取口
type SummaryStore interface {
	GetSummary(ctx context.Context, employeeID string, date time.Time) (*models.DailySummary, error)
}

// AnomalyStore 异常持久化口（按唯一键 upsert，幂等）
type AnomalyStore interface {
	UpsertAnomaly(ctx context.Context, anomaly *models.Anomaly) error
}

// Thresholds 检测阈值
type Thresholds struct {
	DeviationPercent float64 // 分数/空闲偏离阈值（%）
	LateStartHours   int     // 晚到阈值（小时）
	EarlyEndHours    int     // 早退阈值（小时）
	ExtendedIdleMin  int     // 连续空闲阈值（分钟）
}

// Detector 生产力异常检测器
// 把目标日的汇总与原始事件对照基线逐条评估六类规则
type Detector struct {
	employees  EmployeeStore
	events     EventStore
	summaries  SummaryStore
	anomalies  AnomalyStore
	baselines  *baseline.Engine
	thresholds Thresholds
	location   *time.Location
	logger     *zap.Logger
}

// NewDetector 创建异常检测器
func NewDetector(
	employees EmployeeStore,
	events EventStore,
	summaries SummaryStore,
	anomalies AnomalyStore,
	baselines *baseline.Engine,
	thresholds Thresholds,
	location *time.Location,
	logger *zap.Logger,
) *Detector {
	if location == nil {
		location = time.Local
	}
	return &Detector{
		employees:  employees,
		events:     events,
		summaries:  summaries,
		anomalies:  anomalies,
		baselines:  baselines,
		thresholds: thresholds,
		location:   location,
		logger:     logger,
	}
}

// Detect 检测某员工某天的异常并持久化，返回当天现存的异常记录
// 员工不存在返回错误；没有基线时跳过检测（返回空列表，不是错误）
func (d *Detector) Detect(ctx context.Context, employeeID string, date time.Time) ([]*models.Anomaly, error) {
	emp, err := d.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, d.location)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	bl, err := d.baselines.Compute(ctx, employeeID, dayStart)
	if err != nil {
		return nil, err
	}
	if bl == nil {
		d.logger.Info("No baseline data, skipping anomaly detection",
			zap.String("employee_id", employeeID),
			zap.String("date", dayStart.Format("2006-01-02")),
		)
		return []*models.Anomaly{}, nil
	}

	summary, err := d.summaries.GetSummary(ctx, employeeID, dayStart)
	if err != nil {
		return nil, err
	}

	events, err := d.events.QueryEvents(ctx, employeeID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	// 规则1：人不在场（短路其余规则）
	if noData := d.evaluateNoData(emp, dayStart, summary, events, bl); noData != nil {
		return d.persist(ctx, []*models.Anomaly{noData})
	}

	detected := []*models.Anomaly{}

	// 规则2：活跃度过低
	if a := d.evaluateLowActivity(emp, dayStart, summary, bl); a != nil {
		detected = append(detected, a)
	}
	// 规则3：空闲激增
	if a := d.evaluateIdleSpike(emp, dayStart, summary, bl); a != nil {
		detected = append(detected, a)
	}
	// 规则4：晚到
	if a := d.evaluateLateStart(emp, dayStart, summary, bl); a != nil {
		detected = append(detected, a)
	}
	// 规则5：早退
	if a := d.evaluateEarlyEnd(emp, dayStart, summary, bl); a != nil {
		detected = append(detected, a)
	}
	// 规则6：连续空闲过长
	if a := d.evaluateExtendedIdle(emp, dayStart, events, bl); a != nil {
		detected = append(detected, a)
	}

	return d.persist(ctx, detected)
}

// persist 逐条按唯一键 upsert；重跑同一天只覆盖指标字段，不产生重复记录
func (d *Detector) persist(ctx context.Context, detected []*models.Anomaly) ([]*models.Anomaly, error) {
	for _, anomaly := range detected {
		if err := d.anomalies.UpsertAnomaly(ctx, anomaly); err != nil {
			return nil, fmt.Errorf("failed to persist anomaly %s/%s: %w", anomaly.EmployeeID, anomaly.Type, err)
		}
		d.logger.Info("Anomaly recorded",
			zap.String("anomaly_id", anomaly.AnomalyID),
			zap.String("employee_id", anomaly.EmployeeID),
			zap.String("anomaly_type", anomaly.Type),
			zap.String("severity", anomaly.Severity),
			zap.Float64("deviation_percent", anomaly.DeviationPercent),
		)
	}
	return detected, nil
}

// newAnomaly 构造异常记录并按偏离幅度定级
func (d *Detector) newAnomaly(employeeID string, date time.Time, anomalyType string, actual, expected, deviation float64, description string) *models.Anomaly {
	return &models.Anomaly{
		EmployeeID:       employeeID,
		Date:             date,
		Type:             anomalyType,
		Severity:         severityFor(anomalyType, deviation),
		ActualValue:      actual,
		ExpectedValue:    expected,
		DeviationPercent: deviation,
		Description:      description,
	}
}
