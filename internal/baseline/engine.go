package baseline

import (
	"context"
	"fmt"
	"math"
	"time"

	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// SummaryStore 基线计算需要的历史汇总读取口
type SummaryStore interface {
	ListSummariesInRange(ctx context.Context, employeeID string, from, to time.Time) ([]*models.DailySummary, error)
}

// Engine 滚动基线引擎
// 取目标日期前 windowDays 天（不含目标日）的汇总做算术平均；
// 窗口允许不满，一条历史都没有时返回 nil 基线
type Engine struct {
	store      SummaryStore
	windowDays int
	// 无任何历史小时数据时的兜底标准工时
	standardStartHour int
	standardEndHour   int
	logger            *zap.Logger
}

// NewEngine 创建基线引擎
func NewEngine(store SummaryStore, windowDays, standardStartHour, standardEndHour int, logger *zap.Logger) *Engine {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Engine{
		store:             store,
		windowDays:        windowDays,
		standardStartHour: standardStartHour,
		standardEndHour:   standardEndHour,
		logger:            logger,
	}
}

// Compute 计算某员工在目标日期时点的基线；没有历史数据时返回 (nil, nil)
func (e *Engine) Compute(ctx context.Context, employeeID string, targetDate time.Time) (*models.Baseline, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}

	endDate := targetDate.AddDate(0, 0, -1)
	startDate := endDate.AddDate(0, 0, -(e.windowDays - 1))

	summaries, err := e.store.ListSummariesInRange(ctx, employeeID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline summaries: %w", err)
	}

	if len(summaries) == 0 {
		e.logger.Debug("No baseline data",
			zap.String("employee_id", employeeID),
			zap.String("target_date", targetDate.Format("2006-01-02")),
		)
		return nil, nil
	}

	b := &models.Baseline{
		SampleSize: len(summaries),
		StartDate:  startDate,
		EndDate:    endDate,
	}

	var startHourSum, endHourSum float64
	var startHourCount, endHourCount int

	for _, s := range summaries {
		b.AvgScore += float64(s.Score)
		b.AvgActiveTime += float64(s.ActiveTime)
		b.AvgIdleTime += float64(s.IdleTime)
		b.AvgMouseMoves += float64(s.TotalMouseMoves)
		b.AvgKeyPresses += float64(s.TotalKeyPresses)

		if s.WorkHoursStart != nil {
			startHourSum += float64(*s.WorkHoursStart)
			startHourCount++
		}
		if s.WorkHoursEnd != nil {
			endHourSum += float64(*s.WorkHoursEnd)
			endHourCount++
		}
	}

	count := float64(len(summaries))
	b.AvgScore /= count
	b.AvgActiveTime /= count
	b.AvgIdleTime /= count
	b.AvgMouseMoves /= count
	b.AvgKeyPresses /= count

	// 小时均值只在有值的样本上求；完全没有小时数据时退回标准工时
	if startHourCount > 0 {
		b.AvgStartHour = int(math.Round(startHourSum / float64(startHourCount)))
	} else {
		b.AvgStartHour = e.standardStartHour
	}
	if endHourCount > 0 {
		b.AvgEndHour = int(math.Round(endHourSum / float64(endHourCount)))
	} else {
		b.AvgEndHour = e.standardEndHour
	}

	return b, nil
}
