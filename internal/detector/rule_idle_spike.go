package detector

import (
	"fmt"
	"math"
	"time"

	"workpulse-insight/internal/models"
)

// evaluateIdleSpike 规则3：当天空闲时间比基线均值高出阈值
// 偏离 = (当天空闲 - 基线空闲) / 基线空闲 × 100；
// 基线空闲为 0 而当天有空闲时按 100% 处理
func (d *Detector) evaluateIdleSpike(emp *models.Employee, date time.Time, summary *models.DailySummary, bl *models.Baseline) *models.Anomaly {
	todayIdle := float64(summary.IdleTime)

	var deviation float64
	switch {
	case bl.AvgIdleTime > 0:
		deviation = (todayIdle - bl.AvgIdleTime) / bl.AvgIdleTime * 100
	case todayIdle > 0:
		deviation = 100
	default:
		return nil
	}

	if deviation < d.thresholds.DeviationPercent {
		return nil
	}

	description := fmt.Sprintf("Idle time (%.1fh) is %d%% above baseline (%.1fh) for %s",
		todayIdle/3600,
		int(math.Round(deviation)),
		bl.AvgIdleTime/3600,
		emp.Name,
	)

	return d.newAnomaly(emp.EmployeeID, date, models.AnomalyIdleSpike,
		math.Round(todayIdle), math.Round(bl.AvgIdleTime), deviation, description)
}
