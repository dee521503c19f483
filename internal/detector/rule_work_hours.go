package detector

import (
	"fmt"
	"time"

	"workpulse-insight/internal/models"
)

// evaluateLateStart 规则4：首次活动比基线平均上班小时晚出阈值
// 仅当天记录了上班小时时评估
func (d *Detector) evaluateLateStart(emp *models.Employee, date time.Time, summary *models.DailySummary, bl *models.Baseline) *models.Anomaly {
	if summary.WorkHoursStart == nil {
		return nil
	}

	startDiff := *summary.WorkHoursStart - bl.AvgStartHour
	if startDiff < d.thresholds.LateStartHours {
		return nil
	}

	deviation := 100.0
	if bl.AvgStartHour > 0 {
		deviation = float64(startDiff) / float64(bl.AvgStartHour) * 100
	}

	description := fmt.Sprintf("Work started at %d:00, which is %dh later than usual (%d:00) for %s",
		*summary.WorkHoursStart,
		startDiff,
		bl.AvgStartHour,
		emp.Name,
	)

	return d.newAnomaly(emp.EmployeeID, date, models.AnomalyLateStart,
		float64(*summary.WorkHoursStart), float64(bl.AvgStartHour), deviation, description)
}

// evaluateEarlyEnd 规则5：末次活动比基线平均下班小时早出阈值
// 仅当天记录了下班小时时评估
func (d *Detector) evaluateEarlyEnd(emp *models.Employee, date time.Time, summary *models.DailySummary, bl *models.Baseline) *models.Anomaly {
	if summary.WorkHoursEnd == nil {
		return nil
	}

	endDiff := bl.AvgEndHour - *summary.WorkHoursEnd
	if endDiff < d.thresholds.EarlyEndHours {
		return nil
	}

	deviation := 100.0
	if bl.AvgEndHour > 0 {
		deviation = float64(endDiff) / float64(bl.AvgEndHour) * 100
	}

	description := fmt.Sprintf("Work ended at %d:00, which is %dh earlier than usual (%d:00) for %s",
		*summary.WorkHoursEnd,
		endDiff,
		bl.AvgEndHour,
		emp.Name,
	)

	return d.newAnomaly(emp.EmployeeID, date, models.AnomalyEarlyEnd,
		float64(*summary.WorkHoursEnd), float64(bl.AvgEndHour), deviation, description)
}
