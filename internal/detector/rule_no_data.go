package detector

import (
	"fmt"
	"math"
	"time"

	"workpulse-insight/internal/models"
)

// evaluateNoData 规则1：当天没有汇总或一条事件都没有
// 触发时偏离固定记 100%，级别强制 Critical，且短路其余规则
func (d *Detector) evaluateNoData(emp *models.Employee, date time.Time, summary *models.DailySummary, events []models.ActivityEvent, bl *models.Baseline) *models.Anomaly {
	if summary != nil && len(events) > 0 {
		return nil
	}

	description := fmt.Sprintf("No activity logged for %s on %s. Expected average score: %d",
		emp.Name,
		date.Format("Mon Jan 2 2006"),
		int(math.Round(bl.AvgScore)),
	)

	return d.newAnomaly(emp.EmployeeID, date, models.AnomalyNoData, 0, bl.AvgScore, 100, description)
}
