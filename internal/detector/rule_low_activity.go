package detector

import (
	"fmt"
	"math"
	"time"

	"workpulse-insight/internal/models"
)

// evaluateLowActivity 规则2：当天分数比基线均分低出阈值
// 偏离 = (基线均分 - 当天分) / 基线均分 × 100，只对低于基线的一侧触发
func (d *Detector) evaluateLowActivity(emp *models.Employee, date time.Time, summary *models.DailySummary, bl *models.Baseline) *models.Anomaly {
	if bl.AvgScore <= 0 {
		return nil
	}

	deviation := (bl.AvgScore - float64(summary.Score)) / bl.AvgScore * 100
	if deviation < d.thresholds.DeviationPercent || float64(summary.Score) >= bl.AvgScore {
		return nil
	}

	expected := math.Round(bl.AvgScore)
	description := fmt.Sprintf("Productivity score (%d) is %d%% below baseline (%d) for %s",
		summary.Score,
		int(math.Round(deviation)),
		int(expected),
		emp.Name,
	)

	return d.newAnomaly(emp.EmployeeID, date, models.AnomalyLowActivity, float64(summary.Score), expected, deviation, description)
}
