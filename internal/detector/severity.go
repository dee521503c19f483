package detector

import (
	"math"

	"workpulse-insight/internal/models"
)

// severityFor 按偏离幅度绝对值定级；No Data 一律 Critical
// 级别从未取整的偏离值推导（70.0 → Critical，69.999 → High）
func severityFor(anomalyType string, deviationPercent float64) string {
	if anomalyType == models.AnomalyNoData {
		return models.SeverityCritical
	}

	abs := math.Abs(deviationPercent)
	switch {
	case abs >= 70:
		return models.SeverityCritical
	case abs >= 50:
		return models.SeverityHigh
	case abs >= 30:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
