package detector

import (
	"fmt"
	"math"
	"time"

	"workpulse-insight/internal/models"
)

// evaluateExtendedIdle 规则6：最长连续空闲段超过阈值
// 连续空闲 = 相邻空闲事件时长累加，遇到任一非空闲事件清零
func (d *Detector) evaluateExtendedIdle(emp *models.Employee, date time.Time, events []models.ActivityEvent, bl *models.Baseline) *models.Anomaly {
	maxRunSeconds := 0
	currentRunSeconds := 0
	for _, ev := range events {
		if ev.Idle {
			currentRunSeconds += ev.Duration
			if currentRunSeconds > maxRunSeconds {
				maxRunSeconds = currentRunSeconds
			}
		} else {
			currentRunSeconds = 0
		}
	}

	maxIdleMinutes := float64(maxRunSeconds) / 60
	if maxIdleMinutes < float64(d.thresholds.ExtendedIdleMin) {
		return nil
	}

	actual := math.Round(maxIdleMinutes)
	expected := math.Round(bl.AvgIdleTime / 60)

	deviation := 100.0
	if expected > 0 {
		deviation = (actual - expected) / expected * 100
	}

	description := fmt.Sprintf("Extended idle period of %d minutes detected for %s (expected: %d min average)",
		int(actual),
		emp.Name,
		int(expected),
	)

	return d.newAnomaly(emp.EmployeeID, date, models.AnomalyExtendedIdle, actual, expected, deviation, description)
}
