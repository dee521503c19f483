package models

import (
	"time"
)

// 绩效分类
const (
	CategoryExcellent        = "Excellent"
	CategoryGood             = "Good"
	CategoryNeedsImprovement = "Needs Improvement"
	CategoryInactive         = "Inactive"
)

// DailySummary 每日生产力汇总（对应 daily_summaries 表，每员工每天一条）
// 不变式：TotalTime = ActiveTime + IdleTime；Score = round(TimeRatioScore + ActivityScore)
type DailySummary struct {
	EmployeeID string    `json:"employee_id" db:"employee_id"`
	Date       time.Time `json:"date" db:"summary_date"`

	// 时间指标（秒）
	ActiveTime int `json:"active_time" db:"active_time"`
	IdleTime   int `json:"idle_time" db:"idle_time"`
	TotalTime  int `json:"total_time" db:"total_time"`

	// 活动指标
	TotalMouseMoves int `json:"total_mouse_moves" db:"total_mouse_moves"`
	TotalKeyPresses int `json:"total_key_presses" db:"total_key_presses"`
	TotalEvents     int `json:"total_events" db:"total_events"` // 当天事件条数

	// 评分（0-100），两个子分：时间占比 0-70、活动频率 0-30
	Score          int    `json:"score" db:"score"`
	TimeRatioScore int    `json:"time_ratio_score" db:"time_ratio_score"`
	ActivityScore  int    `json:"activity_score" db:"activity_score"`
	Category       string `json:"category" db:"category"`

	// 工时洞察（0-23 小时，无事件时为 nil）
	WorkHoursStart *int `json:"work_hours_start,omitempty" db:"work_hours_start"`
	WorkHoursEnd   *int `json:"work_hours_end,omitempty" db:"work_hours_end"`
	PeakHour       *int `json:"peak_hour,omitempty" db:"peak_hour"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryFor 按分数段返回绩效分类
func CategoryFor(score int) string {
	switch {
	case score >= 80:
		return CategoryExcellent
	case score >= 60:
		return CategoryGood
	case score >= 40:
		return CategoryNeedsImprovement
	default:
		return CategoryInactive
	}
}

// ProductivityPercent 活跃时间占比（0-100）
func (s *DailySummary) ProductivityPercent() int {
	if s.TotalTime == 0 {
		return 0
	}
	return int(float64(s.ActiveTime)/float64(s.TotalTime)*100 + 0.5)
}
