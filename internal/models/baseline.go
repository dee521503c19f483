package models

import (
	"time"
)

// Baseline 员工近期基线（滚动窗口内历史汇总的均值，不落库，每次检测现算）
type Baseline struct {
	AvgScore      float64 `json:"avg_score"`
	AvgActiveTime float64 `json:"avg_active_time"` // 秒
	AvgIdleTime   float64 `json:"avg_idle_time"`   // 秒
	AvgMouseMoves float64 `json:"avg_mouse_moves"`
	AvgKeyPresses float64 `json:"avg_key_presses"`

	// 四舍五入后的平均上下班小时（0-23）
	AvgStartHour int `json:"avg_start_hour"`
	AvgEndHour   int `json:"avg_end_hour"`

	SampleSize int       `json:"sample_size"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}
