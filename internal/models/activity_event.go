package models

import (
	"time"
)

// ActivityEvent 原始活动遥测事件（对应 activity_events 表）
// 由终端采集器写入，本服务只读（按员工 + 时间范围查询）
type ActivityEvent struct {
	EventID      int64     `json:"event_id" db:"event_id"`
	EmployeeID   string    `json:"employee_id" db:"employee_id"`
	Timestamp    time.Time `json:"timestamp" db:"event_timestamp"`
	ActiveWindow string    `json:"active_window" db:"active_window"`
	MouseMoves   int       `json:"mouse_moves" db:"mouse_moves"`
	KeyPresses   int       `json:"key_presses" db:"key_presses"`
	Idle         bool      `json:"idle" db:"idle"`
	Duration     int       `json:"duration" db:"duration_seconds"` // 本条事件覆盖的秒数
}
