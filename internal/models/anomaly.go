package models

import (
	"time"
)

// 异常类型（六条检测规则）
const (
	AnomalyNoData       = "No Data"
	AnomalyLowActivity  = "Low Activity"
	AnomalyIdleSpike    = "Idle Spike"
	AnomalyLateStart    = "Late Start"
	AnomalyEarlyEnd     = "Early End"
	AnomalyExtendedIdle = "Extended Idle"
)

// 异常级别
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// SeverityRank 级别序号（用于最低级别过滤），未知级别返回 0
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Anomaly 生产力异常记录（对应 anomalies 表）
// 唯一键：(employee_id, anomaly_date, anomaly_type)，检测端 upsert 只覆盖指标字段
type Anomaly struct {
	AnomalyID  string    `json:"anomaly_id" db:"anomaly_id"`
	EmployeeID string    `json:"employee_id" db:"employee_id"`
	Date       time.Time `json:"date" db:"anomaly_date"`
	Type       string    `json:"type" db:"anomaly_type"`
	Severity   string    `json:"severity" db:"severity"`

	// 指标
	ActualValue      float64 `json:"actual_value" db:"actual_value"`
	ExpectedValue    float64 `json:"expected_value" db:"expected_value"`
	DeviationPercent float64 `json:"deviation_percent" db:"deviation_percent"`
	Description      string  `json:"description" db:"description"`

	// 处理状态（仅运维操作修改，检测端不触碰）
	Resolved      bool       `json:"resolved" db:"resolved"`
	ResolvedBy    *string    `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedNotes *string    `json:"resolved_notes,omitempty" db:"resolved_notes"`

	// 告警状态
	AlertSent     bool       `json:"alert_sent" db:"alert_sent"`
	AlertSentAt   *time.Time `json:"alert_sent_at,omitempty" db:"alert_sent_at"`
	AlertChannels []string   `json:"alert_channels" db:"alert_channels"` // JSONB

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AlertPayload 告警通道的统一载荷，各通道自行转换为自己的线上格式
type AlertPayload struct {
	AnomalyID        string    `json:"anomaly_id"`
	EmployeeID       string    `json:"employee_id"`
	EmployeeName     string    `json:"employee_name"`
	Department       string    `json:"department"`
	Date             time.Time `json:"date"`
	AnomalyType      string    `json:"anomaly_type"`
	Severity         string    `json:"severity"`
	ActualValue      float64   `json:"actual_value"`
	ExpectedValue    float64   `json:"expected_value"`
	DeviationPercent float64   `json:"deviation_percent"`
	Description      string    `json:"description"`
}
