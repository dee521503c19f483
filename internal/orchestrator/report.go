package orchestrator

import (
	"time"
)

// WorkerFailure 单个员工处理失败的记录
type WorkerFailure struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

// PhaseResult 单阶段的按员工成败清单
type PhaseResult struct {
	Succeeded []string        `json:"succeeded"`
	Failed    []WorkerFailure `json:"failed"`
}

// AlertPhaseResult 告警阶段汇总
type AlertPhaseResult struct {
	Sent        int `json:"sent"`         // 成功的通道发送次数
	Failed      int `json:"failed"`       // 整条异常分发失败数
	AlreadySent int `json:"already_sent"` // 跳过的已告警异常数
}

// RunReport 一次每日分析的完整报告
// 无论各阶段成败如何，一次运行总会产出一份报告
type RunReport struct {
	RunID      string    `json:"run_id"`
	TargetDate time.Time `json:"target_date"`
	Manual     bool      `json:"manual"`

	TotalEmployees int `json:"total_employees"`

	Scoring        PhaseResult      `json:"scoring"`
	Detection      PhaseResult      `json:"detection"`
	TotalAnomalies int              `json:"total_anomalies"`
	Alerts         AlertPhaseResult `json:"alerts"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}
