package alerter

import (
	"context"
	"fmt"
	"time"

	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// AnomalyStore 告警分发需要的异常读写口
type AnomalyStore interface {
	GetAnomaly(ctx context.Context, anomalyID string) (*models.Anomaly, error)
	MarkAlerted(ctx context.Context, anomalyID string, channels []string) error
	ListUnresolvedUnalerted(ctx context.Context, minSeverityRank int) ([]*models.Anomaly, error)
}

// EmployeeStore 员工信息查询口（载荷里带姓名与部门）
type EmployeeStore interface {
	GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error)
}

// ChannelOutcome 单通道发送结果
type ChannelOutcome struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DispatchResult 单条异常的分发结果
type DispatchResult struct {
	AnomalyID    string           `json:"anomaly_id"`
	AlreadySent  bool             `json:"already_sent"`
	Attempts     []ChannelOutcome `json:"attempts"`
	SentChannels []string         `json:"sent_channels"`
}

// BatchFailure 批量分发中单条异常的失败记录
type BatchFailure struct {
	AnomalyID string `json:"anomaly_id"`
	Error     string `json:"error"`
}

// BatchResult 批量分发结果
type BatchResult struct {
	Results     []*DispatchResult `json:"results"`
	Failed      []BatchFailure    `json:"failed"`
	AlreadySent int               `json:"already_sent"`
	TotalSent   int               `json:"total_sent"` // 成功的通道发送次数
}

// Dispatcher 告警分发器
// 各通道相互独立：一个通道失败不影响其它通道；
// 至少一个通道成功才记 alert_sent，零成功时保留重试资格
type Dispatcher struct {
	anomalies      AnomalyStore
	employees      EmployeeStore
	channels       []Channel
	channelTimeout time.Duration
	logger         *zap.Logger
}

// NewDispatcher 创建告警分发器
func NewDispatcher(anomalies AnomalyStore, employees EmployeeStore, channels []Channel, channelTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = 10 * time.Second
	}
	return &Dispatcher{
		anomalies:      anomalies,
		employees:      employees,
		channels:       channels,
		channelTimeout: channelTimeout,
		logger:         logger,
	}
}

// SendAlert 分发单条异常告警
// 已发过告警时直接返回 AlreadySent，不再调用任何通道
func (d *Dispatcher) SendAlert(ctx context.Context, anomalyID string) (*DispatchResult, error) {
	anomaly, err := d.anomalies.GetAnomaly(ctx, anomalyID)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{
		AnomalyID:    anomaly.AnomalyID,
		Attempts:     []ChannelOutcome{},
		SentChannels: []string{},
	}

	if anomaly.AlertSent {
		result.AlreadySent = true
		d.logger.Debug("Alert already sent, skipping",
			zap.String("anomaly_id", anomaly.AnomalyID),
		)
		return result, nil
	}

	payload := d.buildPayload(ctx, anomaly)

	for _, channel := range d.channels {
		outcome := ChannelOutcome{Channel: channel.Name()}

		// 每个通道独立限时，慢通道不拖住其余通道与后续异常
		channelCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
		err := channel.Send(channelCtx, payload)
		cancel()

		if err != nil {
			outcome.Error = err.Error()
			d.logger.Warn("Alert channel failed",
				zap.String("anomaly_id", anomaly.AnomalyID),
				zap.String("channel", channel.Name()),
				zap.Error(err),
			)
		} else {
			outcome.Success = true
			result.SentChannels = append(result.SentChannels, channel.Name())
		}

		result.Attempts = append(result.Attempts, outcome)
	}

	if len(result.SentChannels) > 0 {
		if err := d.anomalies.MarkAlerted(ctx, anomaly.AnomalyID, result.SentChannels); err != nil {
			return nil, fmt.Errorf("failed to record alert delivery: %w", err)
		}
		d.logger.Info("Alert dispatched",
			zap.String("anomaly_id", anomaly.AnomalyID),
			zap.Strings("channels", result.SentChannels),
		)
	} else {
		d.logger.Warn("All alert channels failed, anomaly stays eligible for retry",
			zap.String("anomaly_id", anomaly.AnomalyID),
		)
	}

	return result, nil
}

// SendBatchAlerts 批量分发：逐条处理，收集失败，绝不中断整批
func (d *Dispatcher) SendBatchAlerts(ctx context.Context, anomalyIDs []string) *BatchResult {
	batch := &BatchResult{
		Results: []*DispatchResult{},
		Failed:  []BatchFailure{},
	}

	for _, id := range anomalyIDs {
		result, err := d.SendAlert(ctx, id)
		if err != nil {
			batch.Failed = append(batch.Failed, BatchFailure{
				AnomalyID: id,
				Error:     err.Error(),
			})
			continue
		}

		batch.Results = append(batch.Results, result)
		if result.AlreadySent {
			batch.AlreadySent++
		} else {
			batch.TotalSent += len(result.SentChannels)
		}
	}

	return batch
}

// SendAlertsForUnresolved 对所有未处理、未告警、级别不低于 minSeverity 的异常批量告警
func (d *Dispatcher) SendAlertsForUnresolved(ctx context.Context, minSeverity string) (*BatchResult, error) {
	minRank := models.SeverityRank(minSeverity)
	if minRank == 0 {
		minRank = models.SeverityRank(models.SeverityMedium)
	}

	anomalies, err := d.anomalies.ListUnresolvedUnalerted(ctx, minRank)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies for alerting: %w", err)
	}

	if len(anomalies) == 0 {
		d.logger.Info("No new anomalies to alert")
		return &BatchResult{Results: []*DispatchResult{}, Failed: []BatchFailure{}}, nil
	}

	ids := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		ids = append(ids, a.AnomalyID)
	}

	return d.SendBatchAlerts(ctx, ids), nil
}

// buildPayload 组装通道载荷；员工信息查不到时退化为只带工号
func (d *Dispatcher) buildPayload(ctx context.Context, anomaly *models.Anomaly) *models.AlertPayload {
	payload := &models.AlertPayload{
		AnomalyID:        anomaly.AnomalyID,
		EmployeeID:       anomaly.EmployeeID,
		EmployeeName:     anomaly.EmployeeID,
		Date:             anomaly.Date,
		AnomalyType:      anomaly.Type,
		Severity:         anomaly.Severity,
		ActualValue:      anomaly.ActualValue,
		ExpectedValue:    anomaly.ExpectedValue,
		DeviationPercent: anomaly.DeviationPercent,
		Description:      anomaly.Description,
	}

	emp, err := d.employees.GetEmployee(ctx, anomaly.EmployeeID)
	if err != nil {
		d.logger.Warn("Failed to resolve employee for alert payload",
			zap.String("employee_id", anomaly.EmployeeID),
			zap.Error(err),
		)
		return payload
	}

	payload.EmployeeName = emp.Name
	payload.Department = emp.Department
	return payload
}
