package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"workpulse-insight/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnomaliesRepository 生产力异常仓库
// 唯一键 (employee_id, anomaly_date, anomaly_type)；检测端 upsert 只覆盖指标列，
// resolved*/alert* 列只由 MarkResolved / MarkAlerted 修改
type AnomaliesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnomaliesRepository 创建异常仓库
func NewAnomaliesRepository(db *sql.DB, logger *zap.Logger) *AnomaliesRepository {
	return &AnomaliesRepository{
		db:     db,
		logger: logger,
	}
}

const anomalyColumns = `
	anomaly_id,
	employee_id,
	anomaly_date,
	anomaly_type,
	severity,
	actual_value,
	expected_value,
	deviation_percent,
	description,
	resolved,
	resolved_by,
	resolved_at,
	resolved_notes,
	alert_sent,
	alert_sent_at,
	alert_channels,
	created_at,
	updated_at
`

// scanAnomaly 扫描一行异常（处理可空字段与 JSONB 通道列表）
func scanAnomaly(row interface{ Scan(...interface{}) error }) (*models.Anomaly, error) {
	var a models.Anomaly
	var resolvedBy, resolvedNotes sql.NullString
	var resolvedAt, alertSentAt sql.NullTime
	var alertChannels []byte

	err := row.Scan(
		&a.AnomalyID,
		&a.EmployeeID,
		&a.Date,
		&a.Type,
		&a.Severity,
		&a.ActualValue,
		&a.ExpectedValue,
		&a.DeviationPercent,
		&a.Description,
		&a.Resolved,
		&resolvedBy,
		&resolvedAt,
		&resolvedNotes,
		&a.AlertSent,
		&alertSentAt,
		&alertChannels,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if resolvedBy.Valid {
		a.ResolvedBy = &resolvedBy.String
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	if resolvedNotes.Valid {
		a.ResolvedNotes = &resolvedNotes.String
	}
	if alertSentAt.Valid {
		a.AlertSentAt = &alertSentAt.Time
	}

	a.AlertChannels = []string{}
	if len(alertChannels) > 0 {
		if err := json.Unmarshal(alertChannels, &a.AlertChannels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert_channels: %w", err)
		}
	}

	return &a, nil
}

// ============================================
// 查询操作
// ============================================

// GetAnomaly 根据 anomaly_id 获取单条异常
func (r *AnomaliesRepository) GetAnomaly(ctx context.Context, anomalyID string) (*models.Anomaly, error) {
	if anomalyID == "" {
		return nil, fmt.Errorf("anomaly_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM anomalies
		WHERE anomaly_id = $1
	`, anomalyColumns)

	anomaly, err := scanAnomaly(r.db.QueryRowContext(ctx, query, anomalyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("anomaly not found: anomaly_id=%s", anomalyID)
		}
		return nil, fmt.Errorf("failed to get anomaly: %w", err)
	}

	return anomaly, nil
}

// FindAnomaly 按唯一键 (employee_id, date, type) 查找异常，不存在返回 nil
func (r *AnomaliesRepository) FindAnomaly(ctx context.Context, employeeID string, date time.Time, anomalyType string) (*models.Anomaly, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}
	if anomalyType == "" {
		return nil, fmt.Errorf("anomaly_type is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM anomalies
		WHERE employee_id = $1
		  AND anomaly_date = $2
		  AND anomaly_type = $3
	`, anomalyColumns)

	anomaly, err := scanAnomaly(r.db.QueryRowContext(ctx, query, employeeID, date.Format("2006-01-02"), anomalyType))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find anomaly: %w", err)
	}

	return anomaly, nil
}

// ListUnresolved 列出某员工近 N 天的未处理异常（按日期倒序）
func (r *AnomaliesRepository) ListUnresolved(ctx context.Context, employeeID string, sinceDays int) ([]*models.Anomaly, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}
	if sinceDays <= 0 {
		sinceDays = 7
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM anomalies
		WHERE employee_id = $1
		  AND resolved = FALSE
		  AND anomaly_date >= CURRENT_DATE - $2::int
		ORDER BY anomaly_date DESC, severity DESC
	`, anomalyColumns)

	rows, err := r.db.QueryContext(ctx, query, employeeID, sinceDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved anomalies: %w", err)
	}
	defer rows.Close()

	return collectAnomalies(rows)
}

// ListUnresolvedUnalerted 列出所有未处理且未告警、级别不低于 minSeverityRank 的异常
// 批量告警模式按此取数
func (r *AnomaliesRepository) ListUnresolvedUnalerted(ctx context.Context, minSeverityRank int) ([]*models.Anomaly, error) {
	severities := []string{}
	for _, s := range []string{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical} {
		if models.SeverityRank(s) >= minSeverityRank {
			severities = append(severities, s)
		}
	}
	if len(severities) == 0 {
		return []*models.Anomaly{}, nil
	}

	placeholders := make([]string, len(severities))
	args := make([]interface{}, len(severities))
	for i, s := range severities {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM anomalies
		WHERE resolved = FALSE
		  AND alert_sent = FALSE
		  AND severity IN (%s)
		ORDER BY anomaly_date DESC
	`, anomalyColumns, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unalerted anomalies: %w", err)
	}
	defer rows.Close()

	return collectAnomalies(rows)
}

func collectAnomalies(rows *sql.Rows) ([]*models.Anomaly, error) {
	anomalies := []*models.Anomaly{}
	for rows.Next() {
		anomaly, err := scanAnomaly(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, anomaly)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomalies: %w", err)
	}

	return anomalies, nil
}

// ============================================
// 写入操作
// ============================================

// UpsertAnomaly 写入或更新异常
// 冲突时只覆盖指标列（severity/actual/expected/deviation/description），
// 保留 resolved*/alert* 列不动；回填 anomaly_id 与保留下来的状态
func (r *AnomaliesRepository) UpsertAnomaly(ctx context.Context, anomaly *models.Anomaly) error {
	if anomaly == nil {
		return fmt.Errorf("anomaly is required")
	}
	if anomaly.EmployeeID == "" {
		return fmt.Errorf("employee_id is required")
	}
	if anomaly.Type == "" {
		return fmt.Errorf("anomaly_type is required")
	}
	if anomaly.Severity == "" {
		return fmt.Errorf("severity is required")
	}

	if anomaly.AnomalyID == "" {
		anomaly.AnomalyID = uuid.New().String()
	}

	query := `
		INSERT INTO anomalies (
			anomaly_id,
			employee_id,
			anomaly_date,
			anomaly_type,
			severity,
			actual_value,
			expected_value,
			deviation_percent,
			description,
			resolved,
			alert_sent,
			alert_channels,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			FALSE, FALSE, '[]'::jsonb,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		)
		ON CONFLICT (employee_id, anomaly_date, anomaly_type) DO UPDATE SET
			severity = EXCLUDED.severity,
			actual_value = EXCLUDED.actual_value,
			expected_value = EXCLUDED.expected_value,
			deviation_percent = EXCLUDED.deviation_percent,
			description = EXCLUDED.description,
			updated_at = CURRENT_TIMESTAMP
		RETURNING anomaly_id, resolved, alert_sent, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		anomaly.AnomalyID,
		anomaly.EmployeeID,
		anomaly.Date.Format("2006-01-02"),
		anomaly.Type,
		anomaly.Severity,
		anomaly.ActualValue,
		anomaly.ExpectedValue,
		anomaly.DeviationPercent,
		anomaly.Description,
	).Scan(
		&anomaly.AnomalyID,
		&anomaly.Resolved,
		&anomaly.AlertSent,
		&anomaly.CreatedAt,
		&anomaly.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert anomaly: %w", err)
	}

	return nil
}

// MarkResolved 标记异常已处理（已处理时为幂等空操作）
func (r *AnomaliesRepository) MarkResolved(ctx context.Context, anomalyID, resolverID, notes string) error {
	if anomalyID == "" {
		return fmt.Errorf("anomaly_id is required")
	}
	if resolverID == "" {
		return fmt.Errorf("resolver_id is required")
	}

	query := `
		UPDATE anomalies
		SET resolved = TRUE,
		    resolved_by = $2,
		    resolved_at = CURRENT_TIMESTAMP,
		    resolved_notes = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE anomaly_id = $1
		  AND resolved = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, anomalyID, resolverID, notes)
	if err != nil {
		return fmt.Errorf("failed to mark anomaly resolved: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// 记录不存在则报错；已处理则静默返回
		existing, err := r.GetAnomaly(ctx, anomalyID)
		if err != nil {
			return err
		}
		r.logger.Debug("Anomaly already resolved, skipping",
			zap.String("anomaly_id", existing.AnomalyID),
		)
	}

	return nil
}

// MarkAlerted 记录告警已发出与成功通道列表（已告警时为幂等空操作）
func (r *AnomaliesRepository) MarkAlerted(ctx context.Context, anomalyID string, channels []string) error {
	if anomalyID == "" {
		return fmt.Errorf("anomaly_id is required")
	}
	if len(channels) == 0 {
		return fmt.Errorf("channels cannot be empty")
	}

	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channels: %w", err)
	}

	query := `
		UPDATE anomalies
		SET alert_sent = TRUE,
		    alert_sent_at = CURRENT_TIMESTAMP,
		    alert_channels = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE anomaly_id = $1
		  AND alert_sent = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, anomalyID, channelsJSON)
	if err != nil {
		return fmt.Errorf("failed to mark anomaly alerted: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		existing, err := r.GetAnomaly(ctx, anomalyID)
		if err != nil {
			return err
		}
		r.logger.Debug("Anomaly already alerted, skipping",
			zap.String("anomaly_id", existing.AnomalyID),
		)
	}

	return nil
}

// ============================================
// 统计查询
// ============================================

// AnomalyTypeStats 单一异常类型的统计
type AnomalyTypeStats struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
	Critical   int `json:"critical"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
}

// CountByTypeAndSeverity 统计近 N 天各类型异常的数量与级别分布
func (r *AnomaliesRepository) CountByTypeAndSeverity(ctx context.Context, days int) (map[string]*AnomalyTypeStats, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT anomaly_type, severity, resolved, COUNT(*)
		FROM anomalies
		WHERE anomaly_date >= CURRENT_DATE - $1::int
		GROUP BY anomaly_type, severity, resolved
	`

	rows, err := r.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to count anomalies: %w", err)
	}
	defer rows.Close()

	stats := map[string]*AnomalyTypeStats{}
	for _, t := range []string{
		models.AnomalyNoData,
		models.AnomalyLowActivity,
		models.AnomalyIdleSpike,
		models.AnomalyLateStart,
		models.AnomalyEarlyEnd,
		models.AnomalyExtendedIdle,
	} {
		stats[t] = &AnomalyTypeStats{}
	}

	for rows.Next() {
		var anomalyType, severity string
		var resolved bool
		var count int
		if err := rows.Scan(&anomalyType, &severity, &resolved, &count); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly stats: %w", err)
		}

		entry, ok := stats[anomalyType]
		if !ok {
			continue
		}

		entry.Total += count
		if resolved {
			entry.Resolved += count
		} else {
			entry.Unresolved += count
		}

		switch severity {
		case models.SeverityCritical:
			entry.Critical += count
		case models.SeverityHigh:
			entry.High += count
		case models.SeverityMedium:
			entry.Medium += count
		case models.SeverityLow:
			entry.Low += count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomaly stats: %w", err)
	}

	return stats, nil
}
