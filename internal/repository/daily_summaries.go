package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// DailySummariesRepository 每日汇总仓库
// upsert 以 (employee_id, summary_date) 为键，重算覆盖全部指标字段
type DailySummariesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDailySummariesRepository 创建每日汇总仓库
func NewDailySummariesRepository(db *sql.DB, logger *zap.Logger) *DailySummariesRepository {
	return &DailySummariesRepository{
		db:     db,
		logger: logger,
	}
}

const summaryColumns = `
	employee_id,
	summary_date,
	active_time,
	idle_time,
	total_time,
	total_mouse_moves,
	total_key_presses,
	total_events,
	score,
	time_ratio_score,
	activity_score,
	category,
	work_hours_start,
	work_hours_end,
	peak_hour,
	created_at,
	updated_at
`

// scanSummary 扫描一行汇总（处理可空的小时字段）
func scanSummary(row interface{ Scan(...interface{}) error }) (*models.DailySummary, error) {
	var s models.DailySummary
	var startHour, endHour, peakHour sql.NullInt64

	err := row.Scan(
		&s.EmployeeID,
		&s.Date,
		&s.ActiveTime,
		&s.IdleTime,
		&s.TotalTime,
		&s.TotalMouseMoves,
		&s.TotalKeyPresses,
		&s.TotalEvents,
		&s.Score,
		&s.TimeRatioScore,
		&s.ActivityScore,
		&s.Category,
		&startHour,
		&endHour,
		&peakHour,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startHour.Valid {
		h := int(startHour.Int64)
		s.WorkHoursStart = &h
	}
	if endHour.Valid {
		h := int(endHour.Int64)
		s.WorkHoursEnd = &h
	}
	if peakHour.Valid {
		h := int(peakHour.Int64)
		s.PeakHour = &h
	}

	return &s, nil
}

// GetSummary 获取某员工某天的汇总，不存在返回 nil
func (r *DailySummariesRepository) GetSummary(ctx context.Context, employeeID string, date time.Time) (*models.DailySummary, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM daily_summaries
		WHERE employee_id = $1
		  AND summary_date = $2
	`, summaryColumns)

	summary, err := scanSummary(r.db.QueryRowContext(ctx, query, employeeID, date.Format("2006-01-02")))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 当天没有汇总
		}
		return nil, fmt.Errorf("failed to get daily summary: %w", err)
	}

	return summary, nil
}

// ListSummariesInRange 按日期闭区间列出某员工的汇总（按日期升序）
func (r *DailySummariesRepository) ListSummariesInRange(ctx context.Context, employeeID string, from, to time.Time) ([]*models.DailySummary, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: to is before from")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM daily_summaries
		WHERE employee_id = $1
		  AND summary_date >= $2
		  AND summary_date <= $3
		ORDER BY summary_date ASC
	`, summaryColumns)

	rows, err := r.db.QueryContext(ctx, query, employeeID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summaries: %w", err)
	}
	defer rows.Close()

	summaries := []*models.DailySummary{}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily summaries: %w", err)
	}

	return summaries, nil
}

// UpsertSummary 写入或覆盖某员工某天的汇总
// 冲突时覆盖全部指标字段并刷新 updated_at（评分重算是幂等的）
func (r *DailySummariesRepository) UpsertSummary(ctx context.Context, summary *models.DailySummary) error {
	if summary == nil {
		return fmt.Errorf("summary is required")
	}
	if summary.EmployeeID == "" {
		return fmt.Errorf("employee_id is required")
	}
	if summary.TotalTime != summary.ActiveTime+summary.IdleTime {
		return fmt.Errorf("invalid summary: total_time must equal active_time + idle_time")
	}

	query := `
		INSERT INTO daily_summaries (
			employee_id,
			summary_date,
			active_time,
			idle_time,
			total_time,
			total_mouse_moves,
			total_key_presses,
			total_events,
			score,
			time_ratio_score,
			activity_score,
			category,
			work_hours_start,
			work_hours_end,
			peak_hour,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		)
		ON CONFLICT (employee_id, summary_date) DO UPDATE SET
			active_time = EXCLUDED.active_time,
			idle_time = EXCLUDED.idle_time,
			total_time = EXCLUDED.total_time,
			total_mouse_moves = EXCLUDED.total_mouse_moves,
			total_key_presses = EXCLUDED.total_key_presses,
			total_events = EXCLUDED.total_events,
			score = EXCLUDED.score,
			time_ratio_score = EXCLUDED.time_ratio_score,
			activity_score = EXCLUDED.activity_score,
			category = EXCLUDED.category,
			work_hours_start = EXCLUDED.work_hours_start,
			work_hours_end = EXCLUDED.work_hours_end,
			peak_hour = EXCLUDED.peak_hour,
			updated_at = CURRENT_TIMESTAMP
	`

	var startHour, endHour, peakHour interface{}
	if summary.WorkHoursStart != nil {
		startHour = *summary.WorkHoursStart
	}
	if summary.WorkHoursEnd != nil {
		endHour = *summary.WorkHoursEnd
	}
	if summary.PeakHour != nil {
		peakHour = *summary.PeakHour
	}

	_, err := r.db.ExecContext(ctx, query,
		summary.EmployeeID,
		summary.Date.Format("2006-01-02"),
		summary.ActiveTime,
		summary.IdleTime,
		summary.TotalTime,
		summary.TotalMouseMoves,
		summary.TotalKeyPresses,
		summary.TotalEvents,
		summary.Score,
		summary.TimeRatioScore,
		summary.ActivityScore,
		summary.Category,
		startHour,
		endHour,
		peakHour,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}

	return nil
}
