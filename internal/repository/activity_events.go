package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// ActivityEventsRepository 活动遥测事件仓库
// 本服务对事件只做范围查询；写入口供采集端与回填脚本使用
type ActivityEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityEventsRepository 创建活动事件仓库
func NewActivityEventsRepository(db *sql.DB, logger *zap.Logger) *ActivityEventsRepository {
	return &ActivityEventsRepository{
		db:     db,
		logger: logger,
	}
}

// QueryEvents 按员工 + 时间范围查询事件（闭区间，按时间升序）
func (r *ActivityEventsRepository) QueryEvents(ctx context.Context, employeeID string, from, to time.Time) ([]models.ActivityEvent, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: to is before from")
	}

	query := `
		SELECT
			event_id,
			employee_id,
			event_timestamp,
			active_window,
			mouse_moves,
			key_presses,
			idle,
			duration_seconds
		FROM activity_events
		WHERE employee_id = $1
		  AND event_timestamp >= $2
		  AND event_timestamp <= $3
		ORDER BY event_timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	events := []models.ActivityEvent{}
	for rows.Next() {
		var ev models.ActivityEvent
		err := rows.Scan(
			&ev.EventID,
			&ev.EmployeeID,
			&ev.Timestamp,
			&ev.ActiveWindow,
			&ev.MouseMoves,
			&ev.KeyPresses,
			&ev.Idle,
			&ev.Duration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity events: %w", err)
	}

	return events, nil
}

// InsertEvent 写入一条活动事件
func (r *ActivityEventsRepository) InsertEvent(ctx context.Context, ev *models.ActivityEvent) error {
	if ev == nil {
		return fmt.Errorf("event is required")
	}
	if ev.EmployeeID == "" {
		return fmt.Errorf("employee_id is required")
	}
	if ev.Duration < 0 {
		return fmt.Errorf("duration must be non-negative")
	}

	query := `
		INSERT INTO activity_events (
			employee_id,
			event_timestamp,
			active_window,
			mouse_moves,
			key_presses,
			idle,
			duration_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING event_id
	`

	err := r.db.QueryRowContext(ctx, query,
		ev.EmployeeID,
		ev.Timestamp,
		ev.ActiveWindow,
		ev.MouseMoves,
		ev.KeyPresses,
		ev.Idle,
		ev.Duration,
	).Scan(&ev.EventID)

	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}

	return nil
}
