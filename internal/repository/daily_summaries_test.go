package repository

import (
	"context"
	"testing"
	"time"

	"workpulse-insight/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func summaryTestColumns() []string {
	return []string{
		"employee_id", "summary_date", "active_time", "idle_time", "total_time",
		"total_mouse_moves", "total_key_presses", "total_events",
		"score", "time_ratio_score", "activity_score", "category",
		"work_hours_start", "work_hours_end", "peak_hour",
		"created_at", "updated_at",
	}
}

func TestGetSummary_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows(summaryTestColumns()).
		AddRow("emp-001", date, 25200, 3600, 28800, 4000, 6000, 96,
			85, 61, 24, models.CategoryExcellent, 9, 17, 10, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("emp-001", "2026-08-28").
		WillReturnRows(rows)

	summary, err := repo.GetSummary(context.Background(), "emp-001", date)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 25200, summary.ActiveTime)
	assert.Equal(t, 28800, summary.TotalTime)
	assert.Equal(t, 85, summary.Score)
	assert.Equal(t, models.CategoryExcellent, summary.Category)
	require.NotNil(t, summary.WorkHoursStart)
	assert.Equal(t, 9, *summary.WorkHoursStart)
	require.NotNil(t, summary.PeakHour)
	assert.Equal(t, 10, *summary.PeakHour)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSummary_NotFoundReturnsNil(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT`).
		WithArgs("emp-001", "2026-08-28").
		WillReturnRows(sqlmock.NewRows(summaryTestColumns()))

	summary, err := repo.GetSummary(context.Background(), "emp-001", date)

	require.NoError(t, err)
	assert.Nil(t, summary)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSummary_NullHours(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	// 无活动日：小时字段为 NULL
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows(summaryTestColumns()).
		AddRow("emp-001", date, 0, 0, 0, 0, 0, 0,
			0, 0, 0, models.CategoryInactive, nil, nil, nil, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("emp-001", "2026-08-28").
		WillReturnRows(rows)

	summary, err := repo.GetSummary(context.Background(), "emp-001", date)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Nil(t, summary.WorkHoursStart)
	assert.Nil(t, summary.WorkHoursEnd)
	assert.Nil(t, summary.PeakHour)
	assert.Equal(t, models.CategoryInactive, summary.Category)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSummariesInRange_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	from := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows(summaryTestColumns()).
		AddRow("emp-001", from, 20000, 2000, 22000, 3000, 4500, 80,
			78, 55, 23, models.CategoryGood, 9, 17, 11, now, now).
		AddRow("emp-001", from.AddDate(0, 0, 1), 21000, 1500, 22500, 3200, 4800, 82,
			81, 57, 24, models.CategoryExcellent, 9, 18, 14, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("emp-001", "2026-08-21", "2026-08-27").
		WillReturnRows(rows)

	summaries, err := repo.ListSummariesInRange(context.Background(), "emp-001", from, to)

	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, 78, summaries[0].Score)
	assert.Equal(t, 81, summaries[1].Score)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSummariesInRange_InvalidRange(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	from := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	summaries, err := repo.ListSummariesInRange(context.Background(), "emp-001", from, to)

	assert.Nil(t, summaries)
	assert.Error(t, err)
}

func TestUpsertSummary_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	startHour, endHour, peakHour := 9, 17, 10
	summary := &models.DailySummary{
		EmployeeID:      "emp-001",
		Date:            time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		ActiveTime:      25200,
		IdleTime:        3600,
		TotalTime:       28800,
		TotalMouseMoves: 4000,
		TotalKeyPresses: 6000,
		TotalEvents:     96,
		Score:           85,
		TimeRatioScore:  61,
		ActivityScore:   24,
		Category:        models.CategoryExcellent,
		WorkHoursStart:  &startHour,
		WorkHoursEnd:    &endHour,
		PeakHour:        &peakHour,
	}

	mock.ExpectExec(`INSERT INTO daily_summaries`).
		WithArgs("emp-001", "2026-08-28", 25200, 3600, 28800, 4000, 6000, 96,
			85, 61, 24, models.CategoryExcellent, 9, 17, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertSummary(context.Background(), summary)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSummary_NilHours(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	summary := &models.DailySummary{
		EmployeeID: "emp-001",
		Date:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Category:   models.CategoryInactive,
	}

	mock.ExpectExec(`INSERT INTO daily_summaries`).
		WithArgs("emp-001", "2026-08-28", 0, 0, 0, 0, 0, 0,
			0, 0, 0, models.CategoryInactive, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertSummary(context.Background(), summary)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSummary_TimeInvariantViolation(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()
	repo := NewDailySummariesRepository(db, zap.NewNop())

	// total_time != active_time + idle_time
	summary := &models.DailySummary{
		EmployeeID: "emp-001",
		Date:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		ActiveTime: 100,
		IdleTime:   50,
		TotalTime:  200,
		Category:   models.CategoryInactive,
	}

	err := repo.UpsertSummary(context.Background(), summary)
	assert.Error(t, err)
}
