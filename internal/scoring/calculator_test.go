package scoring

import (
	"testing"
	"time"

	"workpulse-insight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(ts time.Time, mouse, keys int, idle bool, duration int) models.ActivityEvent {
	return models.ActivityEvent{
		EmployeeID: "emp-001",
		Timestamp:  ts,
		MouseMoves: mouse,
		KeyPresses: keys,
		Idle:       idle,
		Duration:   duration,
	}
}

func TestSummarize_FullyActiveDay(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 8 小时全活跃，输入 1000 次（期望 8*120=960，占满活动分）
	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 300, 200, false, 4*3600),
		makeEvent(date.Add(13*time.Hour), 200, 300, false, 4*3600),
	}

	summary := calc.Summarize("emp-001", date, events)

	assert.Equal(t, 8*3600, summary.ActiveTime)
	assert.Equal(t, 0, summary.IdleTime)
	assert.Equal(t, 8*3600, summary.TotalTime)
	assert.Equal(t, 100, summary.Score)
	assert.Equal(t, 70, summary.TimeRatioScore)
	assert.Equal(t, 30, summary.ActivityScore)
	assert.Equal(t, models.CategoryExcellent, summary.Category)

	require.NotNil(t, summary.WorkHoursStart)
	assert.Equal(t, 9, *summary.WorkHoursStart)
	require.NotNil(t, summary.WorkHoursEnd)
	assert.Equal(t, 13, *summary.WorkHoursEnd)
}

func TestSummarize_EmptyDay(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	summary := calc.Summarize("emp-001", date, nil)

	assert.Equal(t, 0, summary.Score)
	assert.Equal(t, 0, summary.TotalTime)
	assert.Equal(t, 0, summary.TotalEvents)
	assert.Equal(t, models.CategoryInactive, summary.Category)
	assert.Nil(t, summary.WorkHoursStart)
	assert.Nil(t, summary.WorkHoursEnd)
	assert.Nil(t, summary.PeakHour)
}

func TestSummarize_HalfIdleDay(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 4h 活跃 + 4h 空闲，输入 960（期望 8*120=960）
	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 500, 460, false, 4*3600),
		makeEvent(date.Add(13*time.Hour), 0, 0, true, 4*3600),
	}

	summary := calc.Summarize("emp-001", date, events)

	// 时间占比 0.5*70=35，活动 960/960*30=30 → 65
	assert.Equal(t, 65, summary.Score)
	assert.Equal(t, 35, summary.TimeRatioScore)
	assert.Equal(t, 30, summary.ActivityScore)
	assert.Equal(t, models.CategoryGood, summary.Category)
	assert.Equal(t, 4*3600, summary.ActiveTime)
	assert.Equal(t, 4*3600, summary.IdleTime)
	assert.Equal(t, 8*3600, summary.TotalTime)
}

func TestSummarize_TimeInvariant(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 10, 10, false, 1234),
		makeEvent(date.Add(10*time.Hour), 0, 0, true, 567),
		makeEvent(date.Add(11*time.Hour), 5, 8, false, 890),
	}

	summary := calc.Summarize("emp-001", date, events)

	assert.Equal(t, summary.TotalTime, summary.ActiveTime+summary.IdleTime)
	assert.Equal(t, 3, summary.TotalEvents)
	assert.Equal(t, 15, summary.TotalMouseMoves)
	assert.Equal(t, 18, summary.TotalKeyPresses)
}

func TestSummarize_ScoreCappedAt100(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 输入远超期望：活动分封顶 30
	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 50000, 50000, false, 3600),
	}

	summary := calc.Summarize("emp-001", date, events)

	assert.Equal(t, 100, summary.Score)
	assert.Equal(t, 30, summary.ActivityScore)
}

func TestSummarize_CategoryBands(t *testing.T) {
	tests := []struct {
		score    int
		category string
	}{
		{100, models.CategoryExcellent},
		{80, models.CategoryExcellent},
		{79, models.CategoryGood},
		{60, models.CategoryGood},
		{59, models.CategoryNeedsImprovement},
		{40, models.CategoryNeedsImprovement},
		{39, models.CategoryInactive},
		{0, models.CategoryInactive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.category, models.CategoryFor(tt.score), "score %d", tt.score)
	}
}

func TestSummarize_PeakHour(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 10, 10, false, 600),
		makeEvent(date.Add(10*time.Hour), 200, 300, false, 3000),
		makeEvent(date.Add(11*time.Hour), 20, 20, false, 600),
	}

	summary := calc.Summarize("emp-001", date, events)

	require.NotNil(t, summary.PeakHour)
	assert.Equal(t, 10, *summary.PeakHour)
}

func TestSummarize_PeakHourTieKeepsEarlier(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 两个小时权重相同，保留先出现的
	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 100, 100, false, 1000),
		makeEvent(date.Add(14*time.Hour), 100, 100, false, 1000),
	}

	summary := calc.Summarize("emp-001", date, events)

	require.NotNil(t, summary.PeakHour)
	assert.Equal(t, 9, *summary.PeakHour)
}

func TestSummarize_HoursFollowLocation(t *testing.T) {
	colombo, err := time.LoadLocation("Asia/Colombo")
	require.NoError(t, err)
	calc := NewCalculator(120, colombo)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, colombo)

	// 事件以 UTC 存储，小时字段应换算到分析时区（UTC+5:30）
	utcTS := time.Date(2026, 8, 28, 3, 30, 0, 0, time.UTC) // 09:00 Colombo
	events := []models.ActivityEvent{
		makeEvent(utcTS, 10, 10, false, 600),
	}

	summary := calc.Summarize("emp-001", date, events)

	require.NotNil(t, summary.WorkHoursStart)
	assert.Equal(t, 9, *summary.WorkHoursStart)
}

func TestSummarize_IdleOnlyDay(t *testing.T) {
	calc := NewCalculator(120, time.UTC)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	events := []models.ActivityEvent{
		makeEvent(date.Add(9*time.Hour), 0, 0, true, 4*3600),
	}

	summary := calc.Summarize("emp-001", date, events)

	assert.Equal(t, 0, summary.Score)
	assert.Equal(t, models.CategoryInactive, summary.Category)
	assert.Equal(t, 4*3600, summary.IdleTime)
	assert.Equal(t, 0, summary.ActiveTime)
}
