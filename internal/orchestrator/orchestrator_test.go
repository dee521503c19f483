package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"workpulse-insight/internal/alerter"
	"workpulse-insight/internal/models"
	"workpulse-insight/internal/scoring"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================
// 测试替身
// ============================================

type fakeEmployeeLister struct {
	employees []*models.Employee
	err       error
}

func (f *fakeEmployeeLister) ListActiveEmployees(ctx context.Context) ([]*models.Employee, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.employees, nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string][]models.ActivityEvent
	errFor map[string]error
}

func (f *fakeEventStore) QueryEvents(ctx context.Context, employeeID string, from, to time.Time) ([]models.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[employeeID]; ok {
		return nil, err
	}
	return f.events[employeeID], nil
}

type fakeSummaryStore struct {
	mu       sync.Mutex
	upserted []*models.DailySummary
	errFor   map[string]error
}

func (f *fakeSummaryStore) UpsertSummary(ctx context.Context, summary *models.DailySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[summary.EmployeeID]; ok {
		return err
	}
	f.upserted = append(f.upserted, summary)
	return nil
}

type fakeDetector struct {
	mu        sync.Mutex
	anomalies map[string][]*models.Anomaly
	errFor    map[string]error
	calls     []string
}

func (f *fakeDetector) Detect(ctx context.Context, employeeID string, date time.Time) ([]*models.Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, employeeID)
	if err, ok := f.errFor[employeeID]; ok {
		return nil, err
	}
	return f.anomalies[employeeID], nil
}

type fakeAlertSender struct {
	mu          sync.Mutex
	batch       *alerter.BatchResult
	err         error
	calls       int
	minSeverity string
}

func (f *fakeAlertSender) SendAlertsForUnresolved(ctx context.Context, minSeverity string) (*alerter.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.minSeverity = minSeverity
	if f.err != nil {
		return nil, f.err
	}
	if f.batch != nil {
		return f.batch, nil
	}
	return &alerter.BatchResult{}, nil
}

// ============================================
// 固定数据
// ============================================

var runDate = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func testEmployees(ids ...string) []*models.Employee {
	employees := make([]*models.Employee, 0, len(ids))
	for _, id := range ids {
		employees = append(employees, &models.Employee{EmployeeID: id, Name: id, IsActive: true})
	}
	return employees
}

func activeEventsFor(day time.Time) []models.ActivityEvent {
	return []models.ActivityEvent{
		{Timestamp: day.Add(9 * time.Hour), MouseMoves: 100, KeyPresses: 200, Duration: 3600},
	}
}

type testFixtures struct {
	employees *fakeEmployeeLister
	events    *fakeEventStore
	summaries *fakeSummaryStore
	detector  *fakeDetector
	alerts    *fakeAlertSender
}

func newTestOrchestrator(fx *testFixtures, lock *RunLock) *Orchestrator {
	return NewOrchestrator(
		fx.employees,
		fx.events,
		fx.summaries,
		scoring.NewCalculator(120, time.UTC),
		fx.detector,
		fx.alerts,
		nil, // 缓存刷新在专门的用例里测
		lock,
		Options{Concurrency: 2, AlertMinSeverity: models.SeverityMedium},
		time.UTC,
		zap.NewNop(),
	)
}

func defaultFixtures(ids ...string) *testFixtures {
	events := map[string][]models.ActivityEvent{}
	for _, id := range ids {
		events[id] = activeEventsFor(runDate)
	}
	return &testFixtures{
		employees: &fakeEmployeeLister{employees: testEmployees(ids...)},
		events:    &fakeEventStore{events: events, errFor: map[string]error{}},
		summaries: &fakeSummaryStore{errFor: map[string]error{}},
		detector:  &fakeDetector{anomalies: map[string][]*models.Anomaly{}, errFor: map[string]error{}},
		alerts:    &fakeAlertSender{},
	}
}

// ============================================
// 每日运行
// ============================================

func TestRunDailyAnalysis_AllPhasesSucceed(t *testing.T) {
	fx := defaultFixtures("emp-001", "emp-002")
	fx.detector.anomalies["emp-001"] = []*models.Anomaly{
		{AnomalyID: "a-1", EmployeeID: "emp-001", Type: models.AnomalyLowActivity, Severity: models.SeverityHigh},
	}
	fx.alerts.batch = &alerter.BatchResult{TotalSent: 1}

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.TotalEmployees)
	assert.Len(t, report.Scoring.Succeeded, 2)
	assert.Empty(t, report.Scoring.Failed)
	assert.Len(t, report.Detection.Succeeded, 2)
	assert.Equal(t, 1, report.TotalAnomalies)
	assert.Equal(t, 1, report.Alerts.Sent)
	assert.Equal(t, 1, fx.alerts.calls)
	assert.Equal(t, models.SeverityMedium, fx.alerts.minSeverity)

	// 每位员工都落了汇总
	assert.Len(t, fx.summaries.upserted, 2)
	assert.True(t, report.Duration >= 0)
}

func TestRunDailyAnalysis_WorkerFailureDoesNotAbortRun(t *testing.T) {
	fx := defaultFixtures("emp-001", "emp-002", "emp-003")
	fx.events.errFor["emp-002"] = fmt.Errorf("query timeout")

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	require.NoError(t, err)
	// 失败的员工记入清单，其余照常处理
	assert.Len(t, report.Scoring.Succeeded, 2)
	require.Len(t, report.Scoring.Failed, 1)
	assert.Equal(t, "emp-002", report.Scoring.Failed[0].EmployeeID)
	assert.Contains(t, report.Scoring.Failed[0].Error, "query timeout")

	// 评分失败不阻断该员工的检测阶段
	assert.Len(t, fx.detector.calls, 3)
}

func TestRunDailyAnalysis_DetectionFailureRecorded(t *testing.T) {
	fx := defaultFixtures("emp-001", "emp-002")
	fx.detector.errFor["emp-001"] = fmt.Errorf("baseline query failed")

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	require.NoError(t, err)
	assert.Len(t, report.Detection.Succeeded, 1)
	require.Len(t, report.Detection.Failed, 1)
	assert.Equal(t, "emp-001", report.Detection.Failed[0].EmployeeID)
}

func TestRunDailyAnalysis_ListEmployeesErrorIsFatal(t *testing.T) {
	fx := defaultFixtures()
	fx.employees.err = fmt.Errorf("connection refused")

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	assert.Nil(t, report)
	assert.Error(t, err)
}

func TestRunDailyAnalysis_AlertPhaseSkippedWithoutAnomalies(t *testing.T) {
	fx := defaultFixtures("emp-001")

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalAnomalies)
	assert.Equal(t, 0, fx.alerts.calls)
}

func TestRunDailyAnalysis_AlertPhaseErrorRecordedNotFatal(t *testing.T) {
	fx := defaultFixtures("emp-001")
	fx.detector.anomalies["emp-001"] = []*models.Anomaly{
		{AnomalyID: "a-1", EmployeeID: "emp-001", Type: models.AnomalyNoData, Severity: models.SeverityCritical},
	}
	fx.alerts.err = fmt.Errorf("all channels down")

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Alerts.Failed)
	assert.Equal(t, 0, report.Alerts.Sent)
}

func TestRunDailyAnalysis_EmptyDayProducesInactiveSummary(t *testing.T) {
	fx := defaultFixtures("emp-001")
	fx.events.events["emp-001"] = nil

	o := newTestOrchestrator(fx, nil)
	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	require.NoError(t, err)
	assert.Len(t, report.Scoring.Succeeded, 1)
	require.Len(t, fx.summaries.upserted, 1)
	assert.Equal(t, 0, fx.summaries.upserted[0].Score)
	assert.Equal(t, models.CategoryInactive, fx.summaries.upserted[0].Category)
}

func TestRunDailyAnalysis_NormalizesTargetDate(t *testing.T) {
	fx := defaultFixtures("emp-001")

	o := newTestOrchestrator(fx, nil)
	// 带时分秒的输入归一化到当天零点
	report, err := o.RunDailyAnalysis(context.Background(), runDate.Add(13*time.Hour+45*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, runDate, report.TargetDate)
}

// ============================================
// 运行锁
// ============================================

func TestRunDailyAnalysis_LockPreventsConcurrentRun(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewRunLock(client, time.Hour, zap.NewNop())

	// 另一次运行已持有当天的锁
	acquired, err := lock.Acquire(context.Background(), runDate, "other-run")
	require.NoError(t, err)
	require.True(t, acquired)

	fx := defaultFixtures("emp-001")
	o := newTestOrchestrator(fx, lock)

	report, err := o.RunDailyAnalysis(context.Background(), runDate)

	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrRunInProgress))
}

func TestRunDailyAnalysis_ReleasesLockAfterRun(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewRunLock(client, time.Hour, zap.NewNop())

	fx := defaultFixtures("emp-001")
	o := newTestOrchestrator(fx, lock)

	_, err = o.RunDailyAnalysis(context.Background(), runDate)
	require.NoError(t, err)

	// 运行结束后锁已释放，可立即重跑
	_, err = o.RunDailyAnalysis(context.Background(), runDate)
	require.NoError(t, err)
}

// ============================================
// 区间重算
// ============================================

func TestRecalculateRange_ScoresEachDay(t *testing.T) {
	fx := defaultFixtures("emp-001", "emp-002")

	o := newTestOrchestrator(fx, nil)
	results, err := o.RecalculateRange(context.Background(), runDate.AddDate(0, 0, -2), runDate)

	require.NoError(t, err)
	assert.Len(t, results, 3)
	for day, phase := range results {
		assert.Len(t, phase.Succeeded, 2, "day %s", day)
		assert.Empty(t, phase.Failed, "day %s", day)
	}
	// 2 员工 × 3 天
	assert.Len(t, fx.summaries.upserted, 6)
	// 重算不触发检测
	assert.Empty(t, fx.detector.calls)
}

func TestRecalculateRange_InvalidRange(t *testing.T) {
	fx := defaultFixtures("emp-001")

	o := newTestOrchestrator(fx, nil)
	results, err := o.RecalculateRange(context.Background(), runDate, runDate.AddDate(0, 0, -1))

	assert.Nil(t, results)
	assert.Error(t, err)
}
