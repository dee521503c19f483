package scoring

import (
	"math"
	"time"

	"workpulse-insight/internal/models"
)

// 评分权重：时间占比 70 分 + 活动频率 30 分
const (
	timeRatioWeight = 70.0
	activityWeight  = 30.0
)

// Calculator 每日生产力评分计算器
// 纯函数：同一天的同一组事件永远得到同一份汇总
type Calculator struct {
	eventsPerHour int            // 每小时期望的鼠标+键盘事件数
	location      *time.Location // 小时字段按此时区取值
}

// NewCalculator 创建评分计算器
func NewCalculator(eventsPerHour int, location *time.Location) *Calculator {
	if eventsPerHour <= 0 {
		eventsPerHour = 120
	}
	if location == nil {
		location = time.Local
	}
	return &Calculator{
		eventsPerHour: eventsPerHour,
		location:      location,
	}
}

// Summarize 由某员工某天的全部事件（已按时间升序）计算每日汇总
func (c *Calculator) Summarize(employeeID string, date time.Time, events []models.ActivityEvent) *models.DailySummary {
	summary := &models.DailySummary{
		EmployeeID: employeeID,
		Date:       date,
		Category:   models.CategoryInactive,
	}

	if len(events) == 0 {
		return summary
	}

	// 时间指标
	for _, ev := range events {
		if ev.Idle {
			summary.IdleTime += ev.Duration
		} else {
			summary.ActiveTime += ev.Duration
		}
		summary.TotalMouseMoves += ev.MouseMoves
		summary.TotalKeyPresses += ev.KeyPresses
	}
	summary.TotalTime = summary.ActiveTime + summary.IdleTime
	summary.TotalEvents = len(events)

	// 1. 时间占比分（70 分权重）
	timeRatioScore := 0.0
	if summary.TotalTime > 0 {
		ratio := float64(summary.ActiveTime) / float64(summary.TotalTime)
		timeRatioScore = math.Min(ratio*timeRatioWeight, timeRatioWeight)
	}

	// 2. 活动频率分（30 分权重）：实际事件数对比每小时期望事件数
	totalInputs := summary.TotalMouseMoves + summary.TotalKeyPresses
	hoursLogged := float64(summary.TotalTime) / 3600.0
	expectedInputs := hoursLogged * float64(c.eventsPerHour)
	activityScore := 0.0
	if expectedInputs > 0 {
		activityScore = math.Min(float64(totalInputs)/expectedInputs, 1.0) * activityWeight
	}

	summary.Score = int(math.Round(timeRatioScore + activityScore))
	summary.TimeRatioScore = int(math.Round(timeRatioScore))
	summary.ActivityScore = int(math.Round(activityScore))
	summary.Category = models.CategoryFor(summary.Score)

	// 工时洞察
	startHour := events[0].Timestamp.In(c.location).Hour()
	endHour := events[len(events)-1].Timestamp.In(c.location).Hour()
	summary.WorkHoursStart = &startHour
	summary.WorkHoursEnd = &endHour
	summary.PeakHour = c.peakHour(events)

	return summary
}

// peakHour 活动最集中的小时：按 事件输入数 + 活跃秒数/10 加权，
// 并列时保留按时间顺序先出现的小时
func (c *Calculator) peakHour(events []models.ActivityEvent) *int {
	type hourActivity struct {
		inputs     int
		activeSecs int
	}

	byHour := map[int]*hourActivity{}
	order := []int{}
	for _, ev := range events {
		hour := ev.Timestamp.In(c.location).Hour()
		entry, ok := byHour[hour]
		if !ok {
			entry = &hourActivity{}
			byHour[hour] = entry
			order = append(order, hour)
		}
		entry.inputs += ev.MouseMoves + ev.KeyPresses
		if !ev.Idle {
			entry.activeSecs += ev.Duration
		}
	}

	var peak *int
	maxWeight := math.Inf(-1)
	for _, hour := range order {
		entry := byHour[hour]
		weight := float64(entry.inputs) + float64(entry.activeSecs)/10.0
		if weight > maxWeight {
			maxWeight = weight
			h := hour
			peak = &h
		}
	}

	return peak
}
