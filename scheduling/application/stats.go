package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/contentops/scheduler/pkg/clock"
	"github.com/contentops/scheduler/scheduling/domain"
)

// Statistics is the operational snapshot returned by the stats endpoint.
type Statistics struct {
	ByStatus      map[domain.ScheduleStatus]int64 `json:"by_status"`
	ByContentType map[domain.ContentType]int64    `json:"by_content_type"`
	ByStrategy    map[string]int64                `json:"by_strategy"`

	PendingCount      int64 `json:"pending_count"`
	PublishedToday    int64 `json:"published_today"`
	PublishedThisWeek int64 `json:"published_this_week"`
	OverdueCount      int64 `json:"overdue_count"`
	Upcoming24hCount  int64 `json:"upcoming_24h_count"`
}

// CalendarEvent projects one schedule into a month-view cell.
type CalendarEvent struct {
	ScheduleID    string                `json:"schedule_id"`
	ContentType   domain.ContentType    `json:"content_type"`
	ContentID     string                `json:"content_id"`
	ScheduledTime time.Time             `json:"scheduled_time"`
	EndTime       *time.Time            `json:"end_time,omitempty"`
	Status        domain.ScheduleStatus `json:"status"`
	Color         string                `json:"color"`
}

// statusColors is the fixed status→color mapping of the calendar view.
var statusColors = map[domain.ScheduleStatus]string{
	domain.ScheduleStatusPending:   "#faad14",
	domain.ScheduleStatusPublished: "#52c41a",
	domain.ScheduleStatusFailed:    "#f5222d",
	domain.ScheduleStatusCancelled: "#d9d9d9",
	domain.ScheduleStatusExpired:   "#8c8c8c",
}

// SuggestedTime is one recommended publish hour with its relative score.
type SuggestedTime struct {
	Hour   int     `json:"hour"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Analytics is the 30-day performance report.
type Analytics struct {
	SuccessRate    float64            `json:"success_rate"` // published/(published+failed)
	AvgExecutionMs float64            `json:"avg_execution_ms"`
	PeakHours      []int              `json:"peak_hours"` // top 3 publish hours
	BestStrategy   string             `json:"best_strategy"`
	PublishTrend   [][]int64          `json:"publish_trend"` // 7 days x 6 four-hour buckets
	TrendDays      []string           `json:"trend_days"`    // YYYY-MM-DD, oldest first
	StrategyRatios map[string]float64 `json:"strategy_ratios"`
	PublishedCount int64              `json:"published_count"`
	FailedCount    int64              `json:"failed_count"`
}

// StatsService aggregates store and history data into reports.
type StatsService struct {
	repo domain.ISchedulingRepository
	clk  clock.Clock
}

func NewStatsService(repo domain.ISchedulingRepository, clk clock.Clock) *StatsService {
	return &StatsService{repo: repo, clk: clk}
}

func (s *StatsService) Statistics(ctx context.Context) (Statistics, error) {
	now := s.clk.Now()

	byStatus, err := s.repo.CountSchedulesByStatus(ctx)
	if err != nil {
		return Statistics{}, err
	}
	byType, err := s.repo.CountSchedulesByContentType(ctx)
	if err != nil {
		return Statistics{}, err
	}
	byStrategy, err := s.repo.CountSchedulesByStrategy(ctx)
	if err != nil {
		return Statistics{}, err
	}
	overdue, err := s.repo.CountOverdue(ctx, now)
	if err != nil {
		return Statistics{}, err
	}
	upcoming, err := s.repo.CountUpcoming(ctx, now, 24*time.Hour)
	if err != nil {
		return Statistics{}, err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	publishedToday, err := s.repo.ListPublishedBetween(ctx, startOfDay, now)
	if err != nil {
		return Statistics{}, err
	}
	startOfWeek := startOfDay.AddDate(0, 0, -mondayOffset(startOfDay.Weekday()))
	publishedThisWeek, err := s.repo.ListPublishedBetween(ctx, startOfWeek, now)
	if err != nil {
		return Statistics{}, err
	}

	return Statistics{
		ByStatus:          byStatus,
		ByContentType:     byType,
		ByStrategy:        byStrategy,
		PendingCount:      byStatus[domain.ScheduleStatusPending],
		PublishedToday:    int64(len(publishedToday)),
		PublishedThisWeek: int64(len(publishedThisWeek)),
		OverdueCount:      overdue,
		Upcoming24hCount:  upcoming,
	}, nil
}

func mondayOffset(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}

// Calendar projects the month's schedules to colored events.
func (s *StatsService) Calendar(ctx context.Context, year int, month time.Month) ([]CalendarEvent, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)

	schedules, err := s.repo.ListSchedules(ctx, domain.ScheduleFilter{From: from, Until: until})
	if err != nil {
		return nil, err
	}

	events := make([]CalendarEvent, len(schedules))
	for i, sched := range schedules {
		events[i] = CalendarEvent{
			ScheduleID:    sched.ID,
			ContentType:   sched.ContentType,
			ContentID:     sched.ContentID,
			ScheduledTime: sched.ScheduledTime,
			EndTime:       sched.EndTime,
			Status:        sched.Status,
			Color:         statusColors[sched.Status],
		}
	}
	return events, nil
}

// defaultSuggestions is returned verbatim when a content type has no publish
// history yet.
var defaultSuggestions = []SuggestedTime{
	{Hour: 20, Score: 95.0, Reason: "evening prime time, highest audience activity"},
	{Hour: 12, Score: 90.0, Reason: "lunch break peak"},
	{Hour: 21, Score: 85.0, Reason: "late evening engagement"},
}

// SuggestedTimes returns the top 3 publish hours of the last 30 days for the
// content type, scored relative to the busiest hour.
func (s *StatsService) SuggestedTimes(ctx context.Context, ct domain.ContentType) ([]SuggestedTime, error) {
	now := s.clk.Now()
	published, err := s.repo.ListPublishedBetween(ctx, now.Add(-30*24*time.Hour), now)
	if err != nil {
		return nil, err
	}

	var histogram [24]int
	total := 0
	for _, sched := range published {
		if sched.ContentType != ct || sched.ActualPublishTime == nil {
			continue
		}
		histogram[sched.ActualPublishTime.UTC().Hour()]++
		total++
	}
	if total == 0 {
		out := make([]SuggestedTime, len(defaultSuggestions))
		copy(out, defaultSuggestions)
		return out, nil
	}

	maxCount := 0
	for _, c := range histogram {
		if c > maxCount {
			maxCount = c
		}
	}

	type hourCount struct {
		hour  int
		count int
	}
	ranked := make([]hourCount, 0, 24)
	for h, c := range histogram {
		if c > 0 {
			ranked = append(ranked, hourCount{hour: h, count: c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].hour < ranked[j].hour
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	out := make([]SuggestedTime, len(ranked))
	for i, hc := range ranked {
		out[i] = SuggestedTime{
			Hour:   hc.hour,
			Score:  100.0 * float64(hc.count) / float64(maxCount),
			Reason: hourReason(hc.hour, hc.count),
		}
	}
	return out, nil
}

func hourReason(hour, count int) string {
	var slot string
	switch {
	case hour >= 19 && hour <= 22:
		slot = "evening prime time"
	case hour >= 12 && hour <= 13:
		slot = "lunch break peak"
	case hour >= 7 && hour <= 9:
		slot = "morning commute"
	default:
		slot = "historically strong hour"
	}
	return fmt.Sprintf("%s, %d successful publishes in the last 30 days", slot, count)
}

// AnalyticsReport builds the 30-day performance report.
func (s *StatsService) AnalyticsReport(ctx context.Context) (Analytics, error) {
	now := s.clk.Now()
	since := now.Add(-30 * 24 * time.Hour)

	// Outcome counts for the success rate and per-strategy ratios.
	schedules, err := s.repo.ListSchedules(ctx, domain.ScheduleFilter{From: since})
	if err != nil {
		return Analytics{}, err
	}

	var published, failed int64
	type stratTally struct{ ok, bad int64 }
	strategies := map[string]*stratTally{}
	for _, sched := range schedules {
		tally, exists := strategies[sched.PublishStrategy]
		if !exists {
			tally = &stratTally{}
			strategies[sched.PublishStrategy] = tally
		}
		switch sched.Status {
		case domain.ScheduleStatusPublished, domain.ScheduleStatusExpired:
			published++
			tally.ok++
		case domain.ScheduleStatusFailed:
			failed++
			tally.bad++
		}
	}

	successRate := 0.0
	if published+failed > 0 {
		successRate = float64(published) / float64(published+failed)
	}

	ratios := make(map[string]float64, len(strategies))
	bestStrategy := ""
	bestRatio := -1.0
	for name, tally := range strategies {
		if tally.ok+tally.bad == 0 {
			continue
		}
		ratio := float64(tally.ok) / float64(tally.ok+tally.bad)
		ratios[name] = ratio
		if ratio > bestRatio || (ratio == bestRatio && name < bestStrategy) {
			bestRatio = ratio
			bestStrategy = name
		}
	}

	// Average execution time across successful executions.
	success := true
	histories, err := s.repo.ListHistory(ctx, domain.HistoryFilter{
		Action:  domain.HistoryActionExecuted,
		Success: &success,
		Since:   since,
	})
	if err != nil {
		return Analytics{}, err
	}
	avgMs := 0.0
	if len(histories) > 0 {
		var sum int64
		for _, h := range histories {
			sum += h.ExecutionTimeMs
		}
		avgMs = float64(sum) / float64(len(histories))
	}

	// Peak hours and 7×6 trend grid from actual publish times.
	publishedRows, err := s.repo.ListPublishedBetween(ctx, since, now)
	if err != nil {
		return Analytics{}, err
	}

	var histogram [24]int
	for _, sched := range publishedRows {
		if sched.ActualPublishTime != nil {
			histogram[sched.ActualPublishTime.UTC().Hour()]++
		}
	}
	peaks := topHours(histogram, 3)

	trendStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -6)
	trend := make([][]int64, 7)
	days := make([]string, 7)
	for i := range trend {
		trend[i] = make([]int64, 6)
		days[i] = trendStart.AddDate(0, 0, i).Format("2006-01-02")
	}
	for _, sched := range publishedRows {
		if sched.ActualPublishTime == nil {
			continue
		}
		at := sched.ActualPublishTime.UTC()
		day := int(at.Sub(trendStart).Hours() / 24)
		if day < 0 || day > 6 {
			continue
		}
		trend[day][at.Hour()/4]++
	}

	return Analytics{
		SuccessRate:    successRate,
		AvgExecutionMs: avgMs,
		PeakHours:      peaks,
		BestStrategy:   bestStrategy,
		PublishTrend:   trend,
		TrendDays:      days,
		StrategyRatios: ratios,
		PublishedCount: published,
		FailedCount:    failed,
	}, nil
}

func topHours(histogram [24]int, n int) []int {
	type hourCount struct{ hour, count int }
	ranked := make([]hourCount, 0, 24)
	for h, c := range histogram {
		if c > 0 {
			ranked = append(ranked, hourCount{hour: h, count: c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].hour < ranked[j].hour
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]int, len(ranked))
	for i, hc := range ranked {
		out[i] = hc.hour
	}
	return out
}
