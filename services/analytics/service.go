package analytics

import (
	"context"
	"sort"
	"time"

	"timeledger/pkg/clock"
	"timeledger/pkg/errutil"
	"timeledger/services/ledger"
	"timeledger/services/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Service builds range-bucketed read views over the task store. Reads degrade
// to zeroed results on store failure: the dashboard must not hard-fail on a
// transient aggregation error, so the error travels back alongside the zeroed
// payload instead of replacing it.
type Service struct {
	clock clock.Clock
	repo  task.Repository
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Clock clock.Clock
}

func NewService(p ServiceParams) *Service {
	return &Service{
		clock: p.Clock,
		repo:  task.NewRepository(p.DB),
	}
}

var Module = fx.Module("analytics.service",
	fx.Provide(NewService),
)

type ChartResult struct {
	Labels   []string `json:"labels"`
	Invested []int64  `json:"invested"`
	Wasted   []int64  `json:"wasted"`
}

type LeaderboardEntry struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

type LeaderboardResult struct {
	Assets      []LeaderboardEntry `json:"assets"`
	Liabilities []LeaderboardEntry `json:"liabilities"`
}

type CategoryResult struct {
	Good    int64 `json:"Good"`
	Neutral int64 `json:"Neutral"`
	Bad     int64 `json:"Bad"`
}

type DistributionResult struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

type SummaryResult struct {
	TotalInvested      int64 `json:"total_invested"`
	TotalWasted        int64 `json:"total_wasted"`
	AvgDailyInvestment int64 `json:"avg_daily_investment"`
	TotalTasks         int   `json:"total_tasks"`
	TodayInvested      int64 `json:"today_invested"`
	TodayWasted        int64 `json:"today_wasted"`
	TodayTasks         int   `json:"today_tasks"`
}

type Overview struct {
	Chart        ChartResult        `json:"chart"`
	Leaderboard  LeaderboardResult  `json:"leaderboard"`
	Categories   CategoryResult     `json:"categories"`
	Distribution DistributionResult `json:"distribution"`
	Summary      SummaryResult      `json:"summary"`
}

// rangeDays maps a range selector to its window size; lifetime is resolved
// separately against the user's earliest task date.
func rangeDays(sel string) int {
	switch sel {
	case "1d":
		return 1
	case "30d":
		return 30
	case "365d":
		return 365
	default:
		return 7
	}
}

// window resolves a range selector to [start, end]; end is always today.
func (s *Service) window(ctx context.Context, userID int64, sel string) (start, end time.Time, days int, err error) {
	now := s.clock.Now()
	end = task.DateOf(now)

	if sel == "lifetime" {
		earliest, err := s.repo.EarliestDate(ctx, userID)
		if err != nil {
			return end, end, 1, err
		}
		if earliest == nil {
			// No tasks ever: the window is just today, all zero.
			return end, end, 1, nil
		}
		start = task.DateOf(*earliest)
		days = int(end.Sub(start).Hours()/24) + 1
		return start, end, days, nil
	}

	days = rangeDays(sel)
	start = end.AddDate(0, 0, -(days - 1))
	return start, end, days, nil
}

// ChartData is the per-day invested/wasted series for the window. Today uses
// live elapsed time, past days the full 86400, future days inside the window
// are zeroed.
func (s *Service) ChartData(ctx context.Context, userID int64, sel string) (ChartResult, error) {
	zero := ChartResult{Labels: []string{}, Invested: []int64{}, Wasted: []int64{}}

	start, _, days, err := s.window(ctx, userID, sel)
	if err != nil {
		zap.L().Error("chart-data window resolution failed", zap.Int64("user_id", userID), zap.Error(err))
		return zero, errutil.Internal("failed to resolve analytics window", err)
	}

	now := s.clock.Now()
	tasks, err := s.repo.FindByRange(ctx, userID, start, task.DateOf(now))
	if err != nil {
		zap.L().Error("chart-data query failed", zap.Int64("user_id", userID), zap.Error(err))
		return zero, errutil.Internal("failed to load tasks for chart", err)
	}

	byDay := groupByDay(tasks)

	labelFmt := "Mon"
	if days > 7 {
		labelFmt = "Jan 02"
	}

	result := ChartResult{
		Labels:   make([]string, 0, days),
		Invested: make([]int64, 0, days),
		Wasted:   make([]int64, 0, days),
	}
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		dayLedger := ledger.ForDay(byDay[task.DayKey(day)], day, now)

		result.Labels = append(result.Labels, day.Format(labelFmt))
		result.Invested = append(result.Invested, dayLedger.Invested)
		result.Wasted = append(result.Wasted, dayLedger.Wasted)
	}
	return result, nil
}

// Leaderboard groups the window's intervals by (name, label): Good/Neutral
// totals become assets, Bad totals liabilities, each sorted descending and
// truncated to the top five.
func (s *Service) Leaderboard(ctx context.Context, userID int64, sel string) (LeaderboardResult, error) {
	zero := LeaderboardResult{Assets: []LeaderboardEntry{}, Liabilities: []LeaderboardEntry{}}

	tasks, err := s.windowTasks(ctx, userID, sel)
	if err != nil {
		zap.L().Error("leaderboard query failed", zap.Int64("user_id", userID), zap.Error(err))
		return zero, errutil.Internal("failed to load tasks for leaderboard", err)
	}

	type key struct {
		name  string
		label task.Label
	}
	totals := make(map[key]int64)
	for i := range tasks {
		t := &tasks[i]
		totals[key{t.Name, t.Label}] += t.DurationSeconds()
	}

	assets := make([]LeaderboardEntry, 0)
	liabilities := make([]LeaderboardEntry, 0)
	for k, total := range totals {
		entry := LeaderboardEntry{Name: k.name, Total: total}
		if k.label.Invested() {
			assets = append(assets, entry)
		} else {
			liabilities = append(liabilities, entry)
		}
	}

	sortTop := func(entries []LeaderboardEntry) []LeaderboardEntry {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Total != entries[j].Total {
				return entries[i].Total > entries[j].Total
			}
			return entries[i].Name < entries[j].Name
		})
		if len(entries) > 5 {
			entries = entries[:5]
		}
		return entries
	}

	return LeaderboardResult{
		Assets:      sortTop(assets),
		Liabilities: sortTop(liabilities),
	}, nil
}

// Categories sums durations per label across the window.
func (s *Service) Categories(ctx context.Context, userID int64, sel string) (CategoryResult, error) {
	tasks, err := s.windowTasks(ctx, userID, sel)
	if err != nil {
		zap.L().Error("categories query failed", zap.Int64("user_id", userID), zap.Error(err))
		return CategoryResult{}, errutil.Internal("failed to load tasks for categories", err)
	}

	var result CategoryResult
	for i := range tasks {
		t := &tasks[i]
		switch t.Label {
		case task.LabelGood:
			result.Good += t.DurationSeconds()
		case task.LabelNeutral:
			result.Neutral += t.DurationSeconds()
		case task.LabelBad:
			result.Bad += t.DurationSeconds()
		}
	}
	return result, nil
}

// TimeDistribution buckets the window's intervals into 24 start-hour slots.
// The whole duration lands in the start hour's bucket. Rows that predate the
// midnight-crossing validation rule get a +86400 wrap correction instead of
// being split across the boundary.
func (s *Service) TimeDistribution(ctx context.Context, userID int64, sel string) (DistributionResult, error) {
	labels := make([]string, 24)
	data := make([]int64, 24)
	for i := 0; i < 24; i++ {
		labels[i] = time.Date(0, 1, 1, i, 0, 0, 0, time.UTC).Format("15:00")
	}
	result := DistributionResult{Labels: labels, Data: data}

	tasks, err := s.windowTasks(ctx, userID, sel)
	if err != nil {
		zap.L().Error("time-distribution query failed", zap.Int64("user_id", userID), zap.Error(err))
		return result, errutil.Internal("failed to load tasks for distribution", err)
	}

	for i := range tasks {
		t := &tasks[i]
		duration := task.SecondsIntoDay(t.EndTime) - task.SecondsIntoDay(t.StartTime)
		if duration < 0 {
			duration += ledger.DaySeconds
		}
		result.Data[t.StartTime.Hour()] += duration
	}
	return result, nil
}

// Summary reports window totals plus today's live ledger.
func (s *Service) Summary(ctx context.Context, userID int64, sel string) (SummaryResult, error) {
	start, end, days, err := s.window(ctx, userID, sel)
	if err != nil {
		zap.L().Error("summary window resolution failed", zap.Int64("user_id", userID), zap.Error(err))
		return SummaryResult{}, errutil.Internal("failed to resolve analytics window", err)
	}

	tasks, err := s.repo.FindByRange(ctx, userID, start, end)
	if err != nil {
		zap.L().Error("summary query failed", zap.Int64("user_id", userID), zap.Error(err))
		return SummaryResult{}, errutil.Internal("failed to load tasks for summary", err)
	}

	var totalInvested int64
	for i := range tasks {
		if tasks[i].Label.Invested() {
			totalInvested += tasks[i].DurationSeconds()
		}
	}

	totalPotential := int64(days) * ledger.DaySeconds
	totalWasted := totalPotential - totalInvested
	if totalWasted < 0 {
		totalWasted = 0
	}

	var avgDaily int64
	if days > 0 {
		avgDaily = totalInvested / int64(days)
	}

	now := s.clock.Now()
	today := task.DateOf(now)
	todayTasks := groupByDay(tasks)[task.DayKey(today)]
	todayLedger := ledger.ForDay(todayTasks, today, now)

	return SummaryResult{
		TotalInvested:      totalInvested,
		TotalWasted:        totalWasted,
		AvgDailyInvestment: avgDaily,
		TotalTasks:         len(tasks),
		TodayInvested:      todayLedger.Invested,
		TodayWasted:        todayLedger.Wasted,
		TodayTasks:         len(todayTasks),
	}, nil
}

// FullOverview fans out the four views plus the summary concurrently.
func (s *Service) FullOverview(ctx context.Context, userID int64, sel string) (Overview, error) {
	var overview Overview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overview.Chart, err = s.ChartData(ctx, userID, sel)
		return err
	})
	g.Go(func() (err error) {
		overview.Leaderboard, err = s.Leaderboard(ctx, userID, sel)
		return err
	})
	g.Go(func() (err error) {
		overview.Categories, err = s.Categories(ctx, userID, sel)
		return err
	})
	g.Go(func() (err error) {
		overview.Distribution, err = s.TimeDistribution(ctx, userID, sel)
		return err
	})
	g.Go(func() (err error) {
		overview.Summary, err = s.Summary(ctx, userID, sel)
		return err
	})

	// Degraded sections stay zeroed; the first error still surfaces so
	// callers can tell real zeros from a failed read.
	return overview, g.Wait()
}

func (s *Service) windowTasks(ctx context.Context, userID int64, sel string) ([]task.Task, error) {
	start, end, _, err := s.window(ctx, userID, sel)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByRange(ctx, userID, start, end)
}

func groupByDay(tasks []task.Task) map[string][]task.Task {
	byDay := make(map[string][]task.Task)
	for _, t := range tasks {
		key := task.DayKey(t.Day())
		byDay[key] = append(byDay[key], t)
	}
	return byDay
}
