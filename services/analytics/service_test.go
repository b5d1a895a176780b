package analytics

import (
	"context"
	"testing"
	"time"

	"timeledger/pkg/clock"
	"timeledger/services/task"
	"timeledger/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// 2025-03-12 is a Wednesday.
var testNow = time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	repo   task.Repository
	nextID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &task.Task{})
	return &fixture{
		svc:  NewService(ServiceParams{DB: db, Clock: clock.Fixed(testNow)}),
		repo: task.NewRepository(db),
	}
}

func (f *fixture) seed(t *testing.T, userID int64, day time.Time, name, start, end string, label task.Label) {
	t.Helper()
	s, err := time.Parse("15:04", start)
	require.NoError(t, err)
	e, err := time.Parse("15:04", end)
	require.NoError(t, err)

	f.nextID++
	row := &task.Task{
		ID:             f.nextID,
		UserID:         userID,
		Name:           name,
		StartTime:      task.Reanchor(s, day),
		EndTime:        task.Reanchor(e, day),
		Label:          label,
		RecurrenceType: task.RecurrenceDaily,
	}
	require.NoError(t, row.Validate())
	require.NoError(t, f.repo.Create(context.Background(), row))
}

func TestChartDataSevenDayWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	f.seed(t, 1, monday, "Deep Work", "09:00", "10:00", task.LabelGood)
	f.seed(t, 1, task.DateOf(testNow), "Morning Run", "07:00", "08:00", task.LabelGood)

	result, err := f.svc.ChartData(ctx, 1, "7d")
	require.NoError(t, err)
	require.Len(t, result.Labels, 7)
	require.Len(t, result.Invested, 7)
	require.Len(t, result.Wasted, 7)

	// Window is Thu Mar 6 .. Wed Mar 12; Monday sits at index 4.
	require.Equal(t, "Thu", result.Labels[0])
	require.Equal(t, "Mon", result.Labels[4])
	require.Equal(t, int64(3600), result.Invested[4])
	require.Equal(t, int64(86400-3600), result.Wasted[4])

	// Today is clamped to 18:00.
	require.Equal(t, int64(3600), result.Invested[6])
	require.Equal(t, int64(18*3600-3600), result.Wasted[6])
}

func TestChartDataLongWindowUsesDateLabels(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ChartData(context.Background(), 1, "30d")
	require.NoError(t, err)
	require.Len(t, result.Labels, 30)
	require.Equal(t, "Mar 12", result.Labels[29])
}

func TestLeaderboardTopFiveEachSide(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"}
	for i, name := range names {
		// Durations 6h down to 1h.
		end := 6 + (6 - i)
		f.seed(t, 1, day, name, "06:00", timeHHMM(end), task.LabelGood)
	}
	f.seed(t, 1, day, "Doomscroll", "20:00", "21:00", task.LabelBad)

	result, err := f.svc.Leaderboard(context.Background(), 1, "7d")
	require.NoError(t, err)

	require.Len(t, result.Assets, 5)
	require.Equal(t, "Alpha", result.Assets[0].Name)
	require.Equal(t, int64(6*3600), result.Assets[0].Total)
	for i := 1; i < len(result.Assets); i++ {
		require.GreaterOrEqual(t, result.Assets[i-1].Total, result.Assets[i].Total)
	}

	require.Len(t, result.Liabilities, 1)
	require.Equal(t, "Doomscroll", result.Liabilities[0].Name)
	require.Equal(t, int64(3600), result.Liabilities[0].Total)
}

func TestLeaderboardAggregatesRepeatedNames(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	f.seed(t, 1, day.AddDate(0, 0, -1), "Gym", "18:00", "19:00", task.LabelGood)
	f.seed(t, 1, day, "Gym", "18:00", "19:30", task.LabelGood)

	result, err := f.svc.Leaderboard(context.Background(), 1, "7d")
	require.NoError(t, err)
	require.Len(t, result.Assets, 1)
	require.Equal(t, int64(3600+5400), result.Assets[0].Total)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	f.seed(t, 1, day, "Work", "09:00", "11:00", task.LabelGood)
	f.seed(t, 1, day, "Lunch", "13:00", "14:00", task.LabelNeutral)
	f.seed(t, 1, day, "Doomscroll", "20:00", "20:30", task.LabelBad)
	f.seed(t, 2, day, "Other user", "09:00", "17:00", task.LabelGood)

	result, err := f.svc.Categories(context.Background(), 1, "7d")
	require.NoError(t, err)
	require.Equal(t, int64(7200), result.Good)
	require.Equal(t, int64(3600), result.Neutral)
	require.Equal(t, int64(1800), result.Bad)
}

func TestTimeDistributionBucketsByStartHour(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	f.seed(t, 1, day, "Work", "09:00", "10:30", task.LabelGood)
	f.seed(t, 1, day, "More Work", "09:45", "10:00", task.LabelGood)
	f.seed(t, 1, day, "Dinner", "19:00", "20:00", task.LabelNeutral)

	result, err := f.svc.TimeDistribution(context.Background(), 1, "7d")
	require.NoError(t, err)
	require.Len(t, result.Labels, 24)
	require.Len(t, result.Data, 24)
	require.Equal(t, "09:00", result.Labels[9])

	require.Equal(t, int64(5400+900), result.Data[9])
	require.Equal(t, int64(3600), result.Data[19])
	require.Equal(t, int64(0), result.Data[0])
}

func TestTimeDistributionWrapsLegacyMidnightRows(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	// Pre-validation-era row whose clock reading wraps past midnight.
	f.nextID++
	row := &task.Task{
		ID:             f.nextID,
		UserID:         1,
		Name:           "Night Shift",
		StartTime:      day.Add(23 * time.Hour),
		EndTime:        day.Add(90 * time.Minute),
		Label:          task.LabelGood,
		RecurrenceType: task.RecurrenceDaily,
		DateStamp:      mustDate(day),
	}
	require.NoError(t, f.repo.Create(context.Background(), row))

	result, err := f.svc.TimeDistribution(context.Background(), 1, "7d")
	require.NoError(t, err)
	require.Equal(t, int64(2*3600+30*60), result.Data[23])
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	f.seed(t, 1, day.AddDate(0, 0, -2), "Deep Work", "09:00", "10:00", task.LabelGood)
	f.seed(t, 1, day, "Morning Run", "07:00", "08:00", task.LabelGood)
	f.seed(t, 1, day, "Doomscroll", "20:00", "21:00", task.LabelBad)

	result, err := f.svc.Summary(context.Background(), 1, "7d")
	require.NoError(t, err)

	require.Equal(t, int64(7200), result.TotalInvested)
	require.Equal(t, int64(7*86400-7200), result.TotalWasted)
	require.Equal(t, int64(7200/7), result.AvgDailyInvestment)
	require.Equal(t, 3, result.TotalTasks)

	require.Equal(t, int64(3600), result.TodayInvested)
	require.Equal(t, int64(18*3600-3600), result.TodayWasted)
	require.Equal(t, 2, result.TodayTasks)
}

func TestLifetimeWindowWithNoHistory(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ChartData(context.Background(), 1, "lifetime")
	require.NoError(t, err)
	require.Len(t, result.Labels, 1)
	require.Equal(t, int64(0), result.Invested[0])
}

func TestLifetimeWindowSpansEarliestDate(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	f.seed(t, 1, day.AddDate(0, 0, -9), "Old", "09:00", "10:00", task.LabelGood)

	result, err := f.svc.ChartData(context.Background(), 1, "lifetime")
	require.NoError(t, err)
	require.Len(t, result.Labels, 10)
	require.Equal(t, int64(3600), result.Invested[0])
}

func TestFullOverviewFansOut(t *testing.T) {
	f := newFixture(t)
	day := task.DateOf(testNow)

	f.seed(t, 1, day, "Work", "09:00", "11:00", task.LabelGood)

	overview, err := f.svc.FullOverview(context.Background(), 1, "7d")
	require.NoError(t, err)
	require.Len(t, overview.Chart.Labels, 7)
	require.Equal(t, int64(7200), overview.Categories.Good)
	require.Equal(t, int64(7200), overview.Summary.TotalInvested)
	require.Len(t, overview.Leaderboard.Assets, 1)
	require.Equal(t, int64(7200), overview.Distribution.Data[9])
}

func timeHHMM(hour int) string {
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("15:04")
}

func mustDate(day time.Time) datatypes.Date {
	return datatypes.Date(task.DateOf(day))
}
