package ledger

import (
	"testing"
	"time"

	"timeledger/services/task"

	"github.com/stretchr/testify/require"
)

func interval(day time.Time, start, end string, label task.Label) task.Task {
	s, err := time.Parse("15:04", start)
	if err != nil {
		panic(err)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		panic(err)
	}
	return task.Task{
		StartTime: task.Reanchor(s, day),
		EndTime:   task.Reanchor(e, day),
		Label:     label,
	}
}

func TestForDayPastDayFullyElapsed(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)

	tasks := []task.Task{
		interval(day, "09:00", "10:00", task.LabelGood),
		interval(day, "13:00", "14:30", task.LabelNeutral),
	}

	l := ForDay(tasks, day, now)
	require.Equal(t, int64(3600+5400), l.Invested)
	require.Equal(t, DaySeconds-3600-5400, l.Wasted)
	require.Equal(t, int64(0), l.Remaining)
	require.Equal(t, DaySeconds, l.Elapsed)
}

func TestForDayBadTimeCountsAsWasted(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	tasks := []task.Task{
		interval(day, "01:00", "02:00", task.LabelBad),
	}

	// A Bad hour is indistinguishable from an untracked hour: the whole past
	// day counts as wasted.
	l := ForDay(tasks, day, now)
	require.Equal(t, int64(0), l.Invested)
	require.Equal(t, DaySeconds, l.Wasted)
	require.Equal(t, int64(0), l.Remaining)
}

func TestForDayTodayClampsToNow(t *testing.T) {
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

	tasks := []task.Task{
		interval(day, "07:00", "08:00", task.LabelGood),
	}

	l := ForDay(tasks, day, now)
	require.Equal(t, int64(3600), l.Invested)
	require.Equal(t, int64(43200-3600), l.Wasted)
	require.Equal(t, int64(43200), l.Remaining)
	require.Equal(t, int64(43200), l.Elapsed)
}

func TestForDayFutureDayIsAllRemaining(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

	tasks := []task.Task{
		interval(day, "09:00", "10:00", task.LabelGood),
	}

	// Scheduled-ahead intervals count as invested even though nothing has
	// elapsed; wasted can never go negative.
	l := ForDay(tasks, day, now)
	require.Equal(t, int64(3600), l.Invested)
	require.Equal(t, int64(0), l.Wasted)
	require.Equal(t, DaySeconds, l.Remaining)
	require.Equal(t, int64(0), l.Elapsed)
}

func TestForDayEmptyDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	l := ForDay(nil, day, now)
	require.Equal(t, int64(0), l.Invested)
	require.Equal(t, DaySeconds, l.Wasted)
	require.Equal(t, int64(0), l.Remaining)
}

func TestForDayOverInvestedClampsWasted(t *testing.T) {
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 1, 0, 0, 0, time.UTC)

	// More invested than elapsed: an hour in, the day already holds eight
	// hours of planned sleep.
	tasks := []task.Task{
		interval(day, "00:00", "08:00", task.LabelGood),
	}

	l := ForDay(tasks, day, now)
	require.Equal(t, int64(28800), l.Invested)
	require.Equal(t, int64(0), l.Wasted)
	require.Equal(t, DaySeconds-3600, l.Remaining)
}
