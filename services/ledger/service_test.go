package ledger

import (
	"context"
	"testing"
	"time"

	"timeledger/pkg/clock"
	"timeledger/services/routine"
	"timeledger/services/task"
	"timeledger/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newStatsService(t *testing.T, now time.Time) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &task.Task{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fixed := clock.Fixed(now)
	m := routine.NewMaterializer(routine.MaterializerParams{
		DB:    db,
		Node:  node,
		Clock: fixed,
	})
	return NewService(ServiceParams{
		DB:           db,
		Clock:        fixed,
		Materializer: m,
	})
}

func TestStatsFirstVisitSeedsAndReconciles(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)
	s := newStatsService(t, now)

	stats, err := s.Stats(context.Background(), 1)
	require.NoError(t, err)

	// The starter routines: Sleep 8h Good plus three Neutral meals.
	require.Len(t, stats.Tasks, 4)
	require.Equal(t, int64(28800+1800+3600+3600), stats.Invested)

	elapsed := int64(23*3600 + 59*60 + 59)
	require.Equal(t, elapsed-stats.Invested, stats.Wasted)
	require.Equal(t, DaySeconds-elapsed, stats.Remaining)
}

func TestStatsIsStableAcrossCalls(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newStatsService(t, now)
	ctx := context.Background()

	first, err := s.Stats(ctx, 1)
	require.NoError(t, err)

	second, err := s.Stats(ctx, 1)
	require.NoError(t, err)

	require.Equal(t, first.Invested, second.Invested)
	require.Equal(t, first.Wasted, second.Wasted)
	require.Len(t, second.Tasks, len(first.Tasks))
}

func TestStatsTaskViewShape(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newStatsService(t, now)

	stats, err := s.Stats(context.Background(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, stats.Tasks)

	sleep := stats.Tasks[0]
	require.Equal(t, "Sleep", sleep.Name)
	require.Equal(t, "00:00", sleep.StartTime)
	require.Equal(t, "08:00", sleep.EndTime)
	require.Equal(t, task.LabelGood, sleep.Label)
	require.Equal(t, int64(28800), sleep.Cost)
	require.True(t, sleep.IsRoutine)
}

func TestStatsIsolatesUsers(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newStatsService(t, now)
	ctx := context.Background()

	first, err := s.Stats(ctx, 1)
	require.NoError(t, err)
	second, err := s.Stats(ctx, 2)
	require.NoError(t, err)

	require.Len(t, first.Tasks, 4)
	require.Len(t, second.Tasks, 4)
}
