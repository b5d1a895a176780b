package task

import (
	"context"
	"testing"
	"time"

	"timeledger/services/testutil"

	"github.com/stretchr/testify/require"
)

func seedRow(t *testing.T, repo Repository, id, userID int64, name string, day time.Time, routine bool) *Task {
	t.Helper()
	row := &Task{
		ID:             id,
		UserID:         userID,
		Name:           name,
		StartTime:      day.Add(9 * time.Hour),
		EndTime:        day.Add(10 * time.Hour),
		Label:          LabelGood,
		IsRoutine:      routine,
		RecurrenceType: RecurrenceDaily,
	}
	require.NoError(t, row.Validate())
	require.NoError(t, repo.Create(context.Background(), row))
	return row
}

func TestLatestRoutineTemplatesPicksHighestIDPerName(t *testing.T) {
	db := testutil.NewTestDB(t, &Task{})
	repo := NewRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	seedRow(t, repo, 100, 1, "Gym", day, true)
	seedRow(t, repo, 200, 1, "Gym", day.AddDate(0, 0, 1), true)
	seedRow(t, repo, 150, 1, "Read", day, true)
	seedRow(t, repo, 300, 1, "Errand", day, false)
	seedRow(t, repo, 400, 2, "Gym", day, true)

	templates, err := repo.LatestRoutineTemplates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	byName := make(map[string]int64)
	for _, tmpl := range templates {
		byName[tmpl.Name] = tmpl.ID
	}
	require.Equal(t, int64(200), byName["Gym"])
	require.Equal(t, int64(150), byName["Read"])
}

func TestFindByDateScopesUserAndDay(t *testing.T) {
	db := testutil.NewTestDB(t, &Task{})
	repo := NewRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	seedRow(t, repo, 1, 1, "Mine", day, false)
	seedRow(t, repo, 2, 1, "Tomorrow", day.AddDate(0, 0, 1), false)
	seedRow(t, repo, 3, 2, "Theirs", day, false)

	rows, err := repo.FindByDate(ctx, 1, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Mine", rows[0].Name)
}

func TestFindByRangeIsInclusive(t *testing.T) {
	db := testutil.NewTestDB(t, &Task{})
	repo := NewRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	seedRow(t, repo, 1, 1, "Before", day.AddDate(0, 0, -1), false)
	seedRow(t, repo, 2, 1, "First", day, false)
	seedRow(t, repo, 3, 1, "Last", day.AddDate(0, 0, 2), false)
	seedRow(t, repo, 4, 1, "After", day.AddDate(0, 0, 3), false)

	rows, err := repo.FindByRange(ctx, 1, day, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "First", rows[0].Name)
	require.Equal(t, "Last", rows[1].Name)
}

func TestEarliestDate(t *testing.T) {
	db := testutil.NewTestDB(t, &Task{})
	repo := NewRepository(db)
	ctx := context.Background()

	earliest, err := repo.EarliestDate(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, earliest)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seedRow(t, repo, 1, 1, "Later", day, false)
	seedRow(t, repo, 2, 1, "Earlier", day.AddDate(0, 0, -5), false)

	earliest, err = repo.EarliestDate(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	require.Equal(t, "2025-03-05", DayKey(*earliest))
}

func TestDistinctUserIDs(t *testing.T) {
	db := testutil.NewTestDB(t, &Task{})
	repo := NewRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	seedRow(t, repo, 1, 3, "A", day, false)
	seedRow(t, repo, 2, 1, "B", day, false)
	seedRow(t, repo, 3, 3, "C", day.AddDate(0, 0, 1), false)

	ids, err := repo.DistinctUserIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids)
}

func TestDeleteMissingRowReportsNotFound(t *testing.T) {
	db := testutil.NewTestDB(t, &Task{})
	repo := NewRepository(db)

	err := repo.Delete(context.Background(), 1, 999)
	require.Error(t, err)
}
