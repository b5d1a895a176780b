package ledger

import (
	"context"

	"timeledger/pkg/clock"
	"timeledger/pkg/errutil"
	"timeledger/services/routine"
	"timeledger/services/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service answers the dashboard read: materialize today if needed, then
// reconcile the day's intervals into invested/wasted/remaining.
type Service struct {
	clock        clock.Clock
	repo         task.Repository
	materializer *routine.Materializer
}

type ServiceParams struct {
	fx.In
	DB           *gorm.DB
	Clock        clock.Clock
	Materializer *routine.Materializer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		clock:        p.Clock,
		repo:         task.NewRepository(p.DB),
		materializer: p.Materializer,
	}
}

// TaskView is the wire shape of one interval on the dashboard.
type TaskView struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
	Label          task.Label      `json:"label"`
	Cost           int64           `json:"cost"`
	Description    string          `json:"description"`
	IsRoutine      bool            `json:"is_routine"`
	RecurrenceType task.Recurrence `json:"recurrence_type"`
	RepeatDays     string          `json:"repeat_days"`
}

type DayStats struct {
	Remaining int64      `json:"remaining"`
	Invested  int64      `json:"invested"`
	Wasted    int64      `json:"wasted"`
	Tasks     []TaskView `json:"tasks"`
}

// Stats returns today's ledger for the user. The first call of the day
// triggers routine materialization; every later call observes the same rows.
func (s *Service) Stats(ctx context.Context, userID int64) (*DayStats, error) {
	now := s.clock.Now()
	today := task.DateOf(now)

	if _, err := s.materializer.EnsureDay(ctx, userID, today); err != nil {
		// The dashboard still renders from whatever rows exist; the failure
		// is logged rather than taking the read down with it.
		zap.L().Error("failed to ensure routines for today",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	tasks, err := s.repo.FindByDate(ctx, userID, today)
	if err != nil {
		zap.L().Error("failed to load today's tasks", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to load tasks", err)
	}

	day := ForDay(tasks, today, now)

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		views = append(views, TaskView{
			ID:             t.ID,
			Name:           t.Name,
			StartTime:      t.StartTime.Format("15:04"),
			EndTime:        t.EndTime.Format("15:04"),
			Label:          t.Label,
			Cost:           t.DurationSeconds(),
			Description:    t.Description,
			IsRoutine:      t.IsRoutine,
			RecurrenceType: t.RecurrenceType,
			RepeatDays:     t.RepeatDays,
		})
	}

	return &DayStats{
		Remaining: day.Remaining,
		Invested:  day.Invested,
		Wasted:    day.Wasted,
		Tasks:     views,
	}, nil
}
