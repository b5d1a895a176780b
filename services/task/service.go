package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"timeledger/pkg/clock"
	"timeledger/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node  *snowflake.Node
	clock clock.Clock
	repo  Repository
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:  p.Node,
		clock: p.Clock,
		repo:  NewRepository(p.DB),
	}
}

// CreateInput carries a new interval anchored onto today. Times are
// wall-clock strings ("15:04").
type CreateInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Label          string   `json:"label"`
	IsRoutine      bool     `json:"is_routine"`
	RecurrenceType string   `json:"recurrence_type"`
	RepeatDays     []string `json:"repeat_days"`
}

type UpdateInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Label          string   `json:"label"`
	IsRoutine      *bool    `json:"is_routine"`
	RecurrenceType string   `json:"recurrence_type"`
	RepeatDays     []string `json:"repeat_days"`
}

func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Task, error) {
	if in.Name == "" || in.StartTime == "" || in.EndTime == "" || in.Label == "" {
		return nil, errutil.BadRequest("missing required fields", nil)
	}

	today := s.clock.Now()
	start, err := parseClockTime(in.StartTime, today)
	if err != nil {
		return nil, errutil.ValidationFailed("invalid start_time format", err)
	}
	end, err := parseClockTime(in.EndTime, today)
	if err != nil {
		return nil, errutil.ValidationFailed("invalid end_time format", err)
	}

	recurrence := Recurrence(in.RecurrenceType)
	if in.RecurrenceType == "" {
		recurrence = RecurrenceDaily
	}

	t := &Task{
		ID:             s.node.Generate().Int64(),
		UserID:         userID,
		Name:           in.Name,
		Description:    in.Description,
		StartTime:      start,
		EndTime:        end,
		Label:          Label(in.Label),
		IsRoutine:      in.IsRoutine,
		RecurrenceType: recurrence,
		RepeatDays:     strings.Join(in.RepeatDays, ","),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		zap.L().Error("failed to create task", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to create task", err)
	}

	return t, nil
}

// Update edits any field except ownership and date lineage: new times are
// re-anchored onto the task's own date stamp, never onto today.
func (s *Service) Update(ctx context.Context, userID, taskID int64, in UpdateInput) (*Task, error) {
	t, err := s.owned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		t.Name = in.Name
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if in.Label != "" {
		t.Label = Label(in.Label)
	}
	if in.IsRoutine != nil {
		t.IsRoutine = *in.IsRoutine
	}
	if in.RecurrenceType != "" {
		t.RecurrenceType = Recurrence(in.RecurrenceType)
	}
	if len(in.RepeatDays) > 0 {
		t.RepeatDays = strings.Join(in.RepeatDays, ",")
	}

	if in.StartTime != "" && in.EndTime != "" {
		day := t.Day()
		start, err := parseClockTime(in.StartTime, day)
		if err != nil {
			return nil, errutil.ValidationFailed("invalid start_time format", err)
		}
		end, err := parseClockTime(in.EndTime, day)
		if err != nil {
			return nil, errutil.ValidationFailed("invalid end_time format", err)
		}
		t.StartTime = start
		t.EndTime = end
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	t.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		zap.L().Error("failed to update task", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, errutil.Internal("failed to update task", err)
	}

	return t, nil
}

// Delete removes a single instance. Deletion never cascades to other days'
// materialized copies.
func (s *Service) Delete(ctx context.Context, userID, taskID int64) error {
	if _, err := s.owned(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, userID, taskID); err != nil {
		zap.L().Error("failed to delete task", zap.Int64("task_id", taskID), zap.Error(err))
		return errutil.Internal("failed to delete task", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID, taskID int64) (*Task, error) {
	return s.owned(ctx, userID, taskID)
}

// CalendarEvent is the range feed entry consumed by the calendar view.
type CalendarEvent struct {
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Color         string    `json:"color"`
	ExtendedProps struct {
		Cost        int64  `json:"cost"`
		Label       Label  `json:"label"`
		Description string `json:"description"`
	} `json:"extendedProps"`
}

func (s *Service) CalendarEvents(ctx context.Context, userID int64, from, to time.Time) ([]CalendarEvent, error) {
	tasks, err := s.repo.FindByRange(ctx, userID, from, to)
	if err != nil {
		zap.L().Error("failed to query calendar range", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to query calendar range", err)
	}

	events := make([]CalendarEvent, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]

		color := "grey"
		switch {
		case t.Label == LabelGood:
			color = "#D4AF37"
		case t.Label == LabelBad:
			color = "#cc4444"
		case t.IsRoutine:
			color = "#4488cc"
		}

		ev := CalendarEvent{
			Title: t.Name,
			Start: t.StartTime,
			End:   t.EndTime,
			Color: color,
		}
		ev.ExtendedProps.Cost = t.DurationSeconds()
		ev.ExtendedProps.Label = t.Label
		ev.ExtendedProps.Description = t.Description
		events = append(events, ev)
	}
	return events, nil
}

func (s *Service) owned(ctx context.Context, userID, taskID int64) (*Task, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("task not found", err)
	}
	if err != nil {
		zap.L().Error("failed to load task", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, errutil.Internal("failed to load task", err)
	}
	if t.UserID != userID {
		return nil, errutil.Forbidden("task belongs to another user", nil)
	}
	return t, nil
}

func parseClockTime(value string, day time.Time) (time.Time, error) {
	tod, err := time.Parse("15:04", value)
	if err != nil {
		if tod, err = time.Parse("15:04:05", value); err != nil {
			return time.Time{}, err
		}
	}
	return Reanchor(tod, day), nil
}
