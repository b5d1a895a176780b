package task

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository is the Task Store contract. All reads are keyed by
// (user_id, date_stamp); materialization correctness depends on
// LatestRoutineTemplates returning exactly one row per distinct name,
// selected by highest id.
type Repository interface {
	WithTrx(tx *gorm.DB) Repository

	Create(ctx context.Context, t *Task) error
	BatchCreate(ctx context.Context, tasks []*Task) error
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, userID, taskID int64) error
	GetByID(ctx context.Context, taskID int64) (*Task, error)

	FindByDate(ctx context.Context, userID int64, day time.Time) ([]Task, error)
	FindByRange(ctx context.Context, userID int64, from, to time.Time) ([]Task, error)
	LatestRoutineTemplates(ctx context.Context, userID int64) ([]Task, error)
	CountAll(ctx context.Context, userID int64) (int64, error)
	EarliestDate(ctx context.Context, userID int64) (*time.Time, error)
	DistinctUserIDs(ctx context.Context) ([]int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTrx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, t *Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *gormRepository) BatchCreate(ctx context.Context, tasks []*Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(tasks).Error
}

func (r *gormRepository) Update(ctx context.Context, t *Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"name":            t.Name,
			"description":     t.Description,
			"start_time":      t.StartTime,
			"end_time":        t.EndTime,
			"label":           t.Label,
			"is_routine":      t.IsRoutine,
			"recurrence_type": t.RecurrenceType,
			"repeat_days":     t.RepeatDays,
			"date_stamp":      t.DateStamp,
			"updated_at":      t.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, userID, taskID int64) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		Delete(&Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, taskID int64) (*Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var t Task
	err := r.db.WithContext(ctx).Where("id = ?", taskID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) FindByDate(ctx context.Context, userID int64, day time.Time) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date_stamp = ?", userID, datatypes.Date(DateOf(day))).
		Order("start_time ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) FindByRange(ctx context.Context, userID int64, from, to time.Time) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date_stamp >= ? AND date_stamp <= ?",
			userID, datatypes.Date(DateOf(from)), datatypes.Date(DateOf(to))).
		Order("date_stamp ASC, start_time ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// LatestRoutineTemplates returns the most recent is_routine row per distinct
// name. IDs are snowflakes, so max(id) is the newest instance; editing the
// latest instance is how recurrence rules evolve over time.
func (r *gormRepository) LatestRoutineTemplates(ctx context.Context, userID int64) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	sub := r.db.WithContext(ctx).
		Model(&Task{}).
		Select("MAX(id)").
		Where("user_id = ? AND is_routine = ?", userID, true).
		Group("name")

	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("start_time ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) CountAll(ctx context.Context, userID int64) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) EarliestDate(ctx context.Context, userID int64) (*time.Time, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var t Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date_stamp ASC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	day := t.Day()
	return &day, nil
}

func (r *gormRepository) DistinctUserIDs(ctx context.Context) ([]int64, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&Task{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
