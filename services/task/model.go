package task

import (
	"strings"
	"time"

	"timeledger/pkg/errutil"

	"gorm.io/datatypes"
)

// Label classifies how an interval was spent. Good and Neutral time counts as
// invested; Bad time is folded into wasted together with untracked gaps.
type Label string

const (
	LabelGood    Label = "Good"
	LabelNeutral Label = "Neutral"
	LabelBad     Label = "Bad"
)

func (l Label) Valid() bool {
	switch l {
	case LabelGood, LabelNeutral, LabelBad:
		return true
	}
	return false
}

// Invested reports whether time under this label counts toward the invested total.
func (l Label) Invested() bool {
	return l == LabelGood || l == LabelNeutral
}

// Recurrence decides on which days a routine fires.
type Recurrence string

const (
	RecurrenceDaily    Recurrence = "Daily"
	RecurrenceWeekdays Recurrence = "Weekdays"
	RecurrenceWeekends Recurrence = "Weekends"
	RecurrenceCustom   Recurrence = "Custom"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekdays, RecurrenceWeekends, RecurrenceCustom:
		return true
	}
	return false
}

// Task is a single labeled time interval on a specific calendar day.
type Task struct {
	ID             int64          `gorm:"column:id;primaryKey" json:"id"`
	UserID         int64          `gorm:"column:user_id;index:idx_task_user_date;not null" json:"user_id"`
	Name           string         `gorm:"column:name;type:varchar(120);not null" json:"name"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	StartTime      time.Time      `gorm:"column:start_time;not null" json:"start_time"`
	EndTime        time.Time      `gorm:"column:end_time;not null" json:"end_time"`
	Label          Label          `gorm:"column:label;type:varchar(10);not null" json:"label"`
	IsRoutine      bool           `gorm:"column:is_routine;default:false" json:"is_routine"`
	RecurrenceType Recurrence     `gorm:"column:recurrence_type;type:varchar(10);default:'Daily'" json:"recurrence_type"`
	RepeatDays     string         `gorm:"column:repeat_days;type:varchar(40)" json:"repeat_days"`
	DateStamp      datatypes.Date `gorm:"column:date_stamp;index:idx_task_user_date" json:"date_stamp"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// DurationSeconds is the interval length in whole seconds, truncated.
func (t *Task) DurationSeconds() int64 {
	return int64(t.EndTime.Sub(t.StartTime).Seconds())
}

// Day is the calendar day this instance belongs to.
func (t *Task) Day() time.Time {
	return time.Time(t.DateStamp)
}

// RepeatOn reports whether the weekday abbreviation (e.g. "Mon") is listed in
// RepeatDays. Only meaningful for Custom recurrence.
func (t *Task) RepeatOn(weekday string) bool {
	for _, d := range strings.Split(t.RepeatDays, ",") {
		if strings.TrimSpace(d) == weekday {
			return true
		}
	}
	return false
}

// Validate checks the interval invariants and derives DateStamp from StartTime
// so the two can never disagree. Downstream queries key on date_stamp.
func (t *Task) Validate() error {
	details := make([]errutil.Detail, 0)

	if strings.TrimSpace(t.Name) == "" {
		details = append(details, errutil.Detail{Field: "name", Message: "name is required"})
	}
	if !t.Label.Valid() {
		details = append(details, errutil.Detail{Field: "label", Message: "label must be one of Good, Neutral, Bad"})
	}
	if !t.RecurrenceType.Valid() {
		details = append(details, errutil.Detail{Field: "recurrence_type", Message: "recurrence_type must be one of Daily, Weekdays, Weekends, Custom"})
	}
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		details = append(details, errutil.Detail{Field: "start_time", Message: "start_time and end_time are required"})
	} else {
		if !t.EndTime.After(t.StartTime) {
			details = append(details, errutil.Detail{Field: "end_time", Message: "end time must be after start time"})
		}
		if DayKey(t.StartTime) != DayKey(t.EndTime) {
			// Midnight-crossing intervals are rejected outright rather than
			// split across two date stamps.
			details = append(details, errutil.Detail{Field: "end_time", Message: "interval must not cross midnight"})
		}
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("invalid task", nil, errutil.WithDetails(details...))
	}

	t.DateStamp = datatypes.Date(DateOf(t.StartTime))
	return nil
}
