package routine

import (
	"time"

	"timeledger/pkg/errutil"
	"timeledger/services/task"
)

// Fires decides whether a routine template generates an instance on the given
// day. Pure and total: no I/O, no side effects.
func Fires(tmpl *task.Task, day time.Time) bool {
	weekday := task.WeekdayAbbrev(day)
	isWeekend := weekday == "Sat" || weekday == "Sun"

	switch tmpl.RecurrenceType {
	case task.RecurrenceDaily:
		return true
	case task.RecurrenceWeekdays:
		return !isWeekend
	case task.RecurrenceWeekends:
		return isWeekend
	case task.RecurrenceCustom:
		return tmpl.RepeatOn(weekday)
	}
	return false
}

// Materialize builds the day's instance from a template: name, description,
// label and recurrence metadata are copied, the time-of-day is re-anchored
// onto the target day. Templates whose interval would cross midnight are
// rejected; they cannot be represented on a single date stamp.
func Materialize(tmpl *task.Task, day time.Time) (*task.Task, error) {
	start := task.Reanchor(tmpl.StartTime, day)
	end := task.Reanchor(tmpl.EndTime, day)

	if !end.After(start) {
		return nil, errutil.ValidationFailed("routine interval crosses midnight", nil,
			errutil.WithDetails(errutil.Detail{Field: "end_time", Message: "routine end time must be after its start time within one day"}))
	}

	t := &task.Task{
		UserID:         tmpl.UserID,
		Name:           tmpl.Name,
		Description:    tmpl.Description,
		StartTime:      start,
		EndTime:        end,
		Label:          tmpl.Label,
		IsRoutine:      true,
		RecurrenceType: tmpl.RecurrenceType,
		RepeatDays:     tmpl.RepeatDays,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
