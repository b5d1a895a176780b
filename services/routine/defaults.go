package routine

import (
	"time"

	"timeledger/services/task"
)

type defaultRoutine struct {
	name        string
	description string
	start       string
	end         string
	label       task.Label
}

// The starter set a brand-new user receives on first visit.
var defaultRoutines = []defaultRoutine{
	{name: "Sleep", description: "Daily Rest", start: "00:00", end: "08:00", label: task.LabelGood},
	{name: "Breakfast", description: "Morning Fuel", start: "08:30", end: "09:00", label: task.LabelNeutral},
	{name: "Lunch", description: "Midday Refuel", start: "13:00", end: "14:00", label: task.LabelNeutral},
	{name: "Dinner", description: "Evening Meal", start: "19:00", end: "20:00", label: task.LabelNeutral},
}

// DefaultTasks builds the default routine set for a user's first day. All
// entries are Daily routines so they keep materializing on following days.
func DefaultTasks(userID int64, day time.Time) []*task.Task {
	tasks := make([]*task.Task, 0, len(defaultRoutines))
	for _, d := range defaultRoutines {
		start, _ := time.Parse("15:04", d.start)
		end, _ := time.Parse("15:04", d.end)

		t := &task.Task{
			UserID:         userID,
			Name:           d.name,
			Description:    d.description,
			StartTime:      task.Reanchor(start, day),
			EndTime:        task.Reanchor(end, day),
			Label:          d.label,
			IsRoutine:      true,
			RecurrenceType: task.RecurrenceDaily,
		}
		if err := t.Validate(); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}
