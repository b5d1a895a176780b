package ledger

import (
	"time"

	"timeledger/services/task"
)

// DaySeconds is the full length of one calendar day.
const DaySeconds int64 = 86400

// Ledger is the reconciled time balance for one user on one date. Wasted time
// is derived, not tracked: untracked gaps and Bad-labeled time are
// indistinguishable and both count as wasted.
type Ledger struct {
	Invested  int64 `json:"invested"`
	Wasted    int64 `json:"wasted"`
	Remaining int64 `json:"remaining"`
	Elapsed   int64 `json:"-"`
}

// ForDay computes the ledger for a day's task set against a reference instant.
// Pure: all inputs are explicit, including "now".
func ForDay(tasks []task.Task, day time.Time, now time.Time) Ledger {
	elapsed := elapsedSeconds(day, now)

	var invested int64
	for i := range tasks {
		if tasks[i].Label.Invested() {
			invested += tasks[i].DurationSeconds()
		}
	}

	wasted := elapsed - invested
	if wasted < 0 {
		wasted = 0
	}

	remaining := DaySeconds - elapsed

	return Ledger{
		Invested:  invested,
		Wasted:    wasted,
		Remaining: remaining,
		Elapsed:   elapsed,
	}
}

// elapsedSeconds is 86400 for past days, 0 for future days, and the clamped
// seconds since midnight for today.
func elapsedSeconds(day, now time.Time) int64 {
	dayKey := task.DayKey(day)
	nowKey := task.DayKey(now)

	switch {
	case dayKey == nowKey:
		elapsed := task.SecondsIntoDay(now)
		if elapsed < 0 {
			return 0
		}
		if elapsed > DaySeconds {
			return DaySeconds
		}
		return elapsed
	case dayKey < nowKey:
		return DaySeconds
	default:
		return 0
	}
}
