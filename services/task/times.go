package task

import "time"

// DateOf truncates an instant to midnight of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayKey is the canonical per-day bucket key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekdayAbbrev returns the three-letter weekday code ("Mon".."Sun") used by
// recurrence rules and repeat_days.
func WeekdayAbbrev(t time.Time) string {
	return t.Format("Mon")
}

// Reanchor moves a time-of-day onto another calendar day, preserving the clock
// reading. Recurring instances keep their duration this way as long as the
// interval stays inside one day.
func Reanchor(tod time.Time, day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), day.Location())
}

// SecondsIntoDay is the number of seconds between midnight and the instant.
func SecondsIntoDay(t time.Time) int64 {
	return int64(t.Sub(DateOf(t)).Seconds())
}
