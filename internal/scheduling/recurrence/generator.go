package recurrence

import "time"

// DateOnly normalises a timestamp to a UTC calendar date. All occurrence
// arithmetic runs on UTC midnights so iteration never drifts across DST
// boundaries in the org's local zone.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Occurrences expands a weekly pattern into the ordered calendar dates on
// or after start, up to and including end, that fall on the target
// weekday. Pure function of its inputs.
func Occurrences(start, end time.Time, weekday time.Weekday) []time.Time {
	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return nil
	}

	cursor := start
	for i := 0; i < 7 && cursor.Weekday() != weekday; i++ {
		cursor = cursor.AddDate(0, 0, 1)
	}

	var dates []time.Time
	for !cursor.After(end) {
		dates = append(dates, cursor)
		cursor = cursor.AddDate(0, 0, 7)
	}
	return dates
}

// ExcludeClosures removes dates covered by a closure that is either
// org-wide or scoped to locationID. Order of the surviving dates is
// preserved.
func ExcludeClosures(dates []time.Time, closures []Closure, locationID int64) []time.Time {
	if len(dates) == 0 || len(closures) == 0 {
		return dates
	}
	closed := make(map[time.Time]struct{}, len(closures))
	for _, c := range closures {
		if c.LocationID == nil || *c.LocationID == locationID {
			closed[DateOnly(c.Date)] = struct{}{}
		}
	}

	out := dates[:0:0]
	for _, d := range dates {
		if _, ok := closed[DateOnly(d)]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}
