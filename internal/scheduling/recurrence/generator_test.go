package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOccurrencesFindsFirstMatchingWeekday(t *testing.T) {
	// 2026-09-01 is a Tuesday; first Thursday is the 3rd.
	dates := Occurrences(date(2026, time.September, 1), date(2026, time.September, 30), time.Thursday)
	if len(dates) != 4 {
		t.Fatalf("expected 4 Thursdays got %d", len(dates))
	}
	if !dates[0].Equal(date(2026, time.September, 3)) {
		t.Fatalf("expected first occurrence 2026-09-03 got %s", dates[0].Format("2006-01-02"))
	}
	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) != 7*24*time.Hour {
			t.Fatalf("occurrences not 7 days apart at index %d", i)
		}
	}
}

func TestOccurrencesStartOnTargetWeekday(t *testing.T) {
	// Start date itself is the target weekday: it must be included.
	dates := Occurrences(date(2026, time.September, 1), date(2026, time.September, 1), time.Tuesday)
	if len(dates) != 1 || !dates[0].Equal(date(2026, time.September, 1)) {
		t.Fatalf("expected single occurrence on start date, got %v", dates)
	}
}

func TestOccurrencesEmptyWindow(t *testing.T) {
	if dates := Occurrences(date(2026, time.September, 10), date(2026, time.September, 5), time.Monday); dates != nil {
		t.Fatalf("expected nil for inverted window, got %v", dates)
	}
}

func TestOccurrencesNormalisesLocalTimes(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// Late-evening local time must not shift the calendar date sequence.
	start := time.Date(2026, time.October, 20, 23, 30, 0, 0, loc) // Tuesday
	dates := Occurrences(start, date(2026, time.November, 10), time.Tuesday)
	if len(dates) == 0 {
		t.Fatal("expected occurrences")
	}
	for _, d := range dates {
		if d.Weekday() != time.Tuesday {
			t.Fatalf("expected Tuesday, got %s on %s", d.Weekday(), d.Format("2006-01-02"))
		}
		if h, m, s := d.Clock(); h != 0 || m != 0 || s != 0 {
			t.Fatalf("expected UTC midnight, got %s", d)
		}
	}
}

func TestExcludeClosuresOrgWide(t *testing.T) {
	dates := Occurrences(date(2026, time.September, 3), date(2026, time.September, 30), time.Thursday)
	closures := []Closure{{OrgID: 1, Date: date(2026, time.September, 10)}}
	filtered := ExcludeClosures(dates, closures, 44)
	if len(filtered) != len(dates)-1 {
		t.Fatalf("expected %d dates got %d", len(dates)-1, len(filtered))
	}
	for _, d := range filtered {
		if d.Equal(date(2026, time.September, 10)) {
			t.Fatal("closed date survived filtering")
		}
	}
}

func TestExcludeClosuresLocationScoped(t *testing.T) {
	otherLocation := int64(99)
	target := int64(44)
	dates := Occurrences(date(2026, time.September, 3), date(2026, time.September, 30), time.Thursday)
	closures := []Closure{
		{OrgID: 1, Date: date(2026, time.September, 10), LocationID: &otherLocation},
		{OrgID: 1, Date: date(2026, time.September, 17), LocationID: &target},
	}
	filtered := ExcludeClosures(dates, closures, target)
	if len(filtered) != len(dates)-1 {
		t.Fatalf("expected only the matching-location closure removed, got %d of %d", len(filtered), len(dates))
	}
	for _, d := range filtered {
		if d.Equal(date(2026, time.September, 17)) {
			t.Fatal("location-scoped closure survived filtering")
		}
	}
}

func TestExcludeClosuresPreservesOrder(t *testing.T) {
	dates := Occurrences(date(2026, time.September, 1), date(2026, time.October, 31), time.Tuesday)
	filtered := ExcludeClosures(dates, []Closure{{Date: date(2026, time.September, 15)}}, 1)
	for i := 1; i < len(filtered); i++ {
		if !filtered[i].After(filtered[i-1]) {
			t.Fatal("filtered dates out of order")
		}
	}
}
