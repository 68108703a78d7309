package rates

import "testing"

var cards = []RateCard{
	{ID: 1, DurationMinutes: 30, PriceMinor: 3500},
	{ID: 2, DurationMinutes: 45, PriceMinor: 5000},
	{ID: 3, DurationMinutes: 60, PriceMinor: 6500, IsDefault: true},
}

func TestResolveOverrideWins(t *testing.T) {
	override := int64(9900)
	student := cards[0]
	minor, low := Resolve(60, cards, &student, nil, &override)
	if minor != 9900 {
		t.Fatalf("expected override 9900 got %d", minor)
	}
	if low {
		t.Fatal("override resolution must not be low confidence")
	}
}

func TestResolveStudentCard(t *testing.T) {
	student := cards[1]
	minor, low := Resolve(30, cards, &student, nil, nil)
	if minor != 5000 {
		t.Fatalf("expected student card price 5000 got %d", minor)
	}
	if low {
		t.Fatal("student card resolution must not be low confidence")
	}
}

func TestResolveDurationMatch(t *testing.T) {
	minor, low := Resolve(45, cards, nil, nil, nil)
	if minor != 5000 {
		t.Fatalf("expected duration-matched price 5000 got %d", minor)
	}
	if !low {
		t.Fatal("duration-match fallback should flag low confidence")
	}
}

func TestResolveOrgDefault(t *testing.T) {
	minor, low := Resolve(90, cards, nil, nil, nil)
	if minor != 6500 {
		t.Fatalf("expected org default 6500 got %d", minor)
	}
	if !low {
		t.Fatal("default-card fallback should flag low confidence")
	}
}

func TestResolveSettingsDefaultBeatsFlag(t *testing.T) {
	orgDefault := cards[1]
	minor, low := Resolve(90, cards, nil, &orgDefault, nil)
	if minor != 5000 {
		t.Fatalf("expected settings default 5000 got %d", minor)
	}
	if !low {
		t.Fatal("org-default fallback should flag low confidence")
	}
}

func TestResolveFirstCard(t *testing.T) {
	noDefault := []RateCard{
		{ID: 1, DurationMinutes: 30, PriceMinor: 2500},
		{ID: 2, DurationMinutes: 45, PriceMinor: 4000},
	}
	minor, low := Resolve(90, noDefault, nil, nil, nil)
	if minor != 2500 {
		t.Fatalf("expected first card 2500 got %d", minor)
	}
	if !low {
		t.Fatal("first-card fallback should flag low confidence")
	}
}

func TestResolveHardcodedFallback(t *testing.T) {
	minor, low := Resolve(30, nil, nil, nil, nil)
	if minor != FallbackRateMinor {
		t.Fatalf("expected fallback %d got %d", FallbackRateMinor, minor)
	}
	if !low {
		t.Fatal("terminal fallback should flag low confidence")
	}
}
