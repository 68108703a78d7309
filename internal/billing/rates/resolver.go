package rates

// FallbackRateMinor is the terminal fallback price (in minor currency
// units) used when an org has no usable rate card at all. Billing must
// not block on missing configuration, so resolution always terminates
// with a price.
const FallbackRateMinor int64 = 3000

// Resolve determines the per-lesson price in minor units.
//
// Precedence: explicit override, then the student's assigned card, then
// a card whose duration matches exactly, then the org default card
// (the card named in org settings, else one flagged is_default), then
// the first card, then FallbackRateMinor. lowConfidence is true whenever
// resolution fell past the first two rules, so callers can warn the
// operator about likely misconfiguration before the price is applied.
func Resolve(durationMinutes int, cards []RateCard, studentCard, orgDefault *RateCard, overrideMinor *int64) (minor int64, lowConfidence bool) {
	if overrideMinor != nil {
		return *overrideMinor, false
	}
	if studentCard != nil {
		return studentCard.PriceMinor, false
	}
	for _, c := range cards {
		if c.DurationMinutes == durationMinutes {
			return c.PriceMinor, true
		}
	}
	if orgDefault != nil {
		return orgDefault.PriceMinor, true
	}
	for _, c := range cards {
		if c.IsDefault {
			return c.PriceMinor, true
		}
	}
	if len(cards) > 0 {
		return cards[0].PriceMinor, true
	}
	return FallbackRateMinor, true
}
