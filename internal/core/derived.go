package core

const (
	Weekly    Cadence = "weekly"
	Monthly   Cadence = "monthly"
	Quarterly Cadence = "quarterly"
	Annual    Cadence = "annual"
)

const (
	CategoryInsight InsightKind = "category"
	MerchantInsight InsightKind = "merchant"
)

type (
	// Cadence is the recurrence-interval class of a detected subscription.
	Cadence string

	// InsightKind distinguishes category deviations from the informational
	// top-merchant entry.
	InsightKind string

	// SubscriptionCandidate is a cluster of similar recurring expense charges.
	SubscriptionCandidate struct {
		Merchant       string
		Cadence        Cadence
		AvgCharge      Money
		Occurrences    int
		AnnualizedCost Money
		FirstSeen      Date
		LastSeen       Date
	}

	// Insight is a category whose current-month spend deviates materially
	// from its trailing baseline, or the informational top merchant of the
	// month. Merchant is set only for MerchantInsight; its Change equals the
	// merchant's spend so it competes in the same ranking.
	Insight struct {
		Kind         InsightKind
		Category     string
		Merchant     string
		Month        Month
		CurrentTotal Money
		Baseline     Money
		Change       Money
		PctChange    float64
		Spike        bool
	}

	// ProratedContribution scales one ContributionEntry by data coverage.
	ProratedContribution struct {
		Entry            ContributionEntry
		CoverageFraction float64
		ProratedAmount   Money
		ProratedMatch    Money
	}
)

// ChargesPerYear returns how many occurrences per year the cadence implies.
func (c Cadence) ChargesPerYear() int {
	switch c {
	case Weekly:
		return 52
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case Annual:
		return 1
	}
	return 0
}
