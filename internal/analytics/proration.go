package analytics

import (
	"time"

	"bilancio/internal/core"
)

// CoverageFraction is the share of the target year actually covered by data:
// distinct months with at least one transaction, out of twelve, clamped to
// [0, 1]. A year entirely outside the data yields 0, never 1.
func CoverageFraction(txns []core.Transaction, year int) float64 {
	covered := make(map[time.Month]bool)
	for _, t := range txns {
		if t.Date.Time.Year() == year {
			covered[t.Date.Time.Month()] = true
		}
	}
	f := float64(len(covered)) / 12.0
	if f > 1 {
		f = 1
	}
	return f
}

// ProrateContributions scales each entry's annual amounts by the year's
// coverage fraction, independently per entry. Employer match prorates the
// same way as the employee amount.
func ProrateContributions(entries []core.ContributionEntry, txns []core.Transaction, year int) []core.ProratedContribution {
	f := CoverageFraction(txns, year)
	out := make([]core.ProratedContribution, 0, len(entries))
	for _, e := range entries {
		out = append(out, core.ProratedContribution{
			Entry:            e,
			CoverageFraction: f,
			ProratedAmount:   prorate(e.AmountPerYear, f),
			ProratedMatch:    prorate(e.EmployerMatch, f),
		})
	}
	return out
}

func prorate(m core.Money, fraction float64) core.Money {
	return core.Money{Cents: int64(float64(m.Cents)*fraction + 0.5)}
}
