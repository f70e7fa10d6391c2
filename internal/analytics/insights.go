package analytics

import (
	"sort"

	"bilancio/internal/core"
)

const (
	// baselineMonths is how many calendar months before the reference month
	// feed the baseline. A month with no data contributes zero, not a skipped
	// data point.
	baselineMonths = 3

	// Materiality thresholds: both must be exceeded for an insight to emit.
	minPctChange    = 0.20
	minCentsChange  = 2500
	maxInsights     = 5
	minMonthHistory = 2
)

// ComputeInsights compares each category's spend in the reference month
// against its trailing baseline and adds the month's top merchant as an
// informational entry ranked by its spend. refMonth nil means the latest
// month present. With fewer than two months of history overall there is no
// baseline to compare against and the result is empty.
func ComputeInsights(txns []core.Transaction, refMonth *core.Month) []core.Insight {
	totals := make(map[core.Month]map[string]int64)
	months := make(map[core.Month]bool)
	for _, t := range txns {
		if t.RecordType != core.Expense {
			continue
		}
		m := core.MonthOf(t.Date)
		months[m] = true
		if totals[m] == nil {
			totals[m] = make(map[string]int64)
		}
		totals[m][t.Category] += t.Amount.Cents
	}
	if len(months) < minMonthHistory {
		return nil
	}

	ref := latestMonth(months)
	if refMonth != nil {
		ref = *refMonth
	}

	baseline := make(map[string]int64)
	m := ref
	for i := 0; i < baselineMonths; i++ {
		m = m.Prev()
		for cat, cents := range totals[m] {
			baseline[cat] += cents
		}
	}

	categories := make(map[string]bool)
	for cat := range totals[ref] {
		categories[cat] = true
	}
	for cat := range baseline {
		categories[cat] = true
	}
	sorted := make([]string, 0, len(categories))
	for cat := range categories {
		sorted = append(sorted, cat)
	}
	sort.Strings(sorted)

	var out []core.Insight
	for _, cat := range sorted {
		current := totals[ref][cat]
		if current == 0 {
			continue
		}
		base := baseline[cat] / baselineMonths
		change := current - base

		var pct float64
		if base > 0 {
			pct = float64(change) / float64(base)
		} else {
			pct = 1.0
		}
		if abs64(change) < minCentsChange || absFloat(pct) < minPctChange {
			continue
		}
		out = append(out, core.Insight{
			Kind:         core.CategoryInsight,
			Category:     cat,
			Month:        ref,
			CurrentTotal: core.Money{Cents: current},
			Baseline:     core.Money{Cents: base},
			Change:       core.Money{Cents: change},
			PctChange:    pct,
			Spike:        change > 0,
		})
	}

	if top, ok := topMerchant(txns, ref); ok {
		out = append(out, top)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return abs64(out[i].Change.Cents) > abs64(out[j].Change.Cents)
	})
	if len(out) > maxInsights {
		out = out[:maxInsights]
	}
	return out
}

// topMerchant finds the merchant with the highest expense total in the
// reference month. Its Change equals that total, so it competes with the
// category deviations in the shared ranking and cap. Ties break by name.
func topMerchant(txns []core.Transaction, ref core.Month) (core.Insight, bool) {
	totals := make(map[string]int64)
	for _, t := range txns {
		if t.RecordType != core.Expense || core.MonthOf(t.Date) != ref {
			continue
		}
		totals[t.Description] += t.Amount.Cents
	}
	var (
		name  string
		cents int64
		found bool
	)
	for m, c := range totals {
		if !found || c > cents || (c == cents && m < name) {
			name, cents, found = m, c, true
		}
	}
	if !found {
		return core.Insight{}, false
	}
	return core.Insight{
		Kind:         core.MerchantInsight,
		Category:     "Top Merchant",
		Merchant:     name,
		Month:        ref,
		CurrentTotal: core.Money{Cents: cents},
		Change:       core.Money{Cents: cents},
	}, true
}

func latestMonth(months map[core.Month]bool) core.Month {
	var latest core.Month
	first := true
	for m := range months {
		if first || latest.Before(m) {
			latest = m
			first = false
		}
	}
	return latest
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
