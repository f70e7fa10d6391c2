// Package analytics derives views from the cleaned dataset: recurring-charge
// detection, category insights against a rolling baseline, and contribution
// proration. Everything here is a pure function over an immutable snapshot;
// given the same dataset and the fixed tolerance constants the output is
// byte-identical.
package analytics

import (
	"sort"

	"bilancio/internal/core"
)

const (
	// minOccurrences is the smallest cluster that can count as a subscription.
	minOccurrences = 2

	// amountTolerance is the relative spread allowed within one charge
	// cluster. Charges further than this from the cluster mean start a new
	// cluster.
	amountTolerance = 0.15
)

// cadenceBands bucket a cluster's median day-gap. A gap fitting no band
// means the cluster is not a subscription.
var cadenceBands = []struct {
	cadence  core.Cadence
	min, max int
}{
	{core.Weekly, 5, 9},
	{core.Monthly, 25, 35},
	{core.Quarterly, 80, 100},
	{core.Annual, 350, 380},
}

// DetectSubscriptions clusters expense rows by merchant and near-equal
// amount, then classifies each cluster's cadence from the median gap between
// consecutive occurrences. Results are sorted by annualized cost descending.
func DetectSubscriptions(txns []core.Transaction) []core.SubscriptionCandidate {
	byMerchant := make(map[string][]core.Transaction)
	var merchants []string
	for _, t := range txns {
		if t.RecordType != core.Expense {
			continue
		}
		if _, ok := byMerchant[t.Description]; !ok {
			merchants = append(merchants, t.Description)
		}
		byMerchant[t.Description] = append(byMerchant[t.Description], t)
	}
	sort.Strings(merchants)

	var out []core.SubscriptionCandidate
	for _, m := range merchants {
		for _, cluster := range clusterByAmount(byMerchant[m]) {
			if c, ok := classifyCluster(m, cluster); ok {
				out = append(out, c)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AnnualizedCost.Cents != out[j].AnnualizedCost.Cents {
			return out[i].AnnualizedCost.Cents > out[j].AnnualizedCost.Cents
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}

// clusterByAmount splits one merchant's charges into groups whose amounts
// stay within amountTolerance of the group's running mean.
func clusterByAmount(txns []core.Transaction) [][]core.Transaction {
	sorted := append([]core.Transaction(nil), txns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.Cents < sorted[j].Amount.Cents
	})

	var clusters [][]core.Transaction
	for _, t := range sorted {
		n := len(clusters)
		if n > 0 {
			mean := meanCents(clusters[n-1])
			if float64(t.Amount.Cents) <= mean*(1+amountTolerance) {
				clusters[n-1] = append(clusters[n-1], t)
				continue
			}
		}
		clusters = append(clusters, []core.Transaction{t})
	}
	return clusters
}

func classifyCluster(merchant string, cluster []core.Transaction) (core.SubscriptionCandidate, bool) {
	if len(cluster) < minOccurrences {
		return core.SubscriptionCandidate{}, false
	}

	dates := make([]core.Date, len(cluster))
	for i, t := range cluster {
		dates[i] = t.Date
	}
	sort.SliceStable(dates, func(i, j int) bool { return dates[i].Before(dates[j].Time) })

	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, int(dates[i].Sub(dates[i-1].Time).Hours()/24))
	}
	gap := medianInt(gaps)

	var cadence core.Cadence
	for _, band := range cadenceBands {
		if gap >= band.min && gap <= band.max {
			cadence = band.cadence
			break
		}
	}
	if cadence == "" {
		return core.SubscriptionCandidate{}, false
	}

	avg := int64(meanCents(cluster) + 0.5)
	return core.SubscriptionCandidate{
		Merchant:       merchant,
		Cadence:        cadence,
		AvgCharge:      core.Money{Cents: avg},
		Occurrences:    len(cluster),
		AnnualizedCost: core.Money{Cents: avg * int64(cadence.ChargesPerYear())},
		FirstSeen:      dates[0],
		LastSeen:       dates[len(dates)-1],
	}, true
}

func meanCents(txns []core.Transaction) float64 {
	var sum int64
	for _, t := range txns {
		sum += t.Amount.Cents
	}
	return float64(sum) / float64(len(txns))
}

func medianInt(v []int) int {
	s := append([]int(nil), v...)
	sort.Ints(s)
	n := len(s)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
