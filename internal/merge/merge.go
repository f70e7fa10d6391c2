// Package merge collapses overlapping export files into one canonical,
// duplicate-free transaction sequence. Two rows are duplicates only if date,
// description, amount, account, and per-file sequence number all match.
package merge

import (
	"fmt"
	"sort"

	"bilancio/internal/core"
	"bilancio/internal/ingest"
)

func dedupKey(r core.SourceRow) string {
	return fmt.Sprintf("%s|%s|%d|%s|%d", r.Date.Key(), r.Description, r.Amount.Cents, r.Account, r.Seq)
}

func seqKey(r core.SourceRow) string {
	return fmt.Sprintf("%s|%s|%d|%s", r.Date.Key(), r.Description, r.Amount.Cents, r.Account)
}

// AssignSequences numbers rows sharing the same (date, description, amount,
// account) within one file, in file order. A coffee bought twice on the same
// day gets seq 0 and 1; the same single purchase re-exported in a second file
// gets seq 0 both times and collapses.
func AssignSequences(f *ingest.File) {
	counts := make(map[string]int, len(f.Rows))
	for i := range f.Rows {
		k := seqKey(f.Rows[i])
		f.Rows[i].Seq = counts[k]
		counts[k]++
	}
}

// Merge concatenates the files, drops rows whose dedup key was already seen,
// and returns the canonical sequence: date ascending, ties broken by original
// file/row order. Merging an already-merged set again is a no-op.
func Merge(files []ingest.File) []core.SourceRow {
	var combined []core.SourceRow
	seen := make(map[string]struct{})
	for i := range files {
		AssignSequences(&files[i])
		for _, r := range files[i].Rows {
			k := dedupKey(r)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			combined = append(combined, r)
		}
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Date.Before(combined[j].Date.Time)
	})
	return combined
}
