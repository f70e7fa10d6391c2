// Package ingest normalizes heterogeneous per-institution CSV exports into
// the canonical source-row shape. Each file is matched to a column layout by
// filename; unrecognized files fall back to the default layout with a schema
// warning. Row-level failures skip the row and continue the file.
package ingest

import (
	"strings"

	"bilancio/internal/core"
)

// Layout describes how one institution's export maps onto the canonical
// record shape. AmountSign is applied to the raw amount so that, for every
// layout, negative means money out and positive means money in.
type Layout struct {
	Name        string
	DateCol     string
	DescCol     string
	CategoryCol string
	AmountCol   string
	DetailsCol  string
	AmountSign  int
	AccountType core.AccountType
}

// layouts is the single source of truth for export formats. Order matters:
// MatchLayout tries non-default entries by substring before falling back.
var layouts = []Layout{
	{
		Name:        "checking",
		DateCol:     "Posting Date",
		DescCol:     "Description",
		AmountCol:   "Amount",
		DetailsCol:  "Details",
		AmountSign:  1,
		AccountType: core.CheckingAccount,
	},
	{
		Name:        "default",
		DateCol:     "Transaction Date",
		DescCol:     "Description",
		CategoryCol: "Category",
		AmountCol:   "Amount",
		AmountSign:  1,
		AccountType: core.CardAccount,
	},
}

// MatchLayout resolves a file stem to a layout. Exact name first, then the
// first non-default layout whose name is a substring of the stem, then the
// default layout with fallback=true so callers can record a schema warning.
func MatchLayout(stem string) (Layout, bool) {
	stem = strings.ToLower(stem)
	var def Layout
	for _, l := range layouts {
		if l.Name == "default" {
			def = l
			continue
		}
		if l.Name == stem {
			return l, false
		}
	}
	if stem == "default" {
		return def, false
	}
	for _, l := range layouts {
		if l.Name != "default" && strings.Contains(stem, l.Name) {
			return l, false
		}
	}
	return def, true
}

// AccountLabel derives the human-readable account name from a file stem.
func AccountLabel(stem string) string {
	parts := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}
