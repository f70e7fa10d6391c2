// Package core holds the domain types shared by the ingestion pipeline and
// its derived views: transactions, override rules, transfer keywords,
// contribution entries, and the warning taxonomy.
package core

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	locationCode   = regexp.MustCompile(`\s*#\d+`)
	trailingNumber = regexp.MustCompile(`\s+\d{4,}$`)
	trailingState  = regexp.MustCompile(`\s+[A-Z]{2}$`)
)

// CleanMerchant strips bank-export location codes and noise from merchant
// names: "#NNNN" store codes, trailing standalone numbers of 4+ digits, and a
// trailing all-caps two-letter state. ALL-CAPS names are title-cased.
func CleanMerchant(name string) string {
	name = locationCode.ReplaceAllString(name, "")
	name = trailingNumber.ReplaceAllString(name, "")
	name = trailingState.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name != "" && name == strings.ToUpper(name) && name != strings.ToLower(name) {
		name = titleCase(name)
	}
	return name
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range strings.ToLower(s) {
		isLetter := unicode.IsLetter(r)
		if isLetter && !prevLetter {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
