package classify

import "strings"

// Built-in keyword sets. Defined once here and nowhere else; the import CLI
// and the serving pipeline both classify through this package.

// transferKeywords identify brokerage/investment transfers out of checking.
// Neither income nor expenses.
var transferKeywords = []string{
	"schwab", "moneylink", "fidelity", "vanguard", "tdameritrade",
	"e*trade", "etrade", "robinhood", "coinbase", "wealthfront",
	"betterment", "acorns", "stash invest",
}

// ccPaymentKeywords identify a card payment leaving checking. Dropped, since
// the underlying charges are already present in the card export.
var ccPaymentKeywords = []string{
	"autopay", "payment thank you", "online payment",
}

func containsAny(desc string, keywords []string) bool {
	desc = strings.ToLower(desc)
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}
