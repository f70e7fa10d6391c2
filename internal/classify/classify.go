// Package classify turns merged source rows into the cleaned dataset. Three
// ordered stages: base classification by account type and sign, user
// override application, then custom transfer keywords. Classification is a
// pure function of its inputs; identical inputs yield an identical cleaned
// dataset, so the result is safe to cache until a store changes.
package classify

import (
	"fmt"
	"strings"

	"bilancio/internal/core"
)

const (
	categoryUncategorized = "Uncategorized"
	categoryIncome        = "Income"
	categoryTransfer      = "Transfer"
)

// Classify runs all three stages over the merged rows. Malformed rules are
// skipped with a warning and never abort the remaining dataset.
func Classify(rows []core.SourceRow, rules []core.OverrideRule, keywords []core.TransferKeyword) ([]core.Transaction, []core.Warning) {
	txns := base(rows)
	txns, warnings := applyOverrides(txns, rules)
	txns = applyKeywords(txns, keywords)
	return txns, warnings
}

// base assigns record types from account type and amount sign. Card credits
// (refunds and payments received) and checking debits that are card payments
// are dropped: both would double-count money already represented elsewhere.
func base(rows []core.SourceRow) []core.Transaction {
	txns := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		desc := core.CleanMerchant(r.Description)

		var (
			rt       core.RecordType
			category string
		)
		switch r.AccountType {
		case core.CheckingAccount:
			switch {
			case containsAny(desc, transferKeywords):
				rt, category = core.Transfer, categoryTransfer
			case r.Amount.Cents >= 0:
				rt, category = core.Income, categoryIncome
			case containsAny(desc, ccPaymentKeywords):
				continue
			default:
				rt, category = core.Expense, categoryUncategorized
			}
		default: // card
			if r.Amount.Cents >= 0 {
				continue
			}
			rt = core.Expense
			category = r.Category
			if category == "" {
				category = categoryUncategorized
			}
		}

		txns = append(txns, core.Transaction{
			Date:        r.Date,
			Description: desc,
			Amount:      r.Amount.Abs(),
			Category:    category,
			Account:     r.Account,
			AccountType: r.AccountType,
			RecordType:  rt,
			Seq:         r.Seq,
		})
	}
	return txns
}

// applyOverrides applies each active rule in insertion order, so the last
// matching rule wins on conflicting fields. Rows matched by an exclude rule
// are removed entirely.
func applyOverrides(txns []core.Transaction, rules []core.OverrideRule) ([]core.Transaction, []core.Warning) {
	var warnings []core.Warning
	excluded := make(map[int]bool)

	// Rules match on the amount as classified, not as previously overridden,
	// so two rules keyed to the same row compose instead of shadowing.
	original := make([]core.Money, len(txns))
	for i := range txns {
		original[i] = txns[i].Amount
	}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			warnings = append(warnings, core.Warning{
				Kind:   core.WarnDataQuality,
				Source: "overrides",
				Detail: fmt.Sprintf("rule %s skipped: %v", rule.ID, err),
			})
			continue
		}
		for i := range txns {
			if excluded[i] {
				continue
			}
			probe := txns[i]
			probe.Amount = original[i]
			if !rule.Matches(probe) {
				continue
			}
			switch rule.Action {
			case core.ActionExclude:
				excluded[i] = true
			case core.ActionOverrideAmount:
				txns[i].Amount = *rule.NewAmount
			case core.ActionRecategorize:
				txns[i].Category = rule.NewCategory
			}
		}
	}

	if len(excluded) == 0 {
		return txns, warnings
	}
	kept := make([]core.Transaction, 0, len(txns)-len(excluded))
	for i, t := range txns {
		if !excluded[i] {
			kept = append(kept, t)
		}
	}
	return kept, warnings
}

// applyKeywords forces checking-originated rows matching a user keyword to
// transfer, even when an earlier override assigned a different record type.
func applyKeywords(txns []core.Transaction, keywords []core.TransferKeyword) []core.Transaction {
	if len(keywords) == 0 {
		return txns
	}
	for i := range txns {
		if txns[i].AccountType != core.CheckingAccount {
			continue
		}
		desc := strings.ToLower(txns[i].Description)
		for _, kw := range keywords {
			k := strings.ToLower(strings.TrimSpace(kw.Keyword))
			if k == "" {
				continue
			}
			if strings.Contains(desc, k) {
				txns[i].RecordType = core.Transfer
				break
			}
		}
	}
	return txns
}
