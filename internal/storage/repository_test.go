package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestReplaceAndLoadTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []core.SourceRow{
		{Date: mustDate(t, "2025-01-05"), Description: "Coffee Shop", Amount: core.Money{Cents: -450}, Account: "Chase Card", AccountType: core.CardAccount, Seq: 0},
		{Date: mustDate(t, "2025-01-05"), Description: "Coffee Shop", Amount: core.Money{Cents: -450}, Account: "Chase Card", AccountType: core.CardAccount, Seq: 1},
		{Date: mustDate(t, "2025-01-06"), Description: "Payroll", Amount: core.Money{Cents: 250000}, Account: "Checking", AccountType: core.CheckingAccount, Seq: 0},
	}
	if err := repo.ReplaceTransactions(ctx, rows); err != nil {
		t.Fatalf("ReplaceTransactions: %v", err)
	}

	got, err := repo.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i].Date.Key() != rows[i].Date.Key() ||
			got[i].Description != rows[i].Description ||
			got[i].Amount != rows[i].Amount ||
			got[i].Account != rows[i].Account ||
			got[i].AccountType != rows[i].AccountType ||
			got[i].Seq != rows[i].Seq {
			t.Errorf("row %d: got %+v, want %+v", i, got[i], rows[i])
		}
	}

	// A second replace drops the previous set entirely.
	if err := repo.ReplaceTransactions(ctx, rows[:1]); err != nil {
		t.Fatalf("second ReplaceTransactions: %v", err)
	}
	got, err = repo.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions after replace: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("after replace got %d rows, want 1", len(got))
	}
}

func TestImportWarningsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	warnings := []core.Warning{
		{Kind: core.WarnParse, Source: "card.csv", Detail: "row 3: invalid date"},
		{Kind: core.WarnSchema, Source: "unknown.csv", Detail: "no layout matched, using default"},
	}
	if err := repo.ReplaceImportWarnings(ctx, warnings); err != nil {
		t.Fatalf("ReplaceImportWarnings: %v", err)
	}
	got, err := repo.LoadImportWarnings(ctx)
	if err != nil {
		t.Fatalf("LoadImportWarnings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d warnings, want 2", len(got))
	}
	if got[0] != warnings[0] || got[1] != warnings[1] {
		t.Errorf("warnings round trip mismatch: %+v", got)
	}
}

func TestOverrideLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	amount := core.Money{Cents: 1200}
	first, err := repo.AddOverride(ctx, core.OverrideRule{
		Date:           mustDate(t, "2025-02-01"),
		Description:    "Gym Membership",
		OriginalAmount: core.Money{Cents: 4500},
		Action:         core.ActionOverrideAmount,
		NewAmount:      &amount,
	})
	if err != nil {
		t.Fatalf("AddOverride: %v", err)
	}
	if first.ID == "" {
		t.Fatal("AddOverride did not assign an id")
	}

	second, err := repo.AddOverride(ctx, core.OverrideRule{
		Date:           mustDate(t, "2025-02-01"),
		Description:    "Gym Membership",
		OriginalAmount: core.Money{Cents: 4500},
		Action:         core.ActionRecategorize,
		NewCategory:    "Health",
	})
	if err != nil {
		t.Fatalf("second AddOverride: %v", err)
	}

	rules, err := repo.ListOverrides(ctx)
	if err != nil {
		t.Fatalf("ListOverrides: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].ID != first.ID || rules[1].ID != second.ID {
		t.Error("ListOverrides did not preserve insertion order")
	}
	if rules[0].NewAmount == nil || rules[0].NewAmount.Cents != 1200 {
		t.Errorf("rule 0 new amount = %v, want 1200", rules[0].NewAmount)
	}
	if rules[1].NewAmount != nil {
		t.Errorf("rule 1 new amount = %v, want nil", rules[1].NewAmount)
	}
	if rules[1].NewCategory != "Health" {
		t.Errorf("rule 1 new category = %q, want Health", rules[1].NewCategory)
	}

	if err := repo.RemoveOverride(ctx, first.ID); err != nil {
		t.Fatalf("RemoveOverride: %v", err)
	}
	rules, err = repo.ListOverrides(ctx)
	if err != nil {
		t.Fatalf("ListOverrides after remove: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != second.ID {
		t.Errorf("after remove got %+v", rules)
	}

	if err := repo.RemoveOverride(ctx, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("RemoveOverride on missing id: got %v, want ErrNotFound", err)
	}
}

func TestAddOverrideRejectsInvalidRule(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.AddOverride(context.Background(), core.OverrideRule{
		Date:           mustDate(t, "2025-02-01"),
		Description:    "Gym Membership",
		OriginalAmount: core.Money{Cents: 4500},
		Action:         core.ActionOverrideAmount,
	})
	if !errors.Is(err, core.ErrMissingAmount) {
		t.Errorf("got %v, want ErrMissingAmount", err)
	}
}

func TestKeywordLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	kw, err := repo.AddKeyword(ctx, core.TransferKeyword{Keyword: "brokerage xfer"})
	if err != nil {
		t.Fatalf("AddKeyword: %v", err)
	}
	if kw.ID == "" {
		t.Fatal("AddKeyword did not assign an id")
	}

	// The keyword column is case-insensitive unique.
	if _, err := repo.AddKeyword(ctx, core.TransferKeyword{Keyword: "Brokerage XFER"}); err == nil {
		t.Error("duplicate keyword accepted")
	}

	if _, err := repo.AddKeyword(ctx, core.TransferKeyword{Keyword: "   "}); !errors.Is(err, core.ErrEmptyKeyword) {
		t.Errorf("blank keyword: got %v, want ErrEmptyKeyword", err)
	}

	list, err := repo.ListKeywords(ctx)
	if err != nil {
		t.Fatalf("ListKeywords: %v", err)
	}
	if len(list) != 1 || list[0].Keyword != "brokerage xfer" {
		t.Errorf("got %+v", list)
	}

	if err := repo.RemoveKeyword(ctx, kw.ID); err != nil {
		t.Fatalf("RemoveKeyword: %v", err)
	}
	if err := repo.RemoveKeyword(ctx, kw.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("RemoveKeyword on missing id: got %v, want ErrNotFound", err)
	}
}

func TestContributionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry, err := repo.AddContribution(ctx, core.ContributionEntry{
		Name:          "401k",
		Type:          "retirement",
		AmountPerYear: core.Money{Cents: 2300000},
		EmployerMatch: core.Money{Cents: 500000},
	})
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	list, err := repo.ListContributions(ctx)
	if err != nil {
		t.Fatalf("ListContributions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d entries, want 1", len(list))
	}
	if list[0] != entry {
		t.Errorf("got %+v, want %+v", list[0], entry)
	}

	if err := repo.RemoveContribution(ctx, entry.ID); err != nil {
		t.Fatalf("RemoveContribution: %v", err)
	}
	if err := repo.RemoveContribution(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("RemoveContribution on missing id: got %v, want ErrNotFound", err)
	}
}
