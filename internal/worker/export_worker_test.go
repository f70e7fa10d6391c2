package worker

import (
	"context"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/pipeline"
	"bilancio/internal/sheets/memory"
)

type stubStore struct {
	rows []core.SourceRow
}

func (s *stubStore) LoadTransactions(ctx context.Context) ([]core.SourceRow, error) {
	return s.rows, nil
}

func (s *stubStore) LoadImportWarnings(ctx context.Context) ([]core.Warning, error) {
	return nil, nil
}

func (s *stubStore) ListOverrides(ctx context.Context) ([]core.OverrideRule, error) {
	return nil, nil
}

func (s *stubStore) AddOverride(ctx context.Context, rule core.OverrideRule) (core.OverrideRule, error) {
	return rule, nil
}

func (s *stubStore) RemoveOverride(ctx context.Context, id string) error { return core.ErrNotFound }

func (s *stubStore) ListKeywords(ctx context.Context) ([]core.TransferKeyword, error) {
	return nil, nil
}

func (s *stubStore) AddKeyword(ctx context.Context, kw core.TransferKeyword) (core.TransferKeyword, error) {
	return kw, nil
}

func (s *stubStore) RemoveKeyword(ctx context.Context, id string) error { return core.ErrNotFound }

func (s *stubStore) ListContributions(ctx context.Context) ([]core.ContributionEntry, error) {
	return nil, nil
}

func (s *stubStore) AddContribution(ctx context.Context, e core.ContributionEntry) (core.ContributionEntry, error) {
	return e, nil
}

func (s *stubStore) RemoveContribution(ctx context.Context, id string) error { return core.ErrNotFound }

func TestHandleReloadMessageExportsSnapshot(t *testing.T) {
	d, _ := core.ParseDate("2025-01-05")
	store := &stubStore{rows: []core.SourceRow{{
		Date:        d,
		Description: "Coffee Shop",
		Amount:      core.Money{Cents: -450},
		Account:     "Chase Card",
		AccountType: core.CardAccount,
	}}}
	sink := memory.New()
	w := NewExportWorker(pipeline.NewService(store, nil), sink)

	msg := amqp.NewDatasetReloadedMessage(1, 1)
	if err := w.HandleReloadMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleReloadMessage: %v", err)
	}

	got := sink.Snapshot()
	if len(got) != 1 {
		t.Fatalf("exported %d rows, want 1", len(got))
	}
	if got[0].Description != "Coffee Shop" || got[0].RecordType != core.Expense {
		t.Errorf("exported row = %+v", got[0])
	}
}

func TestExportPicksUpStoreChanges(t *testing.T) {
	store := &stubStore{}
	sink := memory.New()
	w := NewExportWorker(pipeline.NewService(store, nil), sink)
	ctx := context.Background()

	if err := w.Export(ctx); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(sink.Snapshot()) != 0 {
		t.Fatalf("expected empty export")
	}

	d, _ := core.ParseDate("2025-02-01")
	store.rows = append(store.rows, core.SourceRow{
		Date: d, Description: "Book Store", Amount: core.Money{Cents: -2000},
		Account: "Chase Card", AccountType: core.CardAccount,
	})

	if err := w.Export(ctx); err != nil {
		t.Fatalf("second Export: %v", err)
	}
	if len(sink.Snapshot()) != 1 {
		t.Errorf("exported %d rows after store change, want 1", len(sink.Snapshot()))
	}
	if sink.Writes() != 2 {
		t.Errorf("writes = %d, want 2", sink.Writes())
	}
}
