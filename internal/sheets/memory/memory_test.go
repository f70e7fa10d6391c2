package memory

import (
	"context"
	"testing"

	"bilancio/internal/core"
)

func TestWriteSnapshotReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := []core.Transaction{
		{Description: "Coffee Shop", Amount: core.Money{Cents: 450}},
		{Description: "Book Store", Amount: core.Money{Cents: 2000}},
	}
	if err := s.WriteSnapshot(ctx, first); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	second := []core.Transaction{
		{Description: "Grocery Mart", Amount: core.Money{Cents: 4500}},
	}
	if err := s.WriteSnapshot(ctx, second); err != nil {
		t.Fatalf("second WriteSnapshot: %v", err)
	}

	got := s.Snapshot()
	if len(got) != 1 || got[0].Description != "Grocery Mart" {
		t.Errorf("snapshot = %+v", got)
	}
	if s.Writes() != 2 {
		t.Errorf("writes = %d, want 2", s.Writes())
	}

	// Mutating the returned slice must not affect the store.
	got[0].Description = "changed"
	if s.Snapshot()[0].Description != "Grocery Mart" {
		t.Error("Snapshot returned internal slice")
	}
}
