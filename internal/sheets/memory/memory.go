// Package memory is an in-process SnapshotWriter used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"bilancio/internal/core"
)

type Store struct {
	mu     sync.Mutex
	rows   []core.Transaction
	writes int
}

func New() *Store {
	return &Store{}
}

// WriteSnapshot replaces the held copy, mirroring the clear-then-write
// behavior of the sheet exporter.
func (s *Store) WriteSnapshot(_ context.Context, txns []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = make([]core.Transaction, len(txns))
	copy(s.rows, txns)
	s.writes++
	return nil
}

// Snapshot returns a copy of the last written dataset.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, len(s.rows))
	copy(out, s.rows)
	return out
}

// Writes returns how many snapshots have been written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
