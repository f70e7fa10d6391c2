package sheets

import (
	"context"

	"bilancio/internal/core"
)

// SnapshotWriter replaces an external copy of the cleaned dataset. The
// Google adapter writes a spreadsheet; the memory adapter backs tests.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, txns []core.Transaction) error
}
