// Package pipeline is the service layer over the canonical store. It holds a
// cached cleaned snapshot, rebuilds it when the underlying stores change, and
// serves every read from the same immutable snapshot so a caller never sees a
// half-applied rule set.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"bilancio/internal/analytics"
	"bilancio/internal/classify"
	"bilancio/internal/core"
)

// Store is the persistence surface the pipeline needs. *storage.SQLiteRepository
// satisfies it; tests plug in an in-memory fake.
type Store interface {
	LoadTransactions(ctx context.Context) ([]core.SourceRow, error)
	LoadImportWarnings(ctx context.Context) ([]core.Warning, error)

	ListOverrides(ctx context.Context) ([]core.OverrideRule, error)
	AddOverride(ctx context.Context, rule core.OverrideRule) (core.OverrideRule, error)
	RemoveOverride(ctx context.Context, id string) error

	ListKeywords(ctx context.Context) ([]core.TransferKeyword, error)
	AddKeyword(ctx context.Context, kw core.TransferKeyword) (core.TransferKeyword, error)
	RemoveKeyword(ctx context.Context, id string) error

	ListContributions(ctx context.Context) ([]core.ContributionEntry, error)
	AddContribution(ctx context.Context, entry core.ContributionEntry) (core.ContributionEntry, error)
	RemoveContribution(ctx context.Context, id string) error
}

// Publisher notifies downstream consumers that the cleaned dataset changed.
type Publisher interface {
	PublishDatasetReloaded(ctx context.Context, generation uint64, transactions int) error
}

// Snapshot is one immutable build of the cleaned dataset. Warnings carry both
// the persisted import warnings and the warnings from rule application.
type Snapshot struct {
	Generation   uint64
	Transactions []core.Transaction
	Warnings     []core.Warning
}

type Service struct {
	store      Store
	publisher  Publisher
	snapshot   atomic.Pointer[Snapshot]
	generation atomic.Uint64
	mutations  atomic.Uint64
	reloads    singleflight.Group
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Reload rebuilds the snapshot from the canonical store and the current rule
// sets, swaps it in atomically, and returns every warning accumulated along
// the way. Warnings are advisory; a reload with warnings still succeeds.
// Concurrent callers share one rebuild.
func (s *Service) Reload(ctx context.Context) ([]core.Warning, error) {
	snap, err := s.rebuild(ctx)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDatasetReloaded(ctx, snap.Generation, len(snap.Transactions)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reload event",
				"generation", snap.Generation, "error", err)
			// Reload already succeeded locally.
		}
	}
	return snap.Warnings, nil
}

func (s *Service) rebuild(ctx context.Context) (*Snapshot, error) {
	v, err, _ := s.reloads.Do("rebuild", func() (any, error) {
		for {
			mark := s.mutations.Load()

			rows, err := s.store.LoadTransactions(ctx)
			if err != nil {
				return nil, fmt.Errorf("load transactions: %w", err)
			}
			imported, err := s.store.LoadImportWarnings(ctx)
			if err != nil {
				return nil, fmt.Errorf("load import warnings: %w", err)
			}
			rules, err := s.store.ListOverrides(ctx)
			if err != nil {
				return nil, fmt.Errorf("load overrides: %w", err)
			}
			keywords, err := s.store.ListKeywords(ctx)
			if err != nil {
				return nil, fmt.Errorf("load keywords: %w", err)
			}

			txns, ruleWarnings := classify.Classify(rows, rules, keywords)

			warnings := make([]core.Warning, 0, len(imported)+len(ruleWarnings))
			warnings = append(warnings, imported...)
			warnings = append(warnings, ruleWarnings...)

			// A mutation that landed while this build read the stores is
			// missing from it; installing it would clobber the invalidation.
			if s.mutations.Load() != mark {
				continue
			}
			snap := &Snapshot{
				Generation:   s.generation.Add(1),
				Transactions: txns,
				Warnings:     warnings,
			}
			s.snapshot.Store(snap)
			if s.mutations.Load() != mark {
				// Mutation raced the install itself; rebuild from fresh stores.
				continue
			}
			slog.InfoContext(ctx, "Snapshot rebuilt",
				"generation", snap.Generation,
				"transactions", len(txns),
				"warnings", len(warnings))
			return snap, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// current returns the cached snapshot, building it on first use.
func (s *Service) current(ctx context.Context) (*Snapshot, error) {
	if snap := s.snapshot.Load(); snap != nil {
		return snap, nil
	}
	return s.rebuild(ctx)
}

// invalidate drops the cached snapshot after a store mutation. The next read
// rebuilds from the updated stores. The counter bump lets an in-flight rebuild
// notice that its view of the stores went stale before it installs.
func (s *Service) invalidate() {
	s.mutations.Add(1)
	s.snapshot.Store(nil)
}

// TransactionFilter narrows Transactions output. Zero fields match everything.
type TransactionFilter struct {
	From       core.Date
	To         core.Date
	Account    string
	RecordType core.RecordType
}

func (f TransactionFilter) matches(t core.Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(t.Date.Time) {
		return false
	}
	if f.Account != "" && t.Account != f.Account {
		return false
	}
	if f.RecordType != "" && t.RecordType != f.RecordType {
		return false
	}
	return true
}

// Transactions returns the cleaned dataset, optionally filtered. The result
// preserves snapshot order (date ascending, source order within a date).
func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		if filter.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Warnings returns the warnings accumulated by the current snapshot build.
func (s *Service) Warnings(ctx context.Context) ([]core.Warning, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Warnings, nil
}

func (s *Service) Subscriptions(ctx context.Context) ([]core.SubscriptionCandidate, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.DetectSubscriptions(snap.Transactions), nil
}

// Insights reports month-over-baseline spending changes. A nil refMonth uses
// the latest month present in the dataset.
func (s *Service) Insights(ctx context.Context, refMonth *core.Month) ([]core.Insight, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.ComputeInsights(snap.Transactions, refMonth), nil
}

func (s *Service) ProratedContributions(ctx context.Context, year int) ([]core.ProratedContribution, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListContributions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load contributions: %w", err)
	}
	return analytics.ProrateContributions(entries, snap.Transactions, year), nil
}

func (s *Service) ListOverrides(ctx context.Context) ([]core.OverrideRule, error) {
	return s.store.ListOverrides(ctx)
}

func (s *Service) AddOverride(ctx context.Context, rule core.OverrideRule) (core.OverrideRule, error) {
	stored, err := s.store.AddOverride(ctx, rule)
	if err != nil {
		return core.OverrideRule{}, err
	}
	s.invalidate()
	return stored, nil
}

func (s *Service) RemoveOverride(ctx context.Context, id string) error {
	if err := s.store.RemoveOverride(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) ListKeywords(ctx context.Context) ([]core.TransferKeyword, error) {
	return s.store.ListKeywords(ctx)
}

func (s *Service) AddKeyword(ctx context.Context, kw core.TransferKeyword) (core.TransferKeyword, error) {
	stored, err := s.store.AddKeyword(ctx, kw)
	if err != nil {
		return core.TransferKeyword{}, err
	}
	s.invalidate()
	return stored, nil
}

func (s *Service) RemoveKeyword(ctx context.Context, id string) error {
	if err := s.store.RemoveKeyword(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) ListContributions(ctx context.Context) ([]core.ContributionEntry, error) {
	return s.store.ListContributions(ctx)
}

func (s *Service) AddContribution(ctx context.Context, entry core.ContributionEntry) (core.ContributionEntry, error) {
	stored, err := s.store.AddContribution(ctx, entry)
	if err != nil {
		return core.ContributionEntry{}, err
	}
	// Contributions only feed the prorated view, which reads the store
	// directly, but dropping the snapshot keeps the rule simple.
	s.invalidate()
	return stored, nil
}

func (s *Service) RemoveContribution(ctx context.Context, id string) error {
	if err := s.store.RemoveContribution(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}
