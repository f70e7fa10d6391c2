// Package storage persists the canonical transaction store and the three
// user-maintained rule stores in SQLite. The transaction table is rebuilt
// wholesale by the merge step; overrides, keywords, and contributions have
// independent add/remove lifecycles.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bilancio/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceTransactions rebuilds the canonical store in one transaction, so a
// concurrent reader sees either the old set or the new one. Row positions
// preserve merge order, which carries the date-tie ordering guarantee.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, rows []core.SourceRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (position, date, description, amount_cents, category, account, account_type, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		_, err := stmt.ExecContext(ctx, i, row.Date.Key(), row.Description,
			row.Amount.Cents, row.Category, row.Account, string(row.AccountType), row.Seq)
		if err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.InfoContext(ctx, "Canonical transaction store rebuilt", "rows", len(rows))
	return nil
}

// LoadTransactions returns the canonical rows in merge order.
func (r *SQLiteRepository) LoadTransactions(ctx context.Context) ([]core.SourceRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, description, amount_cents, category, account, account_type, seq
		FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.SourceRow
	for rows.Next() {
		var (
			row         core.SourceRow
			dateStr     string
			accountType string
		)
		if err := rows.Scan(&dateStr, &row.Description, &row.Amount.Cents,
			&row.Category, &row.Account, &accountType, &row.Seq); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		row.Date, err = core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		row.AccountType = core.AccountType(accountType)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReplaceImportWarnings stores the warnings collected during the last import
// so a reload can surface them alongside fresh classification warnings.
func (r *SQLiteRepository) ReplaceImportWarnings(ctx context.Context, warnings []core.Warning) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM import_warnings`); err != nil {
		return fmt.Errorf("clear warnings: %w", err)
	}
	for _, w := range warnings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO import_warnings (kind, source, detail) VALUES (?, ?, ?)`,
			string(w.Kind), w.Source, w.Detail)
		if err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) LoadImportWarnings(ctx context.Context) ([]core.Warning, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, source, detail FROM import_warnings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	var out []core.Warning
	for rows.Next() {
		var w core.Warning
		var kind string
		if err := rows.Scan(&kind, &w.Source, &w.Detail); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		w.Kind = core.WarningKind(kind)
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddOverride validates and stores a rule, assigning its id. Insertion order
// is preserved so later rules win on conflicting fields.
func (r *SQLiteRepository) AddOverride(ctx context.Context, rule core.OverrideRule) (core.OverrideRule, error) {
	if err := rule.Validate(); err != nil {
		return core.OverrideRule{}, err
	}
	rule.ID = uuid.NewString()

	var newAmount sql.NullInt64
	if rule.NewAmount != nil {
		newAmount = sql.NullInt64{Int64: rule.NewAmount.Cents, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO overrides (id, date, description, original_amount_cents, action, new_amount_cents, new_category, notes, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, unixepoch())`,
		rule.ID, rule.Date.Key(), rule.Description, rule.OriginalAmount.Cents,
		string(rule.Action), newAmount, nullString(rule.NewCategory), rule.Notes)
	if err != nil {
		return core.OverrideRule{}, fmt.Errorf("insert override: %w", err)
	}
	return rule, nil
}

func (r *SQLiteRepository) ListOverrides(ctx context.Context) ([]core.OverrideRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, original_amount_cents, action, new_amount_cents, new_category, notes
		FROM overrides ORDER BY inserted_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var out []core.OverrideRule
	for rows.Next() {
		var (
			rule      core.OverrideRule
			dateStr   string
			action    string
			newAmount sql.NullInt64
			newCat    sql.NullString
		)
		if err := rows.Scan(&rule.ID, &dateStr, &rule.Description,
			&rule.OriginalAmount.Cents, &action, &newAmount, &newCat, &rule.Notes); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		rule.Date, err = core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		rule.Action = core.OverrideAction(action)
		if newAmount.Valid {
			rule.NewAmount = &core.Money{Cents: newAmount.Int64}
		}
		rule.NewCategory = newCat.String
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RemoveOverride(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "overrides", id)
}

func (r *SQLiteRepository) AddKeyword(ctx context.Context, kw core.TransferKeyword) (core.TransferKeyword, error) {
	if err := kw.Validate(); err != nil {
		return core.TransferKeyword{}, err
	}
	kw.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transfer_keywords (id, keyword, notes, inserted_at) VALUES (?, ?, ?, unixepoch())`,
		kw.ID, kw.Keyword, kw.Notes)
	if err != nil {
		return core.TransferKeyword{}, fmt.Errorf("insert keyword: %w", err)
	}
	return kw, nil
}

func (r *SQLiteRepository) ListKeywords(ctx context.Context) ([]core.TransferKeyword, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, keyword, notes FROM transfer_keywords ORDER BY inserted_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var out []core.TransferKeyword
	for rows.Next() {
		var kw core.TransferKeyword
		if err := rows.Scan(&kw.ID, &kw.Keyword, &kw.Notes); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RemoveKeyword(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "transfer_keywords", id)
}

func (r *SQLiteRepository) AddContribution(ctx context.Context, entry core.ContributionEntry) (core.ContributionEntry, error) {
	if err := entry.Validate(); err != nil {
		return core.ContributionEntry{}, err
	}
	entry.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contributions (id, name, type, amount_per_year_cents, employer_match_cents, notes, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, unixepoch())`,
		entry.ID, entry.Name, entry.Type, entry.AmountPerYear.Cents, entry.EmployerMatch.Cents, entry.Notes)
	if err != nil {
		return core.ContributionEntry{}, fmt.Errorf("insert contribution: %w", err)
	}
	return entry, nil
}

func (r *SQLiteRepository) ListContributions(ctx context.Context) ([]core.ContributionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, amount_per_year_cents, employer_match_cents, notes
		FROM contributions ORDER BY inserted_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	var out []core.ContributionEntry
	for rows.Next() {
		var e core.ContributionEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.AmountPerYear.Cents, &e.EmployerMatch.Cents, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RemoveContribution(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "contributions", id)
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, core.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
