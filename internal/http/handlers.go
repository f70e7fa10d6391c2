package http

import (
	"errors"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/pipeline"
)

type warningJSON struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
	Detail string `json:"detail"`
}

type transactionJSON struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Account     string `json:"account"`
	AccountType string `json:"account_type"`
	RecordType  string `json:"record_type"`
}

func toWarningsJSON(warnings []core.Warning) []warningJSON {
	out := make([]warningJSON, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, warningJSON{Kind: string(w.Kind), Source: w.Source, Detail: w.Detail})
	}
	return out
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	warnings, err := s.svc.Reload(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": toWarningsJSON(warnings)})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter pipeline.TransactionFilter
	var err error

	if filter.From, err = parseDateParam(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	if filter.To, err = parseDateParam(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}
	filter.Account = sanitizeInput(r.URL.Query().Get("account"))
	if v := r.URL.Query().Get("record_type"); v != "" {
		rt := core.RecordType(v)
		if !rt.Valid() {
			writeError(w, http.StatusBadRequest, "invalid record_type")
			return
		}
		filter.RecordType = rt
	}

	txns, err := s.svc.Transactions(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionJSON{
			Date:        t.Date.Key(),
			Description: t.Description,
			AmountCents: t.Amount.Cents,
			Category:    t.Category,
			Account:     t.Account,
			AccountType: string(t.AccountType),
			RecordType:  string(t.RecordType),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

type subscriptionJSON struct {
	Merchant            string `json:"merchant"`
	Cadence             string `json:"cadence"`
	AvgChargeCents      int64  `json:"avg_charge_cents"`
	Occurrences         int    `json:"occurrences"`
	AnnualizedCostCents int64  `json:"annualized_cost_cents"`
	FirstSeen           string `json:"first_seen"`
	LastSeen            string `json:"last_seen"`
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.Subscriptions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List subscriptions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	out := make([]subscriptionJSON, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionJSON{
			Merchant:            sub.Merchant,
			Cadence:             string(sub.Cadence),
			AvgChargeCents:      sub.AvgCharge.Cents,
			Occurrences:         sub.Occurrences,
			AnnualizedCostCents: sub.AnnualizedCost.Cents,
			FirstSeen:           sub.FirstSeen.Key(),
			LastSeen:            sub.LastSeen.Key(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

type insightJSON struct {
	Kind          string  `json:"kind"`
	Category      string  `json:"category"`
	Merchant      string  `json:"merchant,omitempty"`
	Month         string  `json:"month"`
	CurrentCents  int64   `json:"current_cents"`
	BaselineCents int64   `json:"baseline_cents"`
	ChangeCents   int64   `json:"change_cents"`
	PctChange     float64 `json:"pct_change"`
	Spike         bool    `json:"spike"`
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	refMonth, err := parseMonthParam(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
		return
	}
	insights, err := s.svc.Insights(r.Context(), refMonth)
	if err != nil {
		slog.ErrorContext(r.Context(), "List insights failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list insights")
		return
	}
	out := make([]insightJSON, 0, len(insights))
	for _, in := range insights {
		out = append(out, insightJSON{
			Kind:          string(in.Kind),
			Category:      in.Category,
			Merchant:      in.Merchant,
			Month:         in.Month.String(),
			CurrentCents:  in.CurrentTotal.Cents,
			BaselineCents: in.Baseline.Cents,
			ChangeCents:   in.Change.Cents,
			PctChange:     in.PctChange,
			Spike:         in.Spike,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": out})
}

type proratedJSON struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Type                string  `json:"type,omitempty"`
	AmountPerYearCents  int64   `json:"amount_per_year_cents"`
	EmployerMatchCents  int64   `json:"employer_match_cents"`
	CoverageFraction    float64 `json:"coverage_fraction"`
	ProratedAmountCents int64   `json:"prorated_amount_cents"`
	ProratedMatchCents  int64   `json:"prorated_match_cents"`
}

func (s *Server) handleProratedContributions(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearParam(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	prorated, err := s.svc.ProratedContributions(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Prorated contributions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute prorated contributions")
		return
	}
	out := make([]proratedJSON, 0, len(prorated))
	for _, p := range prorated {
		out = append(out, proratedJSON{
			ID:                  p.Entry.ID,
			Name:                p.Entry.Name,
			Type:                p.Entry.Type,
			AmountPerYearCents:  p.Entry.AmountPerYear.Cents,
			EmployerMatchCents:  p.Entry.EmployerMatch.Cents,
			CoverageFraction:    p.CoverageFraction,
			ProratedAmountCents: p.ProratedAmount.Cents,
			ProratedMatchCents:  p.ProratedMatch.Cents,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "contributions": out})
}

// writeMutationError maps service errors to HTTP status codes.
func writeMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrUnknownAction),
		errors.Is(err, core.ErrMissingAmount),
		errors.Is(err, core.ErrMissingCategory),
		errors.Is(err, core.ErrEmptyKeyword),
		errors.Is(err, core.ErrEmptyName):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Mutation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}
