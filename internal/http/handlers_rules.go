package http

import (
	"encoding/json"
	"net/http"

	"bilancio/internal/core"
)

type overrideJSON struct {
	ID                  string `json:"id,omitempty"`
	Date                string `json:"date"`
	Description         string `json:"description"`
	OriginalAmountCents int64  `json:"original_amount_cents"`
	Action              string `json:"action"`
	NewAmountCents      *int64 `json:"new_amount_cents,omitempty"`
	NewCategory         string `json:"new_category,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

func toOverrideJSON(rule core.OverrideRule) overrideJSON {
	out := overrideJSON{
		ID:                  rule.ID,
		Date:                rule.Date.Key(),
		Description:         rule.Description,
		OriginalAmountCents: rule.OriginalAmount.Cents,
		Action:              string(rule.Action),
		NewCategory:         rule.NewCategory,
		Notes:               rule.Notes,
	}
	if rule.NewAmount != nil {
		cents := rule.NewAmount.Cents
		out.NewAmountCents = &cents
	}
	return out
}

func (s *Server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.ListOverrides(r.Context())
	if err != nil {
		writeMutationError(w, r, "list overrides", err)
		return
	}
	out := make([]overrideJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toOverrideJSON(rule))
	}
	writeJSON(w, http.StatusOK, map[string]any{"overrides": out})
}

func (s *Server) handleAddOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}
	rule := core.OverrideRule{
		Date:           date,
		Description:    sanitizeInput(req.Description),
		OriginalAmount: core.Money{Cents: req.OriginalAmountCents},
		Action:         core.OverrideAction(req.Action),
		NewCategory:    sanitizeInput(req.NewCategory),
		Notes:          sanitizeInput(req.Notes),
	}
	if req.NewAmountCents != nil {
		rule.NewAmount = &core.Money{Cents: *req.NewAmountCents}
	}

	stored, err := s.svc.AddOverride(r.Context(), rule)
	if err != nil {
		writeMutationError(w, r, "add override", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOverrideJSON(stored))
}

func (s *Server) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveOverride(r.Context(), r.PathValue("id")); err != nil {
		writeMutationError(w, r, "remove override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type keywordJSON struct {
	ID      string `json:"id,omitempty"`
	Keyword string `json:"keyword"`
	Notes   string `json:"notes,omitempty"`
}

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.svc.ListKeywords(r.Context())
	if err != nil {
		writeMutationError(w, r, "list keywords", err)
		return
	}
	out := make([]keywordJSON, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, keywordJSON{ID: kw.ID, Keyword: kw.Keyword, Notes: kw.Notes})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": out})
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var req keywordJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stored, err := s.svc.AddKeyword(r.Context(), core.TransferKeyword{
		Keyword: sanitizeInput(req.Keyword),
		Notes:   sanitizeInput(req.Notes),
	})
	if err != nil {
		writeMutationError(w, r, "add keyword", err)
		return
	}
	writeJSON(w, http.StatusCreated, keywordJSON{ID: stored.ID, Keyword: stored.Keyword, Notes: stored.Notes})
}

func (s *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveKeyword(r.Context(), r.PathValue("id")); err != nil {
		writeMutationError(w, r, "remove keyword", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contributionJSON struct {
	ID                 string `json:"id,omitempty"`
	Name               string `json:"name"`
	Type               string `json:"type,omitempty"`
	AmountPerYearCents int64  `json:"amount_per_year_cents"`
	EmployerMatchCents int64  `json:"employer_match_cents"`
	Notes              string `json:"notes,omitempty"`
}

func toContributionJSON(e core.ContributionEntry) contributionJSON {
	return contributionJSON{
		ID:                 e.ID,
		Name:               e.Name,
		Type:               e.Type,
		AmountPerYearCents: e.AmountPerYear.Cents,
		EmployerMatchCents: e.EmployerMatch.Cents,
		Notes:              e.Notes,
	}
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ListContributions(r.Context())
	if err != nil {
		writeMutationError(w, r, "list contributions", err)
		return
	}
	out := make([]contributionJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toContributionJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contributions": out})
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stored, err := s.svc.AddContribution(r.Context(), core.ContributionEntry{
		Name:          sanitizeInput(req.Name),
		Type:          sanitizeInput(req.Type),
		AmountPerYear: core.Money{Cents: req.AmountPerYearCents},
		EmployerMatch: core.Money{Cents: req.EmployerMatchCents},
		Notes:         sanitizeInput(req.Notes),
	})
	if err != nil {
		writeMutationError(w, r, "add contribution", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContributionJSON(stored))
}

func (s *Server) handleRemoveContribution(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveContribution(r.Context(), r.PathValue("id")); err != nil {
		writeMutationError(w, r, "remove contribution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
