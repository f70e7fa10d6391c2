package core

import (
	"errors"
	"strings"
)

const (
	ActionExclude        OverrideAction = "exclude"
	ActionOverrideAmount OverrideAction = "override_amount"
	ActionRecategorize   OverrideAction = "recategorize"
)

type (
	OverrideAction string

	// OverrideRule is a user correction matched against classified rows by
	// (Date, Description, OriginalAmount). Exactly one action per rule.
	OverrideRule struct {
		ID             string
		Date           Date
		Description    string
		OriginalAmount Money
		Action         OverrideAction
		NewAmount      *Money
		NewCategory    string
		Notes          string
	}

	// TransferKeyword reclassifies checking-originated rows whose description
	// contains the keyword (case-insensitive) as transfers.
	TransferKeyword struct {
		ID      string
		Keyword string
		Notes   string
	}

	// ContributionEntry is an annual retirement/savings contribution figure,
	// prorated against actual data coverage when reported.
	ContributionEntry struct {
		ID            string
		Name          string
		Type          string
		AmountPerYear Money
		EmployerMatch Money
		Notes         string
	}
)

var (
	ErrUnknownAction   = errors.New("unknown override action")
	ErrMissingAmount   = errors.New("override_amount rule has no new amount")
	ErrMissingCategory = errors.New("recategorize rule has no new category")
	ErrEmptyKeyword    = errors.New("empty keyword")
	ErrEmptyName       = errors.New("empty name")
)

func (a OverrideAction) Valid() bool {
	switch a {
	case ActionExclude, ActionOverrideAmount, ActionRecategorize:
		return true
	}
	return false
}

func (r OverrideRule) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	switch r.Action {
	case ActionExclude:
	case ActionOverrideAmount:
		if r.NewAmount == nil {
			return ErrMissingAmount
		}
		if r.NewAmount.Cents < 0 {
			return ErrInvalidAmount
		}
	case ActionRecategorize:
		if strings.TrimSpace(r.NewCategory) == "" {
			return ErrMissingCategory
		}
	default:
		return ErrUnknownAction
	}
	return nil
}

// Matches reports whether the rule's match key hits the given classified row.
func (r OverrideRule) Matches(t Transaction) bool {
	return r.Date.Key() == t.Date.Key() &&
		r.Description == t.Description &&
		r.OriginalAmount.Cents == t.Amount.Cents
}

func (k TransferKeyword) Validate() error {
	if strings.TrimSpace(k.Keyword) == "" {
		return ErrEmptyKeyword
	}
	return nil
}

func (c ContributionEntry) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.AmountPerYear.Cents < 0 || c.EmployerMatch.Cents < 0 {
		return ErrInvalidAmount
	}
	if c.AmountPerYear.Cents == 0 && c.EmployerMatch.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}
