package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-05")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Key() != "2025-01-05" {
		t.Errorf("Key() = %q, want 2025-01-05", d.Key())
	}
	if _, err := ParseDate("01/05/2025 garbage"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestMonthPrev(t *testing.T) {
	tests := []struct {
		in   Month
		want Month
	}{
		{Month{2025, time.March}, Month{2025, time.February}},
		{Month{2025, time.January}, Month{2024, time.December}},
	}
	for _, tt := range tests {
		if got := tt.in.Prev(); got != tt.want {
			t.Errorf("%v.Prev() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{450, "4.50"},
		{-1205, "-12.05"},
		{0, "0.00"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 5),
		Description: "Coffee Shop",
		Amount:      Money{Cents: 450},
		RecordType:  Expense,
		AccountType: CardAccount,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bad := good
	bad.Amount = Money{Cents: -450}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: got %v, want ErrInvalidAmount", err)
	}

	bad = good
	bad.Description = "  "
	if err := bad.Validate(); !errors.Is(err, ErrEmptyDescription) {
		t.Errorf("blank description: got %v, want ErrEmptyDescription", err)
	}
}

func TestOverrideRuleValidate(t *testing.T) {
	base := OverrideRule{
		Date:           NewDate(2025, 1, 5),
		Description:    "Coffee Shop",
		OriginalAmount: Money{Cents: 450},
	}

	tests := []struct {
		name    string
		mutate  func(*OverrideRule)
		wantErr error
	}{
		{"exclude is valid", func(r *OverrideRule) { r.Action = ActionExclude }, nil},
		{"override_amount needs amount", func(r *OverrideRule) { r.Action = ActionOverrideAmount }, ErrMissingAmount},
		{"override_amount with amount", func(r *OverrideRule) {
			r.Action = ActionOverrideAmount
			r.NewAmount = &Money{Cents: 100}
		}, nil},
		{"recategorize needs category", func(r *OverrideRule) { r.Action = ActionRecategorize }, ErrMissingCategory},
		{"unknown action", func(r *OverrideRule) { r.Action = "delete" }, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
