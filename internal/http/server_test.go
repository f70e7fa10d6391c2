package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/pipeline"
)

// fakeStore is a minimal in-memory pipeline.Store for handler tests.
type fakeStore struct {
	rows          []core.SourceRow
	overrides     []core.OverrideRule
	keywords      []core.TransferKeyword
	contributions []core.ContributionEntry
	nextID        int
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeStore) LoadTransactions(ctx context.Context) ([]core.SourceRow, error) {
	return f.rows, nil
}

func (f *fakeStore) LoadImportWarnings(ctx context.Context) ([]core.Warning, error) {
	return nil, nil
}

func (f *fakeStore) ListOverrides(ctx context.Context) ([]core.OverrideRule, error) {
	return f.overrides, nil
}

func (f *fakeStore) AddOverride(ctx context.Context, rule core.OverrideRule) (core.OverrideRule, error) {
	if err := rule.Validate(); err != nil {
		return core.OverrideRule{}, err
	}
	rule.ID = f.id()
	f.overrides = append(f.overrides, rule)
	return rule, nil
}

func (f *fakeStore) RemoveOverride(ctx context.Context, id string) error {
	for i, r := range f.overrides {
		if r.ID == id {
			f.overrides = append(f.overrides[:i], f.overrides[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) ListKeywords(ctx context.Context) ([]core.TransferKeyword, error) {
	return f.keywords, nil
}

func (f *fakeStore) AddKeyword(ctx context.Context, kw core.TransferKeyword) (core.TransferKeyword, error) {
	if err := kw.Validate(); err != nil {
		return core.TransferKeyword{}, err
	}
	kw.ID = f.id()
	f.keywords = append(f.keywords, kw)
	return kw, nil
}

func (f *fakeStore) RemoveKeyword(ctx context.Context, id string) error {
	for i, k := range f.keywords {
		if k.ID == id {
			f.keywords = append(f.keywords[:i], f.keywords[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) ListContributions(ctx context.Context) ([]core.ContributionEntry, error) {
	return f.contributions, nil
}

func (f *fakeStore) AddContribution(ctx context.Context, e core.ContributionEntry) (core.ContributionEntry, error) {
	if err := e.Validate(); err != nil {
		return core.ContributionEntry{}, err
	}
	e.ID = f.id()
	f.contributions = append(f.contributions, e)
	return e, nil
}

func (f *fakeStore) RemoveContribution(ctx context.Context, id string) error {
	for i, e := range f.contributions {
		if e.ID == id {
			f.contributions = append(f.contributions[:i], f.contributions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func newTestServer(store *fakeStore) *Server {
	srv := NewServer(":0", pipeline.NewService(store, nil))
	return srv
}

func sourceRow(date, desc string, cents int64, acctType core.AccountType) core.SourceRow {
	d, _ := core.ParseDate(date)
	account := "Chase Card"
	if acctType == core.CheckingAccount {
		account = "Checking"
	}
	return core.SourceRow{
		Date: d, Description: desc, Amount: core.Money{Cents: cents},
		Account: account, AccountType: acctType,
	}
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

func TestReloadReturnsWarnings(t *testing.T) {
	store := &fakeStore{
		rows:      []core.SourceRow{sourceRow("2025-01-05", "Coffee Shop", -450, core.CardAccount)},
		overrides: []core.OverrideRule{{ID: "bad", Action: "bogus"}},
	}
	srv := newTestServer(store)

	rr := doJSON(t, srv, http.MethodPost, "/reload", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reload status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Warnings []warningJSON `json:"warnings"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(resp.Warnings))
	}
	if resp.Warnings[0].Kind != "data_quality" {
		t.Errorf("warning kind = %q", resp.Warnings[0].Kind)
	}
}

func TestListTransactionsWithFilters(t *testing.T) {
	store := &fakeStore{rows: []core.SourceRow{
		sourceRow("2025-01-05", "Coffee Shop", -450, core.CardAccount),
		sourceRow("2025-02-05", "Book Store", -2000, core.CardAccount),
		sourceRow("2025-02-06", "Payroll", 250000, core.CheckingAccount),
	}}
	srv := newTestServer(store)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"all", "/transactions", 3},
		{"from", "/transactions?from=2025-02-01", 2},
		{"range", "/transactions?from=2025-02-01&to=2025-02-05", 1},
		{"record type", "/transactions?record_type=income", 1},
		{"account", "/transactions?account=Checking", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodGet, tc.path, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			var resp struct {
				Transactions []transactionJSON `json:"transactions"`
			}
			decodeBody(t, rr, &resp)
			if len(resp.Transactions) != tc.want {
				t.Errorf("got %d transactions, want %d", len(resp.Transactions), tc.want)
			}
		})
	}

	t.Run("bad date", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/transactions?from=garbage", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status=%d, want 400", rr.Code)
		}
	})
	t.Run("bad record type", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/transactions?record_type=loan", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status=%d, want 400", rr.Code)
		}
	})
}

func TestOverrideEndpoints(t *testing.T) {
	store := &fakeStore{rows: []core.SourceRow{
		sourceRow("2025-01-05", "Coffee Shop", -450, core.CardAccount),
	}}
	srv := newTestServer(store)

	rr := doJSON(t, srv, http.MethodPost, "/overrides", overrideJSON{
		Date:                "2025-01-05",
		Description:         "Coffee Shop",
		OriginalAmountCents: 450,
		Action:              "exclude",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created overrideJSON
	decodeBody(t, rr, &created)
	if created.ID == "" {
		t.Fatal("created override has no id")
	}

	// The excluded row disappears from the transactions view.
	rr = doJSON(t, srv, http.MethodGet, "/transactions", nil)
	var resp struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) != 0 {
		t.Errorf("got %d transactions after exclude, want 0", len(resp.Transactions))
	}

	rr = doJSON(t, srv, http.MethodDelete, "/overrides/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, "/overrides/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", rr.Code)
	}
}

func TestAddOverrideValidation(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	cases := []struct {
		name string
		body overrideJSON
		want int
	}{
		{"bad date", overrideJSON{Date: "01/05/2025", Description: "x", Action: "exclude"}, http.StatusUnprocessableEntity},
		{"unknown action", overrideJSON{Date: "2025-01-05", Description: "x", Action: "zap"}, http.StatusUnprocessableEntity},
		{"override_amount without amount", overrideJSON{Date: "2025-01-05", Description: "x", Action: "override_amount"}, http.StatusUnprocessableEntity},
		{"recategorize without category", overrideJSON{Date: "2025-01-05", Description: "x", Action: "recategorize"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/overrides", tc.body)
			if rr.Code != tc.want {
				t.Errorf("status=%d, want %d (body=%s)", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestKeywordEndpoints(t *testing.T) {
	store := &fakeStore{rows: []core.SourceRow{
		sourceRow("2025-01-05", "Acme Brokerage", -50000, core.CheckingAccount),
	}}
	srv := newTestServer(store)

	rr := doJSON(t, srv, http.MethodPost, "/keywords", keywordJSON{Keyword: "acme brokerage"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created keywordJSON
	decodeBody(t, rr, &created)

	rr = doJSON(t, srv, http.MethodGet, "/transactions?record_type=transfer", nil)
	var resp struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) != 1 {
		t.Fatalf("got %d transfers, want 1", len(resp.Transactions))
	}

	rr = doJSON(t, srv, http.MethodPost, "/keywords", keywordJSON{Keyword: "   "})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank keyword status=%d, want 422", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/keywords/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestContributionEndpoints(t *testing.T) {
	store := &fakeStore{rows: []core.SourceRow{
		sourceRow("2025-01-05", "Coffee Shop", -450, core.CardAccount),
		sourceRow("2025-02-05", "Coffee Shop", -450, core.CardAccount),
		sourceRow("2025-03-05", "Coffee Shop", -450, core.CardAccount),
	}}
	srv := newTestServer(store)

	rr := doJSON(t, srv, http.MethodPost, "/contributions", contributionJSON{
		Name:               "401k",
		Type:               "retirement",
		AmountPerYearCents: 1200000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/contributions/prorated?year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("prorated status=%d", rr.Code)
	}
	var resp struct {
		Year          int            `json:"year"`
		Contributions []proratedJSON `json:"contributions"`
	}
	decodeBody(t, rr, &resp)
	if resp.Year != 2025 || len(resp.Contributions) != 1 {
		t.Fatalf("got year=%d entries=%d", resp.Year, len(resp.Contributions))
	}
	// 3 of 12 months covered.
	if resp.Contributions[0].ProratedAmountCents != 300000 {
		t.Errorf("prorated = %d, want 300000", resp.Contributions[0].ProratedAmountCents)
	}

	rr = doJSON(t, srv, http.MethodPost, "/contributions", contributionJSON{Name: "empty"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero-amount contribution status=%d, want 422", rr.Code)
	}
}

func TestSubscriptionsEndpoint(t *testing.T) {
	store := &fakeStore{rows: []core.SourceRow{
		sourceRow("2025-01-10", "STREAMFLIX", -1599, core.CardAccount),
		sourceRow("2025-02-09", "STREAMFLIX", -1599, core.CardAccount),
		sourceRow("2025-03-11", "STREAMFLIX", -1599, core.CardAccount),
	}}
	srv := newTestServer(store)

	rr := doJSON(t, srv, http.MethodGet, "/subscriptions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp struct {
		Subscriptions []subscriptionJSON `json:"subscriptions"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Subscriptions) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(resp.Subscriptions))
	}
	sub := resp.Subscriptions[0]
	if sub.Cadence != "monthly" || sub.AnnualizedCostCents != 1599*12 {
		t.Errorf("got cadence=%s annualized=%d", sub.Cadence, sub.AnnualizedCostCents)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	// March rent doubles against a flat three-month baseline.
	store := &fakeStore{rows: []core.SourceRow{
		sourceRow("2024-12-05", "Apartment Rent", -100000, core.CardAccount),
		sourceRow("2025-01-05", "Apartment Rent", -100000, core.CardAccount),
		sourceRow("2025-02-05", "Apartment Rent", -100000, core.CardAccount),
		sourceRow("2025-03-05", "Apartment Rent", -200000, core.CardAccount),
	}}
	srv := newTestServer(store)

	rr := doJSON(t, srv, http.MethodGet, "/insights?month=2025-03", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp struct {
		Insights []insightJSON `json:"insights"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Insights) != 2 {
		t.Fatalf("got %d insights, want 2", len(resp.Insights))
	}
	// The merchant's 2000.00 spend outranks the category's 1000.00 deviation.
	top := resp.Insights[0]
	if top.Kind != "merchant" || top.Merchant != "Apartment Rent" || top.CurrentCents != 200000 {
		t.Errorf("top insight = %+v, want the merchant entry", top)
	}
	in := resp.Insights[1]
	if in.Kind != "category" || !in.Spike || in.ChangeCents != 100000 || in.Month != "2025-03" {
		t.Errorf("got %+v", in)
	}

	rr = doJSON(t, srv, http.MethodGet, "/insights?month=bogus", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad month status=%d, want 400", rr.Code)
	}
}
