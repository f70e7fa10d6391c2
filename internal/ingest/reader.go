package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// File is one parsed export: the unit the deduplicator assigns sequence
// numbers within.
type File struct {
	Name    string
	Account string
	Rows    []core.SourceRow
}

var dateFormats = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

// ParseFile reads one CSV export, resolves its layout from the filename, and
// normalizes every valid row. A row with an unparsable date or amount is
// skipped and recorded as a warning; the rest of the file still processes.
func ParseFile(path string) (File, []core.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	layout, fallback := MatchLayout(stem)

	var warnings []core.Warning
	if fallback {
		warnings = append(warnings, core.Warning{
			Kind:   core.WarnSchema,
			Source: filepath.Base(path),
			Detail: fmt.Sprintf("no layout matches %q, using default", stem),
		})
	}

	out := File{Name: filepath.Base(path), Account: AccountLabel(stem)}
	rows, warns, err := parseRows(f, layout, out.Name, out.Account)
	if err != nil {
		return File{}, warnings, err
	}
	out.Rows = rows
	return out, append(warnings, warns...), nil
}

func parseRows(r io.Reader, layout Layout, source, account string) ([]core.SourceRow, []core.Warning, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	dateIdx, ok := cols[layout.DateCol]
	if !ok {
		return nil, nil, fmt.Errorf("missing column %q in %s", layout.DateCol, source)
	}
	descIdx, ok := cols[layout.DescCol]
	if !ok {
		return nil, nil, fmt.Errorf("missing column %q in %s", layout.DescCol, source)
	}
	amountIdx, ok := cols[layout.AmountCol]
	if !ok {
		return nil, nil, fmt.Errorf("missing column %q in %s", layout.AmountCol, source)
	}
	catIdx := -1
	if layout.CategoryCol != "" {
		if i, ok := cols[layout.CategoryCol]; ok {
			catIdx = i
		}
	}
	detailsIdx := -1
	if layout.DetailsCol != "" {
		if i, ok := cols[layout.DetailsCol]; ok {
			detailsIdx = i
		}
	}

	var (
		rows     []core.SourceRow
		warnings []core.Warning
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, rowWarning(source, line, err.Error()))
			continue
		}
		if len(rec) <= dateIdx || len(rec) <= descIdx || len(rec) <= amountIdx {
			warnings = append(warnings, rowWarning(source, line, "too few fields"))
			continue
		}

		date, err := parseDate(rec[dateIdx])
		if err != nil {
			warnings = append(warnings, rowWarning(source, line, fmt.Sprintf("bad date %q", rec[dateIdx])))
			continue
		}
		amount, err := ParseAmount(rec[amountIdx])
		if err != nil {
			warnings = append(warnings, rowWarning(source, line, fmt.Sprintf("bad amount %q", rec[amountIdx])))
			continue
		}
		amount.Cents *= int64(layout.AmountSign)

		// Exports with an explicit credit/debit marker win over the sign.
		if detailsIdx >= 0 && len(rec) > detailsIdx {
			switch strings.ToLower(strings.TrimSpace(rec[detailsIdx])) {
			case "credit":
				amount = amount.Abs()
			case "debit":
				amount = core.Money{Cents: -amount.Abs().Cents}
			}
		}

		category := ""
		if catIdx >= 0 && len(rec) > catIdx {
			category = strings.TrimSpace(rec[catIdx])
		}

		rows = append(rows, core.SourceRow{
			Date:        date,
			Description: strings.TrimSpace(rec[descIdx]),
			Amount:      amount,
			Category:    category,
			Account:     account,
			AccountType: layout.AccountType,
		})
	}
	return rows, warnings, nil
}

func rowWarning(source string, line int, detail string) core.Warning {
	return core.Warning{
		Kind:   core.WarnParse,
		Source: source,
		Detail: fmt.Sprintf("line %d: %s", line, detail),
	}
}

func parseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}, nil
		}
	}
	return core.Date{}, core.ErrInvalidDate
}

// ParseAmount converts an export amount string to cents. Currency symbols
// and thousands separators are tolerated; parenthesized amounts are negative.
func ParseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, core.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	cents := d.Shift(2).Round(0).IntPart()
	if neg {
		cents = -cents
	}
	return core.Money{Cents: cents}, nil
}
