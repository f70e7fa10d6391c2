package core

import "fmt"

const (
	WarnParse       WarningKind = "parse"
	WarnSchema      WarningKind = "schema"
	WarnDataQuality WarningKind = "data_quality"
)

type (
	WarningKind string

	// Warning is a non-fatal data-quality problem. Warnings accumulate per
	// reload and are returned alongside data, never silently dropped.
	Warning struct {
		Kind   WarningKind
		Source string
		Detail string
	}
)

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Source, w.Detail)
}
