package keyword

import (
	"fmt"

	"docfill/internal/docx"
	"docfill/internal/tabular"
)

// ValueKind discriminates what a resolver produced.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueTable
	ValueDoc
	ValueError
)

// Value is one resolver result: substitution text, a grid destined for a
// document table, a sub-document, or an error message rendered inline.
type Value struct {
	Kind ValueKind
	Text string
	Grid tabular.Grid
	Doc  *docx.Document
}

// TextValue wraps plain substitution text.
func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

// TableValue wraps a grid artifact.
func TableValue(g tabular.Grid) Value { return Value{Kind: ValueTable, Grid: g} }

// DocValue wraps a sub-document artifact.
func DocValue(d *docx.Document) Value { return Value{Kind: ValueDoc, Doc: d} }

// Errorf builds an error value. The engine substitutes the message into the
// output wrapped in square brackets; a failed resolution never aborts a parse.
func Errorf(format string, args ...any) Value {
	return Value{Kind: ValueError, Text: fmt.Sprintf(format, args...)}
}

// Values holds pre-collected input values. Keys are either full raw spans
// (braces included, checked by the engine before dispatch) or directive
// content with or without the INPUT! prefix (checked by the input resolver).
type Values map[string]string

// Outcome is the aggregated result of one parse pass. At most one artifact
// survives aggregation: a sub-document wins over a table when a pass produces
// both, and Keyword records the span that produced the surviving artifact.
// Errors counts the directives in this pass that resolved to bracketed error
// values.
type Outcome struct {
	Text    string
	Table   tabular.Grid
	Doc     *docx.Document
	Keyword string
	Errors  int
}

// Plain reports whether the outcome carries no artifact.
func (o *Outcome) Plain() bool { return o.Table == nil && o.Doc == nil }
