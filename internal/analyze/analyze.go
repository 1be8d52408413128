// Package analyze inventories a document's directives before expansion. The
// report tells the shell which backends the run needs, which input fields to
// collect, and how XL lookups break down by subtype.
package analyze

import (
	"strings"

	"docfill/internal/directive"
	"docfill/internal/docx"
)

// XL subtype buckets. A directive whose subtype token is unrecognized counts
// as RANGE when its remainder reads as a bare named range, otherwise OTHER.
const (
	SubtypeCell   = "CELL"
	SubtypeLast   = "LAST"
	SubtypeRange  = "RANGE"
	SubtypeColumn = "COLUMN"
	SubtypeOther  = "OTHER"
)

// Keyword is one classified directive occurrence.
type Keyword struct {
	Raw     string
	Content string
	Kind    directive.Kind

	// Subtype buckets XL directives; empty for other kinds.
	Subtype string

	// INPUT field metadata.
	InputKind string
	Label     string
	Default   string
}

// Report inventories every directive found in a scan.
type Report struct {
	Keywords   []Keyword
	Counts     map[directive.Kind]int
	XLSubtypes map[string]int
	Inputs     []Keyword
	Workbooks  []string

	NeedsWorkbook   bool
	NeedsSummarizer bool
}

func newReport() *Report {
	return &Report{
		Counts:     make(map[directive.Kind]int),
		XLSubtypes: make(map[string]int),
	}
}

// Total returns the number of directives inventoried.
func (r *Report) Total() int { return len(r.Keywords) }

// Scan inventories doc's paragraphs and table cells in body order.
func Scan(doc *docx.Document) *Report {
	r := newReport()
	for _, el := range doc.Body {
		switch {
		case el.Para != nil:
			r.addText(el.Para.Text())
		case el.Tbl != nil:
			for _, row := range el.Tbl.Rows {
				for _, cell := range row {
					r.addText(cell)
				}
			}
		}
	}
	return r
}

// ScanText inventories a raw text fragment.
func ScanText(text string) *Report {
	r := newReport()
	r.addText(text)
	return r
}

func (r *Report) addText(text string) {
	for _, d := range directive.Scan(text) {
		if d.Empty() {
			continue
		}
		r.add(d)
	}
}

func (r *Report) add(d directive.Directive) {
	k := Keyword{Raw: d.Raw, Content: d.Content, Kind: d.Kind}

	switch d.Kind {
	case directive.KindXL:
		r.NeedsWorkbook = true
		fields := d.Fields[1:]
		if len(fields) > 0 {
			if name := workbookName(fields[0]); name != "" {
				r.addWorkbook(name)
				fields = fields[1:]
			}
		}
		k.Subtype = xlSubtype(fields)
		r.XLSubtypes[k.Subtype]++
	case directive.KindInput:
		k.InputKind, k.Label, k.Default = inputMeta(d.Rest(1))
	case directive.KindAI:
		r.NeedsSummarizer = true
	}

	r.Counts[d.Kind]++
	r.Keywords = append(r.Keywords, k)
	if d.Kind == directive.KindInput {
		r.Inputs = append(r.Inputs, k)
	}
}

// workbookName returns the workbook filename when token is a file prefix.
func workbookName(token string) string {
	t := strings.TrimSpace(token)
	lower := strings.ToLower(t)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		return t
	}
	return ""
}

func (r *Report) addWorkbook(name string) {
	for _, existing := range r.Workbooks {
		if existing == name {
			return
		}
	}
	r.Workbooks = append(r.Workbooks, name)
}

// xlSubtype buckets the fields after the XL token and any workbook prefix.
func xlSubtype(fields []string) string {
	if len(fields) == 0 {
		return SubtypeOther
	}
	sub := strings.ToUpper(strings.TrimSpace(fields[0]))
	switch sub {
	case SubtypeCell, SubtypeLast, SubtypeRange, SubtypeColumn:
		return sub
	}
	// A bare remainder is legacy named-range shorthand.
	if rest := strings.Join(fields, "!"); !strings.ContainsAny(rest, "!:") {
		return SubtypeRange
	}
	return SubtypeOther
}

// inputMeta extracts the field kind, label, and default from an INPUT
// directive's remainder. Unknown kinds and a bare INPUT both read as text.
func inputMeta(rest string) (kind, label, def string) {
	parts := strings.Split(rest, "!")
	kind = strings.ToLower(strings.TrimSpace(parts[0]))
	switch kind {
	case "text", "area", "date", "select", "check":
	default:
		kind = "text"
	}
	if len(parts) > 1 {
		label = parts[1]
	}
	if len(parts) > 2 {
		def = parts[2]
	}
	return kind, label, def
}
