// Package docx reads and writes a minimal subset of the Word document
// format: paragraphs with run formatting, heading styles, and plain-text
// tables. A .docx file is a ZIP archive whose main part is
// word/document.xml.
package docx

import (
	"fmt"
	"strings"
)

// Run is a span of text with uniform formatting. Size is in points;
// zero means inherit.
type Run struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Size      float64
	Font      string
	Color     string
}

// Paragraph holds runs plus paragraph-level formatting. Indents and spacing
// are kept in the file's native twentieths of a point.
type Paragraph struct {
	Style       string
	Alignment   string
	IndentLeft  int64
	IndentRight int64
	SpaceBefore int64
	SpaceAfter  int64
	Runs        []Run
}

// Text joins the paragraph's run text.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// IsHeading reports whether the paragraph carries a heading style.
func (p *Paragraph) IsHeading() bool {
	return strings.HasPrefix(p.Style, "Heading")
}

// Clone returns a deep copy of the paragraph.
func (p *Paragraph) Clone() *Paragraph {
	cp := *p
	cp.Runs = make([]Run, len(p.Runs))
	copy(cp.Runs, p.Runs)
	return &cp
}

// Table is a grid of plain-text cells.
type Table struct {
	Rows [][]string
}

// Element is one body child, either a paragraph or a table.
type Element struct {
	Para *Paragraph
	Tbl  *Table
}

// Document is an ordered sequence of body elements.
type Document struct {
	Body []Element
}

func New() *Document {
	return &Document{}
}

// Paragraphs returns the document's paragraphs in body order.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, el := range d.Body {
		if el.Para != nil {
			out = append(out, el.Para)
		}
	}
	return out
}

// Text joins all paragraph text with newlines. Table cells are not included.
func (d *Document) Text() string {
	var parts []string
	for _, p := range d.Paragraphs() {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// AddParagraph appends a plain paragraph and returns it for further styling.
func (d *Document) AddParagraph(text string) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.Runs = []Run{{Text: text}}
	}
	d.Body = append(d.Body, Element{Para: p})
	return p
}

// AddHeading appends a heading paragraph. The run is additionally bold with
// an explicit size so the text stays prominent in viewers that ignore the
// styles part.
func (d *Document) AddHeading(text string, level int) *Paragraph {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	sizes := map[int]float64{1: 16, 2: 14, 3: 13}

	p := &Paragraph{
		Style: fmt.Sprintf("Heading%d", level),
		Runs:  []Run{{Text: text, Bold: true, Size: sizes[level]}},
	}
	d.Body = append(d.Body, Element{Para: p})
	return p
}

// AddTable appends a table built from the given cell grid.
func (d *Document) AddTable(grid [][]string) *Table {
	rows := make([][]string, len(grid))
	for i, row := range grid {
		rows[i] = make([]string, len(row))
		copy(rows[i], row)
	}
	t := &Table{Rows: rows}
	d.Body = append(d.Body, Element{Tbl: t})
	return t
}

// Append adds elements to the end of the body.
func (d *Document) Append(els ...Element) {
	d.Body = append(d.Body, els...)
}

// InsertAfter splices elements into the body immediately after index i.
// An index below zero prepends; an index past the end appends.
func (d *Document) InsertAfter(i int, els ...Element) {
	if len(els) == 0 {
		return
	}
	at := i + 1
	if at < 0 {
		at = 0
	}
	if at > len(d.Body) {
		at = len(d.Body)
	}

	body := make([]Element, 0, len(d.Body)+len(els))
	body = append(body, d.Body[:at]...)
	body = append(body, els...)
	body = append(body, d.Body[at:]...)
	d.Body = body
}
