// Package process expands directives across a whole document, splicing table
// and sub-document artifacts into the body where their directives appeared.
package process

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"docfill/internal/directive"
	"docfill/internal/docx"
	"docfill/internal/keyword"
)

// Stats sums what one ProcessDocument pass did.
type Stats struct {
	Paragraphs int // paragraphs and table cells that carried directives
	Directives int // directive spans scanned
	Tables     int // grid artifacts spliced in
	SubDocs    int // sub-document artifacts spliced in
	Errors     int // directives that resolved to bracketed error values
}

// Processor expands directives across documents.
type Processor struct {
	engine *keyword.Engine
	logger *zap.Logger
}

func New(engine *keyword.Engine, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{engine: engine, logger: logger}
}

// ProcessDocument expands every directive in doc's paragraphs and table
// cells, in body order. Artifacts insert immediately after their host
// paragraph; spliced content is not itself re-expanded.
func (p *Processor) ProcessDocument(ctx context.Context, doc *docx.Document, inputs keyword.Values) (*Stats, error) {
	stats := &Stats{}
	for i := 0; i < len(doc.Body); i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		el := doc.Body[i]
		switch {
		case el.Para != nil:
			i += p.expandParagraph(ctx, doc, i, inputs, stats)
		case el.Tbl != nil:
			p.expandTable(ctx, el.Tbl, inputs, stats)
		}
	}
	p.logger.Info("document processed",
		zap.Int("paragraphs", stats.Paragraphs),
		zap.Int("directives", stats.Directives),
		zap.Int("tables", stats.Tables),
		zap.Int("subdocs", stats.SubDocs),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// expandParagraph expands the paragraph at index at and returns how many
// elements it inserted after it, so the caller can skip them.
func (p *Processor) expandParagraph(ctx context.Context, doc *docx.Document, at int, inputs keyword.Values, stats *Stats) int {
	para := doc.Body[at].Para
	text := para.Text()
	if !strings.Contains(text, "{{") {
		return 0
	}
	stats.Paragraphs++
	stats.Directives += len(directive.Scan(text))

	out := p.engine.ParseWithSink(ctx, text, inputs)
	stats.Errors += out.Errors
	setParagraphText(para, out.Text)

	switch {
	case out.Doc != nil:
		doc.InsertAfter(at, out.Doc.Body...)
		stats.SubDocs++
		return len(out.Doc.Body)
	case out.Table != nil:
		rows := make([][]string, len(out.Table))
		for r, row := range out.Table {
			rows[r] = make([]string, len(row))
			copy(rows[r], row)
		}
		// The bare paragraph keeps an adjacent table in the host document
		// from merging with the inserted one.
		doc.InsertAfter(at,
			docx.Element{Tbl: &docx.Table{Rows: rows}},
			docx.Element{Para: &docx.Paragraph{}})
		stats.Tables++
		return 2
	}
	return 0
}

// expandTable expands directives inside cell text. Cells cannot host
// artifacts: grids render as preformatted text and sub-documents collapse to
// their plain text.
func (p *Processor) expandTable(ctx context.Context, tbl *docx.Table, inputs keyword.Values, stats *Stats) {
	for _, row := range tbl.Rows {
		for c, cell := range row {
			if !strings.Contains(cell, "{{") {
				continue
			}
			stats.Paragraphs++
			stats.Directives += len(directive.Scan(cell))

			out := p.engine.Parse(ctx, cell, inputs)
			stats.Errors += out.Errors
			text := out.Text
			if out.Doc != nil {
				if text != "" {
					text += "\n"
				}
				text += out.Doc.Text()
			}
			row[c] = text
		}
	}
}

// setParagraphText replaces para's runs with a single run carrying text,
// keeping the first run's formatting.
func setParagraphText(para *docx.Paragraph, text string) {
	if len(para.Runs) > 0 {
		run := para.Runs[0]
		run.Text = text
		para.Runs = []docx.Run{run}
		return
	}
	if text != "" {
		para.Runs = []docx.Run{{Text: text}}
	}
}
