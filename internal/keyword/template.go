package keyword

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docfill/internal/directive"
	"docfill/internal/docx"
	"docfill/internal/section"
)

// templateResolver inlines other documents into the output, whole or cut
// down to a named section.
type templateResolver struct {
	engine *Engine
	dir    string
}

func (r *templateResolver) Resolve(_ context.Context, pc *ParseContext, d directive.Directive) Value {
	content := d.Rest(1)
	if strings.TrimSpace(content) == "" {
		return Errorf("Invalid TEMPLATE reference")
	}
	parts := strings.Split(content, "!")
	filename := strings.TrimSpace(parts[0])

	// Library references are a documented stub: they render as a
	// placeholder descriptor instead of resolving to a document.
	if strings.ToUpper(filename) == "LIBRARY" {
		if len(parts) < 2 {
			return Errorf("Invalid library template reference")
		}
		name := strings.TrimSpace(parts[1])
		version := "DEFAULT"
		if len(parts) > 2 {
			version = strings.TrimSpace(parts[2])
		}
		return TextValue(fmt.Sprintf("[Template Library: %s (Version: %s)]", name, version))
	}

	path := filepath.Join(r.dir, filename)
	if !fileExists(path) {
		if fileExists(filename) {
			path = filename
		} else {
			return Errorf("Template file not found: %s", path)
		}
	}

	paramPart := strings.Join(parts[1:], "")
	isDocx := strings.HasSuffix(strings.ToLower(filename), ".docx")
	switch {
	case isDocx && strings.HasPrefix(paramPart, "section="):
		return r.section(path, filename, paramPart)
	case isDocx && paramPart == "":
		doc, err := docx.Open(path)
		if err != nil {
			return Errorf("Error in TEMPLATE: %v", err)
		}
		return DocValue(doc)
	}
	return Errorf("Unknown parameter: %s", paramPart)
}

// section extracts a named span from a .docx template into a fresh
// sub-document, optionally preceded by a heading carrying the section name.
func (r *templateResolver) section(path, filename, paramPart string) Value {
	q := parseSectionParam(paramPart)

	doc, err := docx.Open(path)
	if err != nil {
		return Errorf("Error extracting section: %v", err)
	}
	paras := doc.Paragraphs()

	m, ok := r.engine.locator.Find(headingBlocks(paras), q)
	if !ok {
		return Errorf("Section '%s' not found in %s", q.Start, filename)
	}
	span := paras[m.Start:m.End]
	if len(span) == 0 {
		return Errorf("No content found in section")
	}

	out := docx.New()
	if q.IncludeTitle {
		out.AddHeading(q.Start, 1)
	}
	for _, p := range span {
		out.Append(docx.Element{Para: p.Clone()})
	}
	return DocValue(out)
}

// parseSectionParam reads "section=Name[&title=false]", where the name may be
// a Start:End range.
func parseSectionParam(param string) section.Query {
	pairs := strings.Split(param, "&")
	q := section.ParseQuery(strings.TrimPrefix(pairs[0], "section="))
	for _, pair := range pairs[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if strings.ToLower(strings.TrimSpace(key)) == "title" {
			q.IncludeTitle = strings.ToLower(strings.TrimSpace(value)) == "true"
		}
	}
	return q
}

// headingBlocks projects paragraphs onto section blocks. A block counts as a
// heading when its style says so or its text reads as a standalone title.
func headingBlocks(paras []*docx.Paragraph) []section.Block {
	blocks := make([]section.Block, len(paras))
	for i, p := range paras {
		text := p.Text()
		blocks[i] = section.Block{
			Text:    text,
			Heading: styleHeading(p) || section.HeadingLike(text),
		}
	}
	return blocks
}

func styleHeading(p *docx.Paragraph) bool {
	return strings.Contains(strings.ToLower(p.Style), "heading")
}
