package keyword

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"docfill/internal/directive"
	"docfill/internal/docx"
	"docfill/internal/normalize"
	"docfill/internal/section"
	"docfill/internal/summarize"
)

// aiResolver summarizes source documents through the configured service.
// Directive shape: AI!sourceDoc!promptRefOrText[!words=N&section=Name[:End]].
type aiResolver struct {
	engine  *Engine
	dir     string
	regroup bool
}

func (r *aiResolver) Resolve(ctx context.Context, pc *ParseContext, d directive.Directive) Value {
	content := d.Rest(1)
	if strings.TrimSpace(content) == "" {
		return Errorf("Invalid AI reference")
	}
	parts := strings.Split(content, "!")
	if len(parts) < 2 {
		return Errorf("Invalid AI format: Source document and prompt required")
	}
	sourceDoc := strings.TrimSpace(parts[0])
	promptRef := strings.TrimSpace(parts[1])

	words := summarize.DefaultMaxWords
	var (
		sectionQ   section.Query
		hasSection bool
	)
	if len(parts) > 2 {
		for _, param := range strings.Split(parts[2], "&") {
			key, value, ok := strings.Cut(param, "=")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "words":
				if n, err := strconv.Atoi(value); err == nil {
					words = n
				}
			case "section":
				sectionQ = section.ParseQuery(value)
				hasSection = true
			}
		}
	}

	srcPath := sourceDoc
	if !fileExists(srcPath) {
		inDir := filepath.Join(r.dir, sourceDoc)
		if !fileExists(inDir) {
			return Errorf("Source document not found: %s (checked in current directory and ai folder)", sourceDoc)
		}
		srcPath = inDir
	}

	docText, errv := r.sourceText(srcPath, sourceDoc, sectionQ, hasSection)
	if errv != nil {
		return *errv
	}
	if strings.TrimSpace(docText) == "" {
		return Errorf("No text found to summarize")
	}

	prompt := promptRef
	if strings.HasSuffix(strings.ToLower(promptRef), ".txt") {
		promptPath := promptRef
		if !fileExists(promptPath) {
			inDir := filepath.Join(r.dir, promptRef)
			if !fileExists(inDir) {
				return Errorf("Prompt file not found: %s (checked in current directory and ai folder)", promptRef)
			}
			promptPath = inDir
		}
		raw, err := os.ReadFile(promptPath)
		if err != nil {
			return Errorf("Error reading prompt file: %v", err)
		}
		prompt = strings.TrimSpace(string(raw))
	}

	if r.engine.summarizer == nil {
		return Errorf("Error generating summary: no summarizer configured")
	}
	summary, err := r.engine.summarizer.Summarize(ctx, docText, prompt, words, 0.5)
	if err != nil {
		return Errorf("Error generating summary: %v", err)
	}
	summary = summarize.TruncateWords(summary, words)
	if r.regroup {
		summary = summarize.Regroup(summary)
	}
	return TextValue(summary)
}

// sourceText extracts the text to summarize. On failure the second return
// carries the error value to substitute.
func (r *aiResolver) sourceText(path, ref string, q section.Query, scoped bool) (string, *Value) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".docx"):
		doc, err := docx.Open(path)
		if err != nil {
			v := Errorf("Error extracting text: %v", err)
			return "", &v
		}
		if scoped {
			text, ok := sectionText(doc.Paragraphs(), q)
			if !ok {
				v := Errorf("Section '%s' not found in %s", q.Start, ref)
				return "", &v
			}
			return text, nil
		}
		return joinParagraphs(doc.Paragraphs()), nil

	case strings.HasSuffix(lower, ".txt"):
		raw, err := os.ReadFile(path)
		if err != nil {
			v := Errorf("Error extracting text: %v", err)
			return "", &v
		}
		return string(raw), nil
	}

	v := Errorf("Unsupported document type: %s. Please use .docx or .txt files", path)
	return "", &v
}

func joinParagraphs(paras []*docx.Paragraph) string {
	var lines []string
	for _, p := range paras {
		if t := p.Text(); strings.TrimSpace(t) != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// sectionText collects a named section's text, including the matched heading
// line and skipping empty paragraphs. Unlike template extraction, the start
// match scans every paragraph rather than only heading-like ones: summary
// sources are often plain documents where the section name appears as an
// ordinary line.
func sectionText(paras []*docx.Paragraph, q section.Query) (string, bool) {
	normStart := normalize.Normalize(q.Start)
	normEnd := normalize.Normalize(q.End)

	var (
		found bool
		lines []string
	)
	for _, p := range paras {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			continue
		}
		norm := normalize.Normalize(text)

		if !found {
			if text == q.Start || norm == normStart ||
				strings.Contains(norm, normStart) ||
				(utf8.RuneCountInString(normStart) > 5 && strings.Contains(normStart, norm)) {
				found = true
				lines = append(lines, p.Text())
			}
			continue
		}

		if q.End != "" {
			if text == q.End || norm == normEnd || strings.Contains(norm, normEnd) {
				break
			}
		} else if styleHeading(p) ||
			(section.HeadingLike(text) && text != q.Start && norm != normStart) {
			// No explicit end: the next heading closes the section.
			break
		}
		lines = append(lines, p.Text())
	}

	if !found {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}
