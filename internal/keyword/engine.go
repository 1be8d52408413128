// Package keyword expands {{TYPE!field1!field2!...}} directives embedded in
// text. An Engine scans for directives, dispatches each to its resolver
// family (XL, INPUT, TEMPLATE, JSON, AI), substitutes the resolved text, and
// aggregates at most one table and one sub-document artifact per pass.
package keyword

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"docfill/internal/directive"
	"docfill/internal/docx"
	"docfill/internal/section"
	"docfill/internal/summarize"
	"docfill/internal/tabular"
)

// MaxDepth bounds nested directive resolution. A resolved value may itself
// re-enter the engine (JSON filenames and path keys); past this depth the
// engine fails closed with an error value instead of recursing further.
const MaxDepth = 8

const depthExceeded = "[Error: maximum keyword recursion depth exceeded]"

// ParseContext carries per-call state through resolver dispatch.
type ParseContext struct {
	Inputs   Values
	Depth    int
	WithSink bool
}

// Resolver turns one classified directive into a value.
type Resolver interface {
	Resolve(ctx context.Context, pc *ParseContext, d directive.Directive) Value
}

// EngineOptions wires the engine's collaborators. Nil backends are allowed;
// a directive that needs a missing backend resolves to an error value.
type EngineOptions struct {
	Workbooks   *tabular.Registry
	Summarizer  summarize.Service
	TemplateDir string
	JSONDir     string
	AIDir       string
	Regroup     bool
	Logger      *zap.Logger
}

// Engine resolves directives in text and aggregates artifacts.
type Engine struct {
	workbooks  *tabular.Registry
	summarizer summarize.Service
	locator    *section.Locator
	logger     *zap.Logger
	resolvers  map[directive.Kind]Resolver
}

// NewEngine builds an engine around the given collaborators. A nil logger is
// a programming error and panics.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Logger == nil {
		panic("keyword: NewEngine requires a logger")
	}
	e := &Engine{
		workbooks:  opts.Workbooks,
		summarizer: opts.Summarizer,
		locator:    section.NewLocator(opts.Logger),
		logger:     opts.Logger,
	}
	e.resolvers = map[directive.Kind]Resolver{
		directive.KindXL:       &xlResolver{engine: e},
		directive.KindInput:    &inputResolver{engine: e},
		directive.KindTemplate: &templateResolver{engine: e, dir: opts.TemplateDir},
		directive.KindJSON:     &jsonResolver{engine: e, dir: opts.JSONDir},
		directive.KindAI:       &aiResolver{engine: e, dir: opts.AIDir, regroup: opts.Regroup},
	}
	return e
}

// Parse resolves every directive in text. Grid-producing directives render as
// preformatted text; inputs overrides resolution for exact raw spans.
func (e *Engine) Parse(ctx context.Context, text string, inputs Values) *Outcome {
	return e.parse(ctx, &ParseContext{Inputs: inputs}, text)
}

// ParseWithSink behaves like Parse but lets grid-producing directives return
// table artifacts, for callers that can splice tables into a document.
func (e *Engine) ParseWithSink(ctx context.Context, text string, inputs Values) *Outcome {
	return e.parse(ctx, &ParseContext{Inputs: inputs, WithSink: true}, text)
}

func (e *Engine) parse(ctx context.Context, pc *ParseContext, text string) *Outcome {
	if pc.Depth > MaxDepth {
		e.logger.Warn("keyword recursion depth exceeded", zap.Int("depth", pc.Depth))
		return &Outcome{Text: depthExceeded}
	}

	dirs := directive.Scan(text)
	if len(dirs) == 0 {
		return &Outcome{Text: text}
	}
	e.logger.Debug("resolving directives",
		zap.Int("count", len(dirs)),
		zap.Int("depth", pc.Depth))

	var (
		result    = text
		table     tabular.Grid
		tableSpan string
		doc       *docx.Document
		docSpan   string
		errCount  int
	)
	for _, d := range dirs {
		// Pre-seeded values short-circuit any resolver.
		if v, ok := pc.Inputs[d.Raw]; ok {
			result = strings.Replace(result, d.Raw, v, 1)
			continue
		}
		if d.Empty() || d.Kind == directive.KindUnknown {
			continue
		}

		val := e.resolvers[d.Kind].Resolve(ctx, pc, d)
		switch val.Kind {
		case ValueDoc:
			if doc == nil {
				doc = val.Doc
				docSpan = d.Raw
			}
			result = strings.Replace(result, d.Raw, "", 1)
		case ValueTable:
			if table == nil {
				table = val.Grid
				tableSpan = d.Raw
			}
			result = strings.Replace(result, d.Raw, "", 1)
		case ValueError:
			e.logger.Debug("directive resolved to error",
				zap.String("directive", d.Raw),
				zap.String("message", val.Text))
			errCount++
			result = strings.Replace(result, d.Raw, "["+val.Text+"]", 1)
		default:
			result = strings.Replace(result, d.Raw, val.Text, 1)
		}
	}

	out := &Outcome{Text: result, Errors: errCount}
	switch {
	case doc != nil:
		// A sub-document wins over a table; the grid is dropped.
		out.Doc = doc
		out.Keyword = docSpan
	case table != nil:
		out.Table = table
		out.Keyword = tableSpan
	}
	if !out.Plain() && strings.TrimSpace(result) == "" {
		out.Text = ""
	}
	return out
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
