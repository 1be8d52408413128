package keyword

import (
	"context"
	"strconv"
	"strings"
	"time"

	"docfill/internal/directive"
)

// inputResolver answers INPUT directives from collected values. Collection
// itself is external; the resolver only reads the map, falling back to each
// field kind's static default when nothing was submitted.
type inputResolver struct {
	engine *Engine
}

var dateLayouts = map[string]string{
	"YYYY/MM/DD": "2006/01/02",
	"DD/MM/YYYY": "02/01/2006",
	"MM/DD/YYYY": "01/02/2006",
}

func (r *inputResolver) Resolve(_ context.Context, pc *ParseContext, d directive.Directive) Value {
	params := d.Rest(1)
	if v, ok := pc.Inputs[d.Content]; ok {
		return TextValue(v)
	}
	if v, ok := pc.Inputs[params]; ok {
		return TextValue(v)
	}

	parts := strings.Split(params, "!")
	field := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	// parts[1] is the field label; defaults never need it.
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "text", "area":
		return TextValue(field(2))
	case "date":
		return TextValue(defaultDate(field(2), field(3), time.Now()))
	case "select":
		options := field(2)
		if options == "" {
			return TextValue("")
		}
		first, _, _ := strings.Cut(options, ",")
		return TextValue(strings.TrimSpace(first))
	case "check":
		v, err := strconv.ParseBool(strings.TrimSpace(field(2)))
		if err != nil {
			v = false
		}
		return TextValue(strconv.FormatBool(v))
	}

	if params != "" {
		return TextValue(params)
	}
	return TextValue("[Input value]")
}

// defaultDate renders the date field's default value in the requested format.
// The default parses with the requested layout, or ISO when the format is
// unrecognized; "today", an empty default, or a parse failure all yield now.
func defaultDate(def, format string, now time.Time) string {
	if format == "" {
		format = "YYYY/MM/DD"
	}
	parseLayout, known := dateLayouts[format]
	if !known {
		parseLayout = "2006-01-02"
	}
	renderLayout := dateLayouts[format]
	if renderLayout == "" {
		renderLayout = "2006/01/02"
	}

	day := now
	def = strings.TrimSpace(def)
	if def != "" && !strings.EqualFold(def, "today") {
		if t, err := time.Parse(parseLayout, def); err == nil {
			day = t
		}
	}
	return day.Format(renderLayout)
}
