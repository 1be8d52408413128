package keyword

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"docfill/internal/directive"
)

// jsonResolver answers JSON directives: whole-file dumps, dotted-path
// traversal with index access, and the SUM/JOIN/BOOL transforms. Path
// segments and the filename may themselves be directives; those re-enter the
// engine one recursion level deeper.
type jsonResolver struct {
	engine *Engine
	dir    string
}

func (r *jsonResolver) Resolve(ctx context.Context, pc *ParseContext, d directive.Directive) Value {
	content := d.Rest(1)
	if strings.TrimSpace(content) == "" {
		return Errorf("Invalid JSON reference")
	}
	parts := strings.Split(content, "!")

	// {{JSON!!file}} is the root shortcut: an empty first field shifts the
	// filename over and defaults the path to $.
	var filename, path, transform string
	if strings.TrimSpace(parts[0]) == "" && len(parts) > 1 {
		filename = strings.TrimSpace(parts[1])
		path = "$"
		if len(parts) > 2 {
			path = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			transform = strings.TrimSpace(parts[3])
		}
	} else {
		if len(parts) < 2 {
			return Errorf("Invalid JSON format: Filename and path required")
		}
		filename = strings.TrimSpace(parts[0])
		path = strings.TrimSpace(parts[1])
		if len(parts) > 2 {
			transform = strings.TrimSpace(parts[2])
		}
	}
	if path == "" || path == "$." {
		path = "$"
	}

	// The filename may be computed by another directive.
	if strings.HasPrefix(filename, "{{") && strings.HasSuffix(filename, "}}") {
		nested := r.engine.parse(ctx, &ParseContext{Inputs: pc.Inputs, Depth: pc.Depth + 1}, filename)
		filename = nested.Text
	}

	resolved := filename
	if !fileExists(resolved) {
		inDir := filepath.Join(r.dir, filename)
		if !fileExists(inDir) {
			return Errorf("JSON file not found: %s (checked in current directory and json folder)", filename)
		}
		resolved = inDir
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return Errorf("Error in JSON: %v", err)
	}
	// Numbers decode as json.Number so integers render without a forced
	// decimal point.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil || dec.More() {
		return Errorf("Error decoding JSON file: %s", resolved)
	}

	if path == "$" {
		if upper := strings.ToUpper(transform); strings.HasPrefix(upper, "JOIN(") && strings.HasSuffix(upper, ")") {
			if list, ok := doc.([]any); ok {
				return TextValue(joinList(list, transform[5:len(transform)-1]))
			}
		}
		return dumpJSON(doc)
	}
	if !strings.HasPrefix(path, "$.") {
		return Errorf("Invalid JSONPath (must start with $.): %s", path)
	}

	current := doc
	for _, part := range strings.Split(path[2:], ".") {
		if part == "" {
			continue
		}
		if i := strings.Index(part, "["); i >= 0 && strings.HasSuffix(part, "]") {
			var v Value
			current, v = stepIndex(current, part, i)
			if v.Kind == ValueError {
				return v
			}
			continue
		}

		// Dynamic keys: a directive in segment position resolves first.
		if strings.HasPrefix(part, "{{") && strings.HasSuffix(part, "}}") {
			nested := r.engine.parse(ctx, &ParseContext{Inputs: pc.Inputs, Depth: pc.Depth + 1}, part)
			part = nested.Text
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return Errorf("JSON key not found: %s", part)
		}
		next, ok := obj[part]
		if !ok {
			return Errorf("JSON key not found: %s", part)
		}
		current = next
	}

	if v, done := applyTransform(current, transform); done {
		return v
	}
	return renderJSON(current)
}

// stepIndex walks one key[index] segment. The key is optional; the index may
// be negative (counted from the end) or the wildcard *, which passes the
// list through unchanged.
func stepIndex(current any, part string, bracket int) (any, Value) {
	if key := part[:bracket]; key != "" {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, Errorf("JSON key not found: %s", key)
		}
		next, ok := obj[key]
		if !ok {
			return nil, Errorf("JSON key not found: %s", key)
		}
		if _, ok := next.([]any); !ok {
			return nil, Errorf("JSON path error: %s is not an array", key)
		}
		current = next
	}

	// Only the first bracket group counts; its closing bracket is dropped.
	seg := part[bracket+1:]
	if j := strings.Index(seg, "["); j >= 0 {
		seg = seg[:j]
	}
	if seg != "" {
		seg = seg[:len(seg)-1]
	}
	if seg == "*" {
		return current, Value{}
	}

	list, ok := current.([]any)
	if !ok {
		return nil, Errorf("Invalid JSON array index: %s", seg)
	}
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return nil, Errorf("Invalid JSON array index: %s", seg)
	}
	if idx >= len(list) {
		return nil, Errorf("JSON index out of bounds: %d", idx)
	}
	if idx < 0 {
		idx += len(list)
		if idx < 0 {
			return nil, Errorf("Invalid JSON array index: %s", seg)
		}
	}
	return list[idx], Value{}
}

// applyTransform runs the optional third-field transform. The second return
// reports whether the transform produced a value; unrecognized or
// inapplicable transforms fall through to plain rendering.
func applyTransform(current any, transform string) (Value, bool) {
	upper := strings.ToUpper(transform)
	switch {
	case upper == "SUM":
		list, ok := current.([]any)
		if !ok {
			return Value{}, false
		}
		sum := 0.0
		for _, item := range list {
			if item == nil {
				continue
			}
			f, err := numericValue(item)
			if err != nil {
				return Errorf("Cannot SUM non-numeric values in list"), true
			}
			sum += f
		}
		return TextValue(sumText(sum)), true

	case strings.HasPrefix(upper, "JOIN(") && strings.HasSuffix(upper, ")"):
		delim := transform[5 : len(transform)-1]
		if list, ok := current.([]any); ok {
			return TextValue(joinList(list, delim)), true
		}
		return TextValue(stringifyJSON(current)), true

	case strings.HasPrefix(upper, "BOOL(") && strings.HasSuffix(upper, ")"):
		halves := strings.Split(transform[5:len(transform)-1], "/")
		yes := halves[0]
		no := "No"
		if len(halves) > 1 {
			no = halves[1]
		}
		if truthy(current) {
			return TextValue(yes), true
		}
		return TextValue(no), true
	}
	return Value{}, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "true", "yes", "1", "on":
			return true
		}
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	}
	return false
}

func numericValue(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Float64()
	case string:
		s := strings.NewReplacer(",", "", "$", "").Replace(t)
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	default:
		return 0, strconv.ErrSyntax
	}
}

func joinList(list []any, delim string) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if item == nil {
			continue
		}
		parts = append(parts, stringifyJSON(item))
	}
	return strings.Join(parts, delim)
}

// stringifyJSON renders one value for joining: strings pass through, numbers
// and booleans keep their source-text form, composites collapse to compact
// JSON.
func stringifyJSON(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// renderJSON substitutes a traversal result: scalars as text, null as empty,
// objects and arrays pretty-printed.
func renderJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return TextValue("")
	case string:
		return TextValue(t)
	case bool:
		if t {
			return TextValue("True")
		}
		return TextValue("False")
	case json.Number:
		return TextValue(t.String())
	default:
		return dumpJSON(t)
	}
}

func dumpJSON(v any) Value {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return Errorf("Error in JSON: %v", err)
	}
	return TextValue(strings.TrimRight(sb.String(), "\n"))
}

// sumText renders a computed sum. Integral totals keep a trailing ".0" so a
// summed column reads as a float, matching how these results have always
// rendered.
func sumText(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
