// Package directive implements the {{TYPE!field1!field2!...}} keyword grammar.
package directive

import (
	"regexp"
	"strings"
)

// Kind identifies which resolver family handles a directive.
type Kind int

const (
	KindUnknown Kind = iota
	KindXL
	KindInput
	KindTemplate
	KindJSON
	KindAI
)

func (k Kind) String() string {
	switch k {
	case KindXL:
		return "XL"
	case KindInput:
		return "INPUT"
	case KindTemplate:
		return "TEMPLATE"
	case KindJSON:
		return "JSON"
	case KindAI:
		return "AI"
	default:
		return "UNKNOWN"
	}
}

// Directive is a single {{...}} occurrence in source text.
type Directive struct {
	Raw     string   // exact matched span, braces included
	Content string   // text inside the braces
	Fields  []string // classified fields; Fields[0] is the type token
	Kind    Kind
}

// Empty reports whether the directive has no content ({{}} or whitespace).
// Empty directives are ignored: the engine leaves their span untouched.
func (d Directive) Empty() bool {
	return strings.TrimSpace(d.Content) == ""
}

// Rest rejoins Fields[i:] with "!". The scanner never splits past the type
// token on a resolver's behalf; each resolver re-splits its own remainder.
func (d Directive) Rest(i int) string {
	if i >= len(d.Fields) {
		return ""
	}
	return strings.Join(d.Fields[i:], "!")
}

var pattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Scan returns every directive in text in order of occurrence. Identical
// spans each yield their own entry; the engine resolves every occurrence
// individually.
func Scan(text string) []Directive {
	if !strings.Contains(text, "{{") {
		return nil
	}
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Directive, 0, len(matches))
	for _, m := range matches {
		kind, fields := Classify(m[1])
		out = append(out, Directive{
			Raw:     m[0],
			Content: m[1],
			Fields:  fields,
			Kind:    kind,
		})
	}
	return out
}

// Classify maps directive content to its kind and field list. Classification
// is total: the literal types win, a bare name with neither "!" nor ":" is
// legacy named-range shorthand for XL!RANGE, and everything else is unknown.
func Classify(content string) (Kind, []string) {
	if strings.TrimSpace(content) == "" {
		return KindUnknown, nil
	}

	fields := strings.Split(content, "!")
	switch strings.ToUpper(strings.TrimSpace(fields[0])) {
	case "XL":
		return KindXL, fields
	case "INPUT":
		return KindInput, fields
	case "TEMPLATE":
		return KindTemplate, fields
	case "JSON":
		return KindJSON, fields
	case "AI":
		return KindAI, fields
	}

	if !strings.Contains(content, "!") && !strings.Contains(content, ":") {
		return KindXL, []string{"XL", "RANGE", content}
	}

	return KindUnknown, fields
}
