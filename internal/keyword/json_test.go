package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docfill/internal/directive"
)

const dataJSONDump = `{
  "active": true,
  "items": [
    1200,
    "800",
    "$3"
  ],
  "total": 2003.5
}`

func writeJSON(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestJSONRoot(t *testing.T) {
	eng, dir := newFixture(t)
	pc := &ParseContext{}
	writeJSON(t, dir, "list.json", `[1, 2, "three"]`)

	t.Run("Dollar dumps the document", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$}}")
		assert.Equal(t, TextValue(dataJSONDump), v)
	})

	t.Run("Trailing dot is still the root", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.}}")
		assert.Equal(t, TextValue(dataJSONDump), v)
	})

	t.Run("Double bang shortcut", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!!data.json}}")
		assert.Equal(t, TextValue(dataJSONDump), v)
	})

	t.Run("Join over a list document", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!list.json!$!JOIN(, )}}")
		assert.Equal(t, TextValue("1, 2, three"), v)
	})

	t.Run("Join over an object document dumps it", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$!JOIN(, )}}")
		assert.Equal(t, TextValue(dataJSONDump), v)
	})
}

func TestJSONTraversal(t *testing.T) {
	eng, dir := newFixture(t)
	pc := &ParseContext{}
	writeJSON(t, dir, "mixed.json", `{"flag": "yes", "nothing": null, "row": {"a": 1}}`)

	t.Run("Float keeps its source form", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.total}}")
		assert.Equal(t, TextValue("2003.5"), v)
	})

	t.Run("Integer keeps its source form", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items[0]}}")
		assert.Equal(t, TextValue("1200"), v)
	})

	t.Run("Boolean", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.active}}")
		assert.Equal(t, TextValue("True"), v)
	})

	t.Run("Null renders empty", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!mixed.json!$.nothing}}")
		assert.Equal(t, TextValue(""), v)
	})

	t.Run("Object pretty-prints", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!mixed.json!$.row}}")
		assert.Equal(t, TextValue("{\n  \"a\": 1\n}"), v)
	})

	t.Run("Negative index counts from the end", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items[-1]}}")
		assert.Equal(t, TextValue("$3"), v)
	})

	t.Run("Bare bracket indexes the current list", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items.[1]}}")
		assert.Equal(t, TextValue("800"), v)
	})

	t.Run("Wildcard passes the list through", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items[*]}}")
		assert.Equal(t, TextValue("[\n  1200,\n  \"800\",\n  \"$3\"\n]"), v)
	})

	t.Run("Empty segments are skipped", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.total.}}")
		assert.Equal(t, TextValue("2003.5"), v)
	})
}

func TestJSONTransforms(t *testing.T) {
	eng, dir := newFixture(t)
	pc := &ParseContext{}
	writeJSON(t, dir, "mixed.json", `{"bad": [1, "apples"], "flag": "yes", "nothing": null}`)

	t.Run("Sum strips currency and commas", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items!SUM}}")
		assert.Equal(t, TextValue("2003.0"), v)
	})

	t.Run("Sum rejects non-numeric elements", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!mixed.json!$.bad!SUM}}")
		assert.Equal(t, Errorf("Cannot SUM non-numeric values in list"), v)
	})

	t.Run("Join keeps the delimiter case", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items!JOIN( and )}}")
		assert.Equal(t, TextValue("1200 and 800 and $3"), v)
	})

	t.Run("Join on a scalar is its text", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.total!JOIN(-)}}")
		assert.Equal(t, TextValue("2003.5"), v)
	})

	t.Run("Bare JOIN is not a transform", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.items!JOIN}}")
		assert.Equal(t, TextValue("[\n  1200,\n  \"800\",\n  \"$3\"\n]"), v)
	})

	t.Run("Bool keeps the label case", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!data.json!$.active!BOOL(Active/Inactive)}}")
		assert.Equal(t, TextValue("Active"), v)
	})

	t.Run("Bool on a truthy string", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!mixed.json!$.flag!BOOL(Y/N)}}")
		assert.Equal(t, TextValue("Y"), v)
	})

	t.Run("Bool default negative label", func(t *testing.T) {
		v := resolveOne(t, eng, pc, "{{JSON!mixed.json!$.nothing!BOOL(Set)}}")
		assert.Equal(t, TextValue("No"), v)
	})
}

func TestJSONNestedDirectives(t *testing.T) {
	eng, _ := newFixture(t)

	build := func(content string) directive.Directive {
		kind, fields := directive.Classify(content)
		require.Equal(t, directive.KindJSON, kind)
		return directive.Directive{
			Raw:     "{{" + content + "}}",
			Content: content,
			Fields:  fields,
			Kind:    kind,
		}
	}

	t.Run("Filename from another directive", func(t *testing.T) {
		pc := &ParseContext{Inputs: Values{"{{name}}": "data.json"}}
		d := build("JSON!{{name}}!$.total")
		v := eng.resolvers[directive.KindJSON].Resolve(context.Background(), pc, d)
		assert.Equal(t, TextValue("2003.5"), v)
	})

	t.Run("Dynamic key", func(t *testing.T) {
		pc := &ParseContext{Inputs: Values{"{{key}}": "total"}}
		d := build("JSON!data.json!$.{{key}}")
		v := eng.resolvers[directive.KindJSON].Resolve(context.Background(), pc, d)
		assert.Equal(t, TextValue("2003.5"), v)
	})
}

func TestJSONErrors(t *testing.T) {
	eng, dir := newFixture(t)
	pc := &ParseContext{}
	writeJSON(t, dir, "bad.json", `{"x": `)

	tests := []struct {
		name string
		span string
		want Value
	}{
		{"Empty reference", "{{JSON!}}", Errorf("Invalid JSON reference")},
		{"Missing path", "{{JSON!data.json}}", Errorf("Invalid JSON format: Filename and path required")},
		{"Path without dollar", "{{JSON!data.json!items}}", Errorf("Invalid JSONPath (must start with $.): items")},
		{"File not found", "{{JSON!ghost.json!$}}", Errorf("JSON file not found: ghost.json (checked in current directory and json folder)")},
		{"Decode failure", "{{JSON!bad.json!$}}", Errorf("Error decoding JSON file: %s", filepath.Join(dir, "bad.json"))},
		{"Key not found", "{{JSON!data.json!$.missing}}", Errorf("JSON key not found: missing")},
		{"Key on a scalar", "{{JSON!data.json!$.total.x}}", Errorf("JSON key not found: x")},
		{"Indexed key not found", "{{JSON!data.json!$.missing[0]}}", Errorf("JSON key not found: missing")},
		{"Index on a scalar", "{{JSON!data.json!$.total[0]}}", Errorf("JSON path error: total is not an array")},
		{"Index out of bounds", "{{JSON!data.json!$.items[5]}}", Errorf("JSON index out of bounds: 5")},
		{"Index not a number", "{{JSON!data.json!$.items[first]}}", Errorf("Invalid JSON array index: first")},
		{"Negative index past the start", "{{JSON!data.json!$.items[-5]}}", Errorf("Invalid JSON array index: -5")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveOne(t, eng, pc, tt.span))
		})
	}
}
