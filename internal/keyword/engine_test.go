package keyword

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"docfill/internal/docx"
	"docfill/internal/tabular"
)

// newFixture builds an engine over a temp directory holding budget.xlsx
// (default workbook), source.docx, and data.json.
func newFixture(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Item"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Amount"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Widgets"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 1200))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "Gadgets"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", 800))
	_, err := f.NewSheet("Costs")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Costs", "A1", 500))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name:     "SalesData",
		RefersTo: "Sheet1!$A$1:$B$3",
		Scope:    "Workbook",
	}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "budget.xlsx")))
	require.NoError(t, f.Close())

	src := docx.New()
	src.AddHeading("Overview", 1)
	src.AddParagraph("The quarter closed ahead of plan.")
	src.AddHeading("Details", 1)
	src.AddParagraph("Line items follow.")
	require.NoError(t, src.Save(filepath.Join(dir, "source.docx")))

	data := `{"total": 2003.5, "items": [1200, "800", "$3"], "active": true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.json"), []byte(data), 0o644))

	reg := tabular.NewRegistry(dir, zap.NewNop())
	reg.SetDefault("budget.xlsx")
	t.Cleanup(func() { _ = reg.Close() })

	eng := NewEngine(EngineOptions{
		Workbooks:   reg,
		TemplateDir: dir,
		JSONDir:     dir,
		AIDir:       dir,
		Logger:      zap.NewNop(),
	})
	return eng, dir
}

func TestNewEngineNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		NewEngine(EngineOptions{})
	})
}

func TestParsePlainText(t *testing.T) {
	eng, _ := newFixture(t)

	out := eng.Parse(context.Background(), "no directives here", nil)
	assert.Equal(t, "no directives here", out.Text)
	assert.True(t, out.Plain())
}

func TestParseSubstitution(t *testing.T) {
	eng, _ := newFixture(t)

	out := eng.Parse(context.Background(),
		"Total: {{XL!CELL!Costs!A1}}, Name: {{INPUT!text!Name!Joe}}", nil)
	assert.Equal(t, "Total: 500, Name: Joe", out.Text)
	assert.True(t, out.Plain())
}

func TestParseRawSpanOverride(t *testing.T) {
	eng, _ := newFixture(t)

	inputs := Values{"{{INPUT!text!Name!Joe}}": "Maria"}
	out := eng.Parse(context.Background(), "Name: {{INPUT!text!Name!Joe}}", inputs)
	assert.Equal(t, "Name: Maria", out.Text)

	// The override also short-circuits non-INPUT resolvers.
	inputs = Values{"{{XL!CELL!Costs!A1}}": "override"}
	out = eng.Parse(context.Background(), "{{XL!CELL!Costs!A1}}", inputs)
	assert.Equal(t, "override", out.Text)
}

func TestParseDuplicateSpans(t *testing.T) {
	eng, _ := newFixture(t)

	out := eng.Parse(context.Background(),
		"{{INPUT!text!City!Oslo}} and {{INPUT!text!City!Oslo}}", nil)
	assert.Equal(t, "Oslo and Oslo", out.Text)
}

func TestParseLeavesEmptyAndUnknown(t *testing.T) {
	eng, _ := newFixture(t)

	t.Run("Empty braces stay put", func(t *testing.T) {
		out := eng.Parse(context.Background(), "a {{}} b", nil)
		assert.Equal(t, "a {{}} b", out.Text)
	})

	t.Run("Unknown fielded directive stays put", func(t *testing.T) {
		out := eng.Parse(context.Background(), "a {{FOO!bar}} b", nil)
		assert.Equal(t, "a {{FOO!bar}} b", out.Text)
	})
}

func TestParseImplicitNamedRange(t *testing.T) {
	eng, _ := newFixture(t)

	// A bare name classifies as XL!RANGE and resolves through the named
	// range, rendering as aligned text without a sink.
	out := eng.Parse(context.Background(), "{{SalesData}}", nil)
	require.True(t, out.Plain())
	lines := strings.Split(out.Text, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Item    | Amount", lines[0])
}

func TestParseErrorContainment(t *testing.T) {
	eng, dir := newFixture(t)

	out := eng.Parse(context.Background(),
		"{{XL!CELL!Costs!A1}} {{XL!CELL!Nope!Z99}} {{JSON!missing.json!$.x}} {{INPUT!text!N!val}} {{TEMPLATE!absent.docx}}",
		nil)

	assert.Contains(t, out.Text, "500")
	assert.Contains(t, out.Text, "[Error processing XL:")
	assert.Contains(t, out.Text,
		"[JSON file not found: missing.json (checked in current directory and json folder)]")
	assert.Contains(t, out.Text, "val")
	assert.Contains(t, out.Text,
		"[Template file not found: "+filepath.Join(dir, "absent.docx")+"]")
	assert.Equal(t, 3, out.Errors)
}

func TestParseTableArtifact(t *testing.T) {
	eng, _ := newFixture(t)

	t.Run("Artifact only", func(t *testing.T) {
		out := eng.ParseWithSink(context.Background(), "{{XL!RANGE!A1:B2}}", nil)
		require.NotNil(t, out.Table)
		assert.Equal(t, tabular.Grid{{"Item", "Amount"}, {"Widgets", "1200"}}, out.Table)
		assert.Equal(t, "", out.Text)
		assert.Equal(t, "{{XL!RANGE!A1:B2}}", out.Keyword)
		assert.False(t, out.Plain())
	})

	t.Run("Mixed with text", func(t *testing.T) {
		out := eng.ParseWithSink(context.Background(), "Figures: {{XL!RANGE!A1:B2}}", nil)
		require.NotNil(t, out.Table)
		assert.Equal(t, "Figures: ", out.Text)
	})

	t.Run("Without sink renders text", func(t *testing.T) {
		out := eng.Parse(context.Background(), "{{XL!RANGE!A1:B2}}", nil)
		assert.True(t, out.Plain())
		assert.Contains(t, out.Text, "Item    | Amount")
	})
}

func TestParseArtifactPrecedence(t *testing.T) {
	eng, _ := newFixture(t)

	// A sub-document beats a table; both spans leave the text.
	out := eng.ParseWithSink(context.Background(),
		"{{XL!RANGE!A1:B2}} {{TEMPLATE!source.docx}}", nil)
	require.NotNil(t, out.Doc)
	assert.Nil(t, out.Table)
	assert.Equal(t, "{{TEMPLATE!source.docx}}", out.Keyword)
	assert.Equal(t, "", out.Text)
}

func TestParseSurplusArtifacts(t *testing.T) {
	eng, _ := newFixture(t)

	out := eng.ParseWithSink(context.Background(),
		"{{XL!RANGE!A1:B2}} and {{XL!RANGE!A1:B3}}", nil)
	require.NotNil(t, out.Table)
	// The first grid wins; the surplus span substitutes as empty text.
	assert.Len(t, out.Table, 2)
	assert.Equal(t, "{{XL!RANGE!A1:B2}}", out.Keyword)
	assert.Equal(t, " and ", out.Text)
}

func TestParseDepthGuard(t *testing.T) {
	eng, _ := newFixture(t)

	out := eng.parse(context.Background(), &ParseContext{Depth: MaxDepth + 1}, "{{XL!CELL!A1}}")
	assert.Equal(t, "[Error: maximum keyword recursion depth exceeded]", out.Text)
}
