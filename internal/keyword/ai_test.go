package keyword

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docfill/internal/docx"
	"docfill/internal/summarize"
)

type fakeSummarizer struct {
	text        string
	prompt      string
	maxWords    int
	temperature float64

	reply string
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text, prompt string, maxWords int, temperature float64) (string, error) {
	f.text = text
	f.prompt = prompt
	f.maxWords = maxWords
	f.temperature = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

const notesText = "The project finished on time and under budget."

func newAIFixture(t *testing.T, svc summarize.Service, regroup bool) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(notesText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.txt"), []byte("  Focus on outcomes.  "), 0o644))

	src := docx.New()
	src.AddHeading("Overview", 1)
	src.AddParagraph("The quarter closed ahead of plan.")
	src.AddHeading("Details", 1)
	src.AddParagraph("Line items follow.")
	require.NoError(t, src.Save(filepath.Join(dir, "source.docx")))

	eng := NewEngine(EngineOptions{
		Summarizer: svc,
		AIDir:      dir,
		Regroup:    regroup,
		Logger:     zap.NewNop(),
	})
	return eng, dir
}

func TestAISummarize(t *testing.T) {
	t.Run("Text source with a literal prompt", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "A short summary."}
		eng, _ := newAIFixture(t, svc, false)

		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize this}}")
		assert.Equal(t, TextValue("A short summary."), v)
		assert.Equal(t, notesText, svc.text)
		assert.Equal(t, "Summarize this", svc.prompt)
		assert.Equal(t, summarize.DefaultMaxWords, svc.maxWords)
		assert.Equal(t, 0.5, svc.temperature)
	})

	t.Run("Words limit truncates the reply", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "one two three four five six seven"}
		eng, _ := newAIFixture(t, svc, false)

		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize!words=5}}")
		assert.Equal(t, 5, svc.maxWords)
		assert.Equal(t, TextValue("one two three four five..."), v)
	})

	t.Run("Unparseable words limit keeps the default", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "ok"}
		eng, _ := newAIFixture(t, svc, false)

		resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize!words=ten}}")
		assert.Equal(t, summarize.DefaultMaxWords, svc.maxWords)
	})

	t.Run("Prompt read from a file", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "ok"}
		eng, _ := newAIFixture(t, svc, false)

		resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!prompt.txt}}")
		assert.Equal(t, "Focus on outcomes.", svc.prompt)
	})
}

func TestAIDocxSource(t *testing.T) {
	t.Run("Whole document", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "ok"}
		eng, _ := newAIFixture(t, svc, false)

		resolveOne(t, eng, &ParseContext{}, "{{AI!source.docx!Summarize}}")
		assert.Equal(t, "Overview\nThe quarter closed ahead of plan.\nDetails\nLine items follow.", svc.text)
	})

	t.Run("Section scope includes the heading", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "ok"}
		eng, _ := newAIFixture(t, svc, false)

		resolveOne(t, eng, &ParseContext{}, "{{AI!source.docx!Summarize!words=30&section=Overview}}")
		assert.Equal(t, "Overview\nThe quarter closed ahead of plan.", svc.text)
		assert.Equal(t, 30, svc.maxWords)
	})

	t.Run("Section range stops at the end heading", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "ok"}
		eng, _ := newAIFixture(t, svc, false)

		resolveOne(t, eng, &ParseContext{}, "{{AI!source.docx!Summarize!section=Overview:Details}}")
		assert.Equal(t, "Overview\nThe quarter closed ahead of plan.", svc.text)
	})

	t.Run("Section not found", func(t *testing.T) {
		svc := &fakeSummarizer{reply: "ok"}
		eng, _ := newAIFixture(t, svc, false)

		v := resolveOne(t, eng, &ParseContext{}, "{{AI!source.docx!Summarize!section=Appendix}}")
		assert.Equal(t, Errorf("Section 'Appendix' not found in source.docx"), v)
	})
}

func TestAIRegroup(t *testing.T) {
	reply := "First point. Second point. Third point. Fourth point. Fifth point."

	t.Run("Disabled leaves the reply alone", func(t *testing.T) {
		svc := &fakeSummarizer{reply: reply}
		eng, _ := newAIFixture(t, svc, false)

		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize}}")
		assert.Equal(t, TextValue(reply), v)
	})

	t.Run("Enabled re-paragraphs long replies", func(t *testing.T) {
		svc := &fakeSummarizer{reply: reply}
		eng, _ := newAIFixture(t, svc, true)

		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize}}")
		assert.Equal(t, TextValue("First point. Second point. Third point. Fourth point.\n\nFifth point."), v)
	})
}

func TestAIErrors(t *testing.T) {
	t.Run("Empty reference", func(t *testing.T) {
		eng, _ := newAIFixture(t, &fakeSummarizer{}, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI! }}")
		assert.Equal(t, Errorf("Invalid AI reference"), v)
	})

	t.Run("Missing prompt", func(t *testing.T) {
		eng, _ := newAIFixture(t, &fakeSummarizer{}, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt}}")
		assert.Equal(t, Errorf("Invalid AI format: Source document and prompt required"), v)
	})

	t.Run("Missing source", func(t *testing.T) {
		eng, _ := newAIFixture(t, &fakeSummarizer{}, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!ghost.docx!Summarize}}")
		assert.Equal(t, Errorf("Source document not found: ghost.docx (checked in current directory and ai folder)"), v)
	})

	t.Run("Missing prompt file", func(t *testing.T) {
		eng, _ := newAIFixture(t, &fakeSummarizer{}, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!ghost.txt}}")
		assert.Equal(t, Errorf("Prompt file not found: ghost.txt (checked in current directory and ai folder)"), v)
	})

	t.Run("Unsupported source type", func(t *testing.T) {
		eng, dir := newAIFixture(t, &fakeSummarizer{}, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!report.pdf!Summarize}}")
		assert.Equal(t, Errorf("Unsupported document type: %s. Please use .docx or .txt files", filepath.Join(dir, "report.pdf")), v)
	})

	t.Run("Nothing to summarize", func(t *testing.T) {
		eng, _ := newAIFixture(t, &fakeSummarizer{}, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!empty.txt!Summarize}}")
		assert.Equal(t, Errorf("No text found to summarize"), v)
	})

	t.Run("Summarizer failure", func(t *testing.T) {
		svc := &fakeSummarizer{err: errors.New("quota exceeded")}
		eng, _ := newAIFixture(t, svc, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize}}")
		assert.Equal(t, Errorf("Error generating summary: quota exceeded"), v)
	})

	t.Run("No summarizer configured", func(t *testing.T) {
		eng, _ := newAIFixture(t, nil, false)
		v := resolveOne(t, eng, &ParseContext{}, "{{AI!notes.txt!Summarize}}")
		assert.Equal(t, Errorf("Error generating summary: no summarizer configured"), v)
	})
}
