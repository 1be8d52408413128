package summarize

import (
	"strings"
	"unicode"
)

// TruncateWords caps s at n whitespace-separated words, appending "..." when
// anything was cut. Under the cap the string is returned untouched.
func TruncateWords(s string, n int) string {
	if n <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}

// Regroup re-segments summary text into readable paragraphs: a new paragraph
// starts once the current one holds more than three sentences, before bullet
// lines, and before short title-like sentences. Word content is never
// changed, only the whitespace between sentences.
func Regroup(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}

	var paragraphs []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, s := range sentences {
		if len(current) > 3 || isBullet(s) || isTitleLike(s) {
			flush()
		}
		current = append(current, s)
	}
	flush()

	return strings.Join(paragraphs, "\n\n")
}

// splitSentences breaks text on terminal punctuation followed by whitespace,
// and on line breaks so bullet lines survive as units.
func splitSentences(text string) []string {
	var out []string
	var current strings.Builder

	emit := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			emit()
			continue
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				emit()
			}
		}
	}
	emit()
	return out
}

func isBullet(s string) bool {
	return strings.HasPrefix(s, "•") || strings.HasPrefix(s, "- ")
}

// isTitleLike flags short heading-ish sentences that lack a closing period.
func isTitleLike(s string) bool {
	return len(strings.Fields(s)) < 5 && !strings.HasSuffix(s, ".")
}
