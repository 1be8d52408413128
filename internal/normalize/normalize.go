// Package normalize canonicalizes strings for section-name comparison.
//
// Headings in real documents drift between apostrophe encodings, curly
// quotes, and punctuation spacing. Matching runs on the canonical form so
// "Millionaires' Row" still finds "Millionaires’ Row".
package normalize

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// runeFolds maps apostrophe variants to ASCII ', double-quote variants to
// ASCII ", and mismatch-prone punctuation to a space.
var runeFolds = map[rune]rune{
	// Apostrophe-like code points
	'‘': '\'', // left single quotation mark
	'’': '\'', // right single quotation mark
	'′': '\'', // prime
	'‵': '\'', // reversed prime
	'´': '\'', // acute accent
	'`': '\'', // grave accent
	'ʼ': '\'', // modifier letter apostrophe
	'ʻ': '\'', // modifier letter turned comma
	'ʾ': '\'', // modifier letter right half ring
	'ʿ': '\'', // modifier letter left half ring
	'̓': '\'', // combining comma above
	'̔': '\'', // combining reversed comma above
	'̕': '\'', // combining comma above right
	'̛': '\'', // combining horn

	// Double-quote variants
	'“': '"', // left double quotation mark
	'”': '"', // right double quotation mark
	'„': '"', // double low-9 quotation mark
	'‟': '"', // double high-reversed-9 quotation mark

	// Punctuation that causes spurious mismatches
	',': ' ',
	'.': ' ',
	':': ' ',
	';': ' ',
	'!': ' ',
	'?': ' ',
	'-': ' ',
	'_': ' ',
	'(': ' ',
	')': ' ',
	'[': ' ',
	']': ' ',
	'{': ' ',
	'}': ' ',
	'/': ' ',
}

// Normalize lowercases text, folds apostrophe/quote variants to their ASCII
// forms, replaces punctuation with spaces, and collapses whitespace runs.
// The result is stable: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)

	t := transform.Chain(runes.Map(foldRune), norm.NFC)
	folded, _, _ := transform.String(t, lowered)

	return strings.Join(strings.Fields(folded), " ")
}

func foldRune(r rune) rune {
	if out, ok := runeFolds[r]; ok {
		return out
	}
	return r
}
