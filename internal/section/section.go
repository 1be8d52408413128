// Package section locates named sections inside a sequence of document
// blocks. Matching is tiered: exact equality first, then normalized
// equality, then substring containment in both directions, and finally a
// case-insensitive exact scan over every block. Headings vary between
// apostrophe encodings and capitalization in real documents; the tiers
// maximize match likelihood while exact-first avoids false positives.
package section

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"docfill/internal/normalize"
)

// Block is one paragraph-like element of a document.
type Block struct {
	Text    string
	Heading bool
}

// Query names the section to locate. End empty means the section runs to the
// next heading; IncludeTitle controls whether the caller keeps the matched
// heading when assembling output.
type Query struct {
	Start        string
	End          string
	IncludeTitle bool
}

// ParseQuery splits a raw section value on the first ":" into a start/end
// range. A value without ":" names a single section.
func ParseQuery(raw string) Query {
	q := Query{IncludeTitle: true}
	if start, end, ok := strings.Cut(raw, ":"); ok {
		q.Start = strings.TrimSpace(start)
		q.End = strings.TrimSpace(end)
	} else {
		q.Start = strings.TrimSpace(raw)
	}
	return q
}

// Tier records which matching strategy located a boundary.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNormalized
	TierContains
	TierReverseContains
	TierExactFallback
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized"
	case TierContains:
		return "contains"
	case TierReverseContains:
		return "reverse-contains"
	case TierExactFallback:
		return "exact-fallback"
	default:
		return "none"
	}
}

// Match is a located section span. End is exclusive; Start is the position
// after the matched heading, so Start <= End always holds.
type Match struct {
	Start          int
	End            int
	MatchedHeading string
	Tier           Tier
}

// HeadingLike reports whether text reads as a standalone title: non-empty,
// shorter than 100 runes, and not ending in "." or ",". Callers use it when
// a block carries no semantic heading style.
func HeadingLike(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || utf8.RuneCountInString(t) >= 100 {
		return false
	}
	return !strings.HasSuffix(t, ".") && !strings.HasSuffix(t, ",")
}

// Locator finds section spans in block sequences.
type Locator struct {
	logger *zap.Logger
}

func NewLocator(logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{logger: logger}
}

// Find locates q in blocks. The start boundary is matched against heading
// blocks with the full tier ladder; the end boundary (when given) uses the
// exact/normalized/contains tiers against headings after the start. With no
// end in the query, the next heading closes the section. Two fallback
// passes run when the heading scan comes up short: a case-insensitive exact
// scan over all blocks for the start, and the same from the start position
// for the end. A start with no end anywhere runs to the document end.
func (l *Locator) Find(blocks []Block, q Query) (Match, bool) {
	var (
		m          Match
		foundStart bool
		foundEnd   bool
	)
	normStart := normalize.Normalize(q.Start)
	normEnd := normalize.Normalize(q.End)

	for i, b := range blocks {
		if !b.Heading {
			continue
		}
		heading := strings.TrimSpace(b.Text)
		switch {
		case !foundStart:
			if tier := matchStart(heading, q.Start, normStart); tier != TierNone {
				foundStart = true
				m.Start = i + 1
				m.MatchedHeading = heading
				m.Tier = tier
				l.logger.Debug("section start matched",
					zap.String("heading", heading),
					zap.Int("block", i),
					zap.Stringer("tier", tier))
			}
		case q.End != "":
			if tier := matchEnd(heading, q.End, normEnd); tier != TierNone {
				foundEnd = true
				m.End = i
				l.logger.Debug("section end matched",
					zap.String("heading", heading),
					zap.Int("block", i),
					zap.Stringer("tier", tier))
			}
		default:
			// No explicit end: the next heading closes the section.
			foundEnd = true
			m.End = i
		}
		if foundEnd {
			break
		}
	}

	if !foundStart {
		lowered := strings.ToLower(strings.TrimSpace(q.Start))
		for i, b := range blocks {
			if strings.ToLower(strings.TrimSpace(b.Text)) == lowered {
				foundStart = true
				m.Start = i + 1
				m.MatchedHeading = strings.TrimSpace(b.Text)
				m.Tier = TierExactFallback
				l.logger.Debug("section start matched by exact text scan", zap.Int("block", i))
				break
			}
		}
	}
	if !foundStart {
		l.logger.Debug("section not found", zap.String("start", q.Start))
		return Match{}, false
	}

	if !foundEnd && q.End != "" {
		lowered := strings.ToLower(strings.TrimSpace(q.End))
		for i := m.Start; i < len(blocks); i++ {
			if strings.ToLower(strings.TrimSpace(blocks[i].Text)) == lowered {
				foundEnd = true
				m.End = i
				break
			}
		}
	}
	if !foundEnd {
		m.End = len(blocks)
	}
	return m, true
}

func matchStart(heading, query, normQuery string) Tier {
	if heading == query {
		return TierExact
	}
	normHeading := normalize.Normalize(heading)
	switch {
	case normHeading == normQuery:
		return TierNormalized
	case normQuery != "" && strings.Contains(normHeading, normQuery):
		return TierContains
	case utf8.RuneCountInString(normQuery) > 5 && normHeading != "" && strings.Contains(normQuery, normHeading):
		// Reverse containment catches queries that carry more detail than
		// the heading, but only for queries long enough to avoid collisions.
		return TierReverseContains
	}
	return TierNone
}

func matchEnd(heading, query, normQuery string) Tier {
	if heading == query {
		return TierExact
	}
	normHeading := normalize.Normalize(heading)
	switch {
	case normHeading == normQuery:
		return TierNormalized
	case normQuery != "" && strings.Contains(normHeading, normQuery):
		return TierContains
	}
	return TierNone
}
