// Package chunk splits document text into token-bounded segments that break
// at natural document boundaries where possible.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
)

const (
	// charsPerToken is the estimation ratio used for token counts.
	charsPerToken = 2.5
	// charsPerBudgetToken converts a token budget into a segment size.
	charsPerBudgetToken = 2
	// minBoundaryShare is the earliest point in a window where a delimiter
	// split is accepted.
	minBoundaryShare = 0.7
)

// delimiters in priority order: section breaks, page breaks, rules.
var delimiters = []string{"\n\n\n", "\f", "---"}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	tokens := int(float64(n) / charsPerToken)
	if float64(tokens)*charsPerToken < float64(n) {
		tokens++
	}
	return tokens
}

// Split divides text into ordered segments of at most maxTokens*2 characters
// each. Concatenating the segments reproduces text exactly. Segments are
// byte ranges of text, so invalid UTF-8 is carried through unchanged; each
// invalid byte counts as one character.
func Split(text string, maxTokens int) ([]model.Segment, error) {
	if maxTokens < 1 {
		return nil, fmt.Errorf("%w: segment budget %d tokens", common.ErrChunking, maxTokens)
	}
	if text == "" {
		return nil, nil
	}

	limit := maxTokens * charsPerBudgetToken
	floor := minBoundaryShare * float64(limit)

	var segments []model.Segment
	for rest := text; rest != ""; {
		cut := len(rest)
		if end, floorAt, full := window(rest, limit, floor); full {
			cut = boundary(rest[:end], floorAt)
		}
		segments = append(segments, model.Segment{Index: len(segments), Text: rest[:cut]})
		rest = rest[cut:]
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	if b.String() != text {
		return nil, fmt.Errorf("%w: segments do not reconstruct the source", common.ErrChunking)
	}

	return segments, nil
}

// window walks limit characters into s. It returns the byte offset after
// them, the byte offset of the first character at or past floor, and
// whether s continues beyond the window.
func window(s string, limit int, floor float64) (end, floorAt int, full bool) {
	floorAt = -1
	for chars := 0; end < len(s); chars++ {
		if floorAt < 0 && float64(chars) >= floor {
			floorAt = end
		}
		if chars == limit {
			return end, floorAt, true
		}
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return end, floorAt, false
}

// boundary returns the split point for a full window: just past the last
// preferred delimiter that starts at or after floorAt, or the window
// length when none does.
func boundary(s string, floorAt int) int {
	for _, d := range delimiters {
		if i := strings.LastIndex(s, d); i >= floorAt {
			return i + len(d)
		}
	}
	return len(s)
}
