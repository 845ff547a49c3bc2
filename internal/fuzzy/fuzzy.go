package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Match is the result of BestMatch.
type Match struct {
	// Index is the position of the matched entry in the pool.
	Index int
	// Text is the matched pool entry as given.
	Text string
	// Score is the similarity between the candidate and the entry.
	Score float64
}

// Matcher scores text similarity.
type Matcher interface {
	// Similarity returns a score in [0, 1]; 1 means identical after normalization.
	Similarity(a, b string) float64
	// BestMatch returns the pool entry with the highest score at or above threshold.
	BestMatch(candidate string, pool []string, threshold float64) (Match, bool)
}

// Option configures a matcher.
type Option func(*matcher)

// WithPartial enables or disables substring-aware scoring.
// It is enabled by default.
func WithPartial(partial bool) Option {
	return func(m *matcher) {
		m.partial = partial
	}
}

// WithContainment makes Similarity(a, b) score how well a occurs inside b.
// When b is shorter than a the whole strings are compared.
func WithContainment() Option {
	return func(m *matcher) {
		m.containment = true
	}
}

type matcher struct {
	partial     bool
	containment bool
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...Option) Matcher {
	m := &matcher{partial: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Similarity implements Matcher.
func (m *matcher) Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if m.containment {
		return containRatio(na, nb)
	}
	if m.partial {
		return partialRatio(na, nb)
	}
	return ratio([]rune(na), []rune(nb))
}

// BestMatch implements Matcher. Ties keep the earliest pool entry.
func (m *matcher) BestMatch(candidate string, pool []string, threshold float64) (Match, bool) {
	best := Match{Index: -1}
	for i, entry := range pool {
		score := m.Similarity(candidate, entry)
		if score < threshold {
			continue
		}
		if best.Index < 0 || score > best.Score {
			best = Match{Index: i, Text: entry, Score: score}
		}
	}
	return best, best.Index >= 0
}

var defaultMatcher = NewMatcher()

// Similarity returns the substring-aware similarity of a and b.
func Similarity(a, b string) float64 {
	return defaultMatcher.Similarity(a, b)
}

// BestMatch returns the best pool entry for candidate using the default matcher.
func BestMatch(candidate string, pool []string, threshold float64) (Match, bool) {
	return defaultMatcher.BestMatch(candidate, pool, threshold)
}

var punctuation = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u2032", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u2033", `"`,
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2212", "-",
	"\u00ad", "",
)

// Normalize prepares text for comparison.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = punctuation.Replace(s)
	// Casers keep state, so each call gets its own.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ratio is 1 - distance/max(len) over runes.
func ratio(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(string(a), string(b))
	return 1 - float64(d)/float64(longest)
}

// partialRatio slides the shorter text over word-aligned windows of the
// longer one and keeps the best window score.
func partialRatio(a, b string) float64 {
	if utf8.RuneCountInString(a) > utf8.RuneCountInString(b) {
		a, b = b, a
	}
	return containRatio(a, b)
}

// containRatio slides needle over word-aligned windows of haystack and
// keeps the best window score.
func containRatio(needle, haystack string) float64 {
	if needle == haystack {
		return 1
	}
	if needle == "" || haystack == "" {
		return 0
	}

	n, h := []rune(needle), []rune(haystack)
	best := ratio(n, h)
	if len(n) >= len(h) {
		return best
	}
	if strings.Contains(haystack, needle) {
		return 1
	}

	m := len(n)
	for _, start := range windowStarts(h, m) {
		end := min(start+m, len(h))
		score := 1 - float64(levenshtein.ComputeDistance(needle, string(h[start:end])))/float64(m)
		if score > best {
			best = score
			if best == 1 {
				break
			}
		}
	}
	return best
}

// windowStarts returns the word starts of text plus the start of the final
// full-width window.
func windowStarts(text []rune, width int) []int {
	starts := []int{0}
	for i := 1; i < len(text); i++ {
		if text[i-1] == ' ' && text[i] != ' ' {
			starts = append(starts, i)
		}
	}
	if tail := len(text) - width; tail > 0 && starts[len(starts)-1] != tail {
		starts = append(starts, tail)
	}
	return starts
}
