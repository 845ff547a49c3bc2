package audit

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/fuzzy"
	"github.com/nao1215/docaudit/internal/model"
)

// orgSuffixes are company-form suffixes that count as part of a name
// even when written in lower case.
var orgSuffixes = map[string]bool{
	"inc": true, "ltd": true, "llc": true, "llp": true, "lp": true,
	"gmbh": true, "ag": true, "kg": true, "plc": true, "corp": true,
	"co": true, "sa": true, "nv": true, "bv": true, "se": true,
	"sarl": true, "spa": true, "pty": true, "limited": true,
}

// connectors may appear between capitalized words of a name.
var connectors = map[string]bool{
	"of": true, "and": true, "&": true, "for": true, "the": true,
	"de": true, "du": true, "der": true, "von": true, "van": true,
}

// determiners are dropped from the start of a candidate.
var determiners = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "these": true,
	"that": true, "our": true, "its": true, "their": true, "in": true,
	"at": true, "for": true, "by": true, "with": true, "from": true,
}

// ExtractEntityCandidates returns name-shaped phrases in text: runs of two
// or more capitalized words (connectors such as "of" allowed inside) and
// names ending in a company suffix such as "plc".
func ExtractEntityCandidates(text string) []string {
	var (
		candidates []string
		span       []string
	)

	flush := func() {
		for len(span) > 0 && (connectors[strings.ToLower(span[len(span)-1])]) {
			span = span[:len(span)-1]
		}
		for len(span) > 0 && determiners[strings.ToLower(span[0])] {
			span = span[1:]
		}
		if len(span) >= 2 {
			candidates = append(candidates, strings.Join(span, " "))
		}
		span = nil
	}

	for _, raw := range strings.Fields(text) {
		word, endsClause := trimToken(raw)
		lower := strings.ToLower(strings.TrimSuffix(word, "."))

		switch {
		case word == "":
			flush()
		case isCapitalized(word) || (len(span) > 0 && orgSuffixes[lower]):
			span = append(span, word)
		case len(span) > 0 && connectors[lower]:
			span = append(span, word)
		default:
			flush()
		}
		if endsClause {
			flush()
		}
	}
	flush()
	return candidates
}

// trimToken strips surrounding punctuation from a word and reports whether
// the word ends a clause. A trailing period is kept on company suffixes
// such as "Inc." and "Co.".
func trimToken(raw string) (string, bool) {
	word := strings.TrimLeft(raw, `"'“‘([`)
	endsClause := false

	trailing := `"'”’)]`
	word = strings.TrimRight(word, trailing)
	if trimmed := strings.TrimRight(word, ",;:!?"); trimmed != word {
		endsClause = true
		word = trimmed
	}
	if strings.HasSuffix(word, ".") {
		base := strings.ToLower(strings.TrimSuffix(word, "."))
		if !orgSuffixes[base] {
			endsClause = true
			word = strings.TrimSuffix(word, ".")
		}
	}
	word = strings.TrimRight(word, trailing)
	return word, endsClause
}

// isCapitalized reports whether word starts with an upper-case letter.
func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

// EntityAuditor checks that entity names match their canonical spelling.
type EntityAuditor struct {
	entities  []config.CanonicalEntity
	ignored   map[string]bool
	exact     map[string]bool
	pool      []string
	owner     []int
	threshold float64
	matcher   fuzzy.Matcher
}

// NewEntityAuditor creates a new EntityAuditor.
// Candidates equal to a canonical name or a listed alias are accepted as is.
func NewEntityAuditor(entities []config.CanonicalEntity, ignored []string, threshold float64) *EntityAuditor {
	a := &EntityAuditor{
		entities:  entities,
		ignored:   make(map[string]bool, len(ignored)),
		exact:     make(map[string]bool),
		threshold: threshold,
		// Whole-name comparison: a short phrase must not match a long name
		// just because it occurs inside it.
		matcher: fuzzy.NewMatcher(fuzzy.WithPartial(false)),
	}
	for _, name := range ignored {
		a.ignored[fuzzy.Normalize(name)] = true
	}
	for i, e := range entities {
		for _, form := range append([]string{e.Name}, e.Aliases...) {
			form = collapseSpace([]string{form})
			a.exact[form] = true
			a.pool = append(a.pool, form)
			a.owner = append(a.owner, i)
		}
	}
	return a
}

// Name returns the auditor name.
func (a *EntityAuditor) Name() model.AuditorKind {
	return model.AuditorEntity
}

// Audit validates every candidate name against the canonical entities.
func (a *EntityAuditor) Audit(ctx context.Context, data *AuditData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	type seenKey struct {
		page int
		text string
	}
	seen := make(map[seenKey]bool)

	for _, f := range data.Fragments {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		for _, candidate := range ExtractEntityCandidates(f.Text) {
			key := seenKey{page: f.PageNumber, text: candidate}
			if seen[key] {
				continue
			}
			seen[key] = true

			if finding, ok := a.check(candidate, f); ok {
				findings = append(findings, finding)
			}
		}
	}
	return findings, nil
}

// check returns the finding for one candidate, if any.
func (a *EntityAuditor) check(candidate string, f model.PageFragment) (model.Finding, bool) {
	if a.exact[candidate] {
		return model.Finding{}, false
	}
	candidate = strings.TrimSuffix(candidate, ".")
	if a.exact[candidate] || a.ignored[fuzzy.Normalize(candidate)] {
		return model.Finding{}, false
	}

	if best, ok := a.matcher.BestMatch(candidate, a.pool, a.threshold); ok {
		canonical := a.entities[a.owner[best.Index]].Name
		return model.NewFinding(
			model.AuditorEntity,
			model.CodeEntityVariant,
			model.SeverityWarning,
			f.Location(),
			fmt.Sprintf("%q should be written as %q", candidate, canonical),
			map[string]any{
				"candidate": candidate,
				"canonical": canonical,
				"matched":   best.Text,
				"score":     roundTo(best.Score, 4),
			},
		), true
	}

	evidence := map[string]any{"candidate": candidate}
	if guess, ok := a.matcher.BestMatch(candidate, a.pool, 0); ok {
		evidence["closest"] = a.entities[a.owner[guess.Index]].Name
		evidence["score"] = roundTo(guess.Score, 4)
	}
	return model.NewFinding(
		model.AuditorEntity,
		model.CodeUnrecognizedEntity,
		model.SeverityInfo,
		f.Location(),
		fmt.Sprintf("unrecognized entity %q", candidate),
		evidence,
	), true
}
