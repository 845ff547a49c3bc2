package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/model"
)

// Embedder turns text into a vector. Implementations live in the
// embedding package; tests use in-memory fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Section is the text of one labelled section.
type Section struct {
	// Label is the section label.
	Label string
	// Text is the section's fragments joined in input order.
	Text string
	// Pages are the pages the section spans, ascending.
	Pages []int
}

// FirstPage returns the first page of the section.
func (s Section) FirstPage() int {
	if len(s.Pages) == 0 {
		return 0
	}
	return s.Pages[0]
}

// ExtractSectionsFromFragments groups labelled fragments by section.
// Fragments without a label are ignored.
func ExtractSectionsFromFragments(fragments []model.PageFragment) map[string]Section {
	parts := make(map[string][]string)
	pages := make(map[string][]int)
	for _, f := range fragments {
		if f.SectionLabel == "" {
			continue
		}
		if f.Text != "" {
			parts[f.SectionLabel] = append(parts[f.SectionLabel], f.Text)
		}
		ps := pages[f.SectionLabel]
		if len(ps) == 0 || ps[len(ps)-1] != f.PageNumber {
			pages[f.SectionLabel] = append(ps, f.PageNumber)
		}
	}

	sections := make(map[string]Section, len(pages))
	for label, ps := range pages {
		slices.Sort(ps)
		sections[label] = Section{
			Label: label,
			Text:  collapseSpace(parts[label]),
			Pages: slices.Compact(ps),
		}
	}
	return sections
}

// CosineSimilarity returns the cosine of the angle between v1 and v2, in [-1, 1].
func CosineSimilarity(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v1), len(v2))
	}
	var dot, n1, n2 float64
	for i := range v1 {
		a, b := float64(v1[i]), float64(v2[i])
		dot += a * b
		n1 += a * a
		n2 += b * b
	}
	if n1 == 0 || n2 == 0 {
		return 0, ErrZeroVector
	}
	sim := dot / (math.Sqrt(n1) * math.Sqrt(n2))
	return math.Max(-1, math.Min(1, sim)), nil
}

// SemanticOptions configures a SemanticAuditor.
type SemanticOptions struct {
	// Timeout bounds each embedding request.
	Timeout time.Duration
	// RetryBackoff is the wait before the single retry of a failed request.
	RetryBackoff time.Duration
	// Logger receives provider failures. Nil discards them.
	Logger *slog.Logger
}

// SemanticAuditor compares paired sections: labelled figures must agree
// within a relative tolerance and section meaning must stay above a
// cosine similarity floor.
type SemanticAuditor struct {
	embedder Embedder
	pairs    []config.SectionPair
	floor    float64
	figures  *figureCheck
	opts     SemanticOptions
}

// NewSemanticAuditor creates a new SemanticAuditor from the semantic and
// numeric settings of rc.
func NewSemanticAuditor(embedder Embedder, rc *config.ReferenceConfig, opts SemanticOptions) *SemanticAuditor {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultEmbedTimeout
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &SemanticAuditor{
		embedder: embedder,
		pairs:    rc.SemanticPairs,
		floor:    rc.Threshold(config.ThresholdSemantic),
		figures:  newFigureCheck(rc),
		opts:     opts,
	}
}

// Name returns the auditor name.
func (a *SemanticAuditor) Name() model.AuditorKind {
	return model.AuditorSemantic
}

// Audit runs the figure comparison and the section similarity check.
// Provider failures never fail the audit; they become informational findings.
func (a *SemanticAuditor) Audit(ctx context.Context, data *AuditData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	findings = append(findings, a.figures.run(data.Fragments)...)

	if len(a.pairs) == 0 {
		return findings, nil
	}

	sections := ExtractSectionsFromFragments(data.Fragments)
	vectors := make(map[string][]float32)
	failures := make(map[string]error)

	embed := func(s Section) ([]float32, error) {
		if v, ok := vectors[s.Label]; ok {
			return v, nil
		}
		if err, ok := failures[s.Label]; ok {
			return nil, err
		}
		v, err := a.embedWithRetry(ctx, s.Text)
		if err != nil {
			failures[s.Label] = err
			return nil, err
		}
		vectors[s.Label] = v
		return v, nil
	}

	for _, pair := range a.pairs {
		if err := ctx.Err(); err != nil {
			return findings, err
		}

		sa, okA := sections[pair.A]
		sb, okB := sections[pair.B]
		if !okA || !okB {
			missing := pair.A
			if okA {
				missing = pair.B
			}
			loc := model.Location{}
			if okA {
				loc.Page = sa.FirstPage()
			} else if okB {
				loc.Page = sb.FirstPage()
			}
			findings = append(findings, a.skipped(pair, loc, fmt.Errorf("section %q not found", missing)))
			continue
		}

		loc := model.Location{Page: sa.FirstPage()}
		va, err := embed(sa)
		if err != nil {
			findings = append(findings, a.skipped(pair, loc, err))
			continue
		}
		vb, err := embed(sb)
		if err != nil {
			findings = append(findings, a.skipped(pair, loc, err))
			continue
		}
		sim, err := CosineSimilarity(va, vb)
		if err != nil {
			findings = append(findings, a.skipped(pair, loc, fmt.Errorf("%w: %w", ErrProvider, err)))
			continue
		}
		if sim >= a.floor {
			continue
		}

		findings = append(findings, model.NewFinding(
			model.AuditorSemantic,
			model.CodeSemanticDivergence,
			model.SeverityWarning,
			loc,
			fmt.Sprintf("sections %q and %q diverge (similarity %.4f below %.2f)", pair.A, pair.B, sim, a.floor),
			map[string]any{
				"section_a":  pair.A,
				"section_b":  pair.B,
				"pages_a":    sa.Pages,
				"pages_b":    sb.Pages,
				"similarity": roundTo(sim, 4),
				"floor":      a.floor,
			},
		))
	}
	return findings, nil
}

func (a *SemanticAuditor) skipped(pair config.SectionPair, loc model.Location, err error) model.Finding {
	return model.NewFinding(
		model.AuditorSemantic,
		model.CodeSemanticCheckSkipped,
		model.SeverityInfo,
		loc,
		fmt.Sprintf("semantic check of %q and %q skipped: %v", pair.A, pair.B, err),
		map[string]any{
			"section_a": pair.A,
			"section_b": pair.B,
			"reason":    err.Error(),
		},
	)
}

// embedWithRetry calls the provider once more after RetryBackoff when the
// first call fails.
func (a *SemanticAuditor) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	if a.embedder == nil {
		return nil, ErrNoEmbedder
	}

	v, err := a.embedOnce(ctx, text)
	if err == nil {
		return v, nil
	}
	a.opts.Logger.Debug("embedding request failed, retrying",
		"error", err,
		"backoff", a.opts.RetryBackoff,
	)

	timer := time.NewTimer(a.opts.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	v, err = a.embedOnce(ctx, text)
	if err != nil {
		a.opts.Logger.Warn("embedding request failed after retry", "error", err)
		return nil, err
	}
	return v, nil
}

// embedOnce calls the provider with a timeout. The call is abandoned when
// the timeout passes even if the provider ignores its context.
func (a *SemanticAuditor) embedOnce(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type result struct {
		vec []float32
		err error
	}
	done := make(chan result, 1)
	go func() {
		vec, err := a.embedder.Embed(callCtx, text)
		done <- result{vec: vec, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w after %s", ErrProviderTimeout, a.opts.Timeout)
			}
			return nil, fmt.Errorf("%w: %w", ErrProvider, r.err)
		}
		if len(r.vec) == 0 {
			return nil, fmt.Errorf("%w: empty embedding", ErrProvider)
		}
		return r.vec, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", ErrProviderTimeout, a.opts.Timeout)
	}
}
