package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/model"
)

// stubAuditor returns fixed findings, an error, or panics.
type stubAuditor struct {
	name     model.AuditorKind
	findings []model.Finding
	err      error
	panicMsg string
}

func (s *stubAuditor) Name() model.AuditorKind { return s.name }

func (s *stubAuditor) Audit(_ context.Context, _ *AuditData) ([]model.Finding, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.findings, s.err
}

func quietEngine(embedder Embedder, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return NewEngine(embedder, opts...)
}

func testReference() *config.ReferenceConfig {
	return &config.ReferenceConfig{
		Palette: []config.PaletteColor{{Name: "brand red", Hex: "#FF0000"}},
		MatchThresholds: map[string]float64{
			config.ThresholdColor: 5,
		},
		DisclaimerTemplates: []config.DisclaimerTemplate{
			{ID: "not-advice", Text: "This document does not constitute investment advice.", Required: true},
		},
		CanonicalEntities: []config.CanonicalEntity{{Name: "Acme Holdings Inc"}},
	}
}

func testFragments() []model.PageFragment {
	return []model.PageFragment{
		{PageNumber: 1, Text: "Total: 1,234.50", Colors: []model.RGB{{R: 250, G: 10, B: 10}}},
		{PageNumber: 2, Text: "Total 1300.00", SectionLabel: "detail"},
		{PageNumber: 2, Text: "Prepared by Acme Holdngs Inc for clients."},
		{PageNumber: 0, Text: "orphan"},
	}
}

func TestEngineAudit(t *testing.T) {
	t.Parallel()

	report, err := quietEngine(nil).Audit(context.Background(), testFragments(), testReference())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	codes := make(map[string]int)
	for _, f := range report.Findings {
		codes[f.Code]++
	}
	want := map[string]int{
		model.CodeOffPaletteColor:   1,
		model.CodeNumericMismatch:   1,
		model.CodeEntityVariant:     1,
		model.CodeMissingDisclaimer: 1,
		model.CodeMalformedFragment: 1,
	}
	for code, n := range want {
		if codes[code] != n {
			t.Errorf("expected %d %s findings, got %d", n, code, codes[code])
		}
	}
	if len(report.Findings) != 5 {
		t.Errorf("expected 5 findings, got %d: %+v", len(report.Findings), report.Findings)
	}

	if report.Count(model.SeverityCritical) != 2 {
		t.Errorf("expected 2 critical findings, got %d", report.Count(model.SeverityCritical))
	}
	if len(report.PagesAudited) != 2 || report.PagesAudited[0] != 1 || report.PagesAudited[1] != 2 {
		t.Errorf("unexpected pages audited %v", report.PagesAudited)
	}

	// Document level findings come first, then page 1.
	if report.Findings[0].Code != model.CodeMissingDisclaimer {
		t.Errorf("expected missing disclaimer first, got %s", report.Findings[0].Code)
	}
	if report.Findings[2].Code != model.CodeNumericMismatch || report.Findings[3].Code != model.CodeOffPaletteColor {
		t.Errorf("page 1 should list the critical finding before the warning: %s, %s",
			report.Findings[2].Code, report.Findings[3].Code)
	}
}

func TestEngineAuditIsDeterministic(t *testing.T) {
	t.Parallel()

	engine := quietEngine(nil)
	var outputs [][]byte
	for range 5 {
		report, err := engine.Audit(context.Background(), testFragments(), testReference())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		outputs = append(outputs, data)
	}
	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Fatalf("run %d differs:\n%s\n%s", i, outputs[0], outputs[i])
		}
	}
}

func TestEngineAuditConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rc   *config.ReferenceConfig
	}{
		{name: "nil reference", rc: nil},
		{name: "bad palette color", rc: &config.ReferenceConfig{Palette: []config.PaletteColor{{Hex: "#GGGGGG"}}}},
		{name: "threshold out of range", rc: &config.ReferenceConfig{MatchThresholds: map[string]float64{config.ThresholdEntity: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report, err := quietEngine(nil).Audit(context.Background(), testFragments(), tt.rc)
			var cfgErr *config.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected a ConfigError, got %v", err)
			}
			if report != nil {
				t.Error("no report should be produced for an invalid configuration")
			}
		})
	}
}

func TestEngineIsolatesAuditorFailures(t *testing.T) {
	t.Parallel()

	good := model.NewFinding(model.AuditorColor, model.CodeOffPaletteColor, model.SeverityWarning,
		model.Location{Page: 1}, "off-palette color #0000ff", nil)

	engine := quietEngine(nil, WithAuditorFactory(func(*config.ReferenceConfig) []Auditor {
		return []Auditor{
			&stubAuditor{name: model.AuditorColor, findings: []model.Finding{good}},
			&stubAuditor{name: model.AuditorEntity, panicMsg: "index out of range"},
			&stubAuditor{name: model.AuditorSemantic, err: errors.New("boom"), findings: []model.Finding{good}},
		}
	}))

	report, err := engine.Audit(context.Background(), testFragments(), &config.ReferenceConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failed := report.GetFindingsBySeverity(model.SeverityCritical)
	if len(failed) != 2 {
		t.Fatalf("expected 2 auditor failures, got %+v", failed)
	}
	for _, f := range failed {
		if f.Code != model.CodeAuditorFailed || !f.Location.DocumentLevel() {
			t.Errorf("unexpected failure finding: %+v", f)
		}
	}
	if got := report.GetFindingsByAuditor(model.AuditorEntity); len(got) != 1 {
		t.Errorf("panicking auditor should contribute exactly one finding, got %d", len(got))
	}
	if got := report.GetFindingsByAuditor(model.AuditorSemantic); len(got) != 1 || got[0].Code != model.CodeAuditorFailed {
		t.Errorf("failing auditor should contribute only its failure, got %+v", got)
	}
	if got := report.GetFindingsByAuditor(model.AuditorColor); len(got) != 1 || got[0].ID != good.ID {
		t.Errorf("healthy auditor findings should be kept, got %+v", got)
	}
}

func TestEngineWithExtraAuditors(t *testing.T) {
	t.Parallel()

	extra := &stubAuditor{name: "custom", findings: []model.Finding{
		model.NewFinding("custom", "custom_check", model.SeverityInfo, model.Location{Page: 1}, "custom note", nil),
	}}
	engine := quietEngine(nil, WithAuditors(extra))

	if got := len(engine.Auditors(&config.ReferenceConfig{})); got != len(model.AuditorKinds)+1 {
		t.Errorf("expected %d auditors, got %d", len(model.AuditorKinds)+1, got)
	}

	report, err := engine.Audit(context.Background(), []model.PageFragment{{PageNumber: 1, Text: "hello"}}, &config.ReferenceConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.GetFindingsByAuditor("custom")) != 1 {
		t.Errorf("custom auditor finding missing: %+v", report.Findings)
	}
}

func TestEngineAuditCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietEngine(nil).Audit(ctx, testFragments(), testReference())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
