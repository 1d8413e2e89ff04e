package present

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/unearth/internal/model"
)

func sampleResults() *model.AnalysisResults {
	return &model.AnalysisResults{
		ID:         "abc123",
		ReportURL:  "http://localhost:9002/reports/abc123",
		Kind:       model.KindURL,
		Caption:    "A claim about a flood.",
		CreatedAt:  time.Now().Add(-2 * time.Hour),
		TrustScore: 82,
		Score: model.Score{
			Trust: 82, Integrity: 70, Physical: 90, Corroboration: 85,
			Signals: []model.Signal{{
				Type:        model.SignalSourceCorroboration,
				Severity:    model.SeverityInfo,
				Description: "secondary source",
			}},
		},
		URL: &model.URLAnalysis{
			Summary:            "A claim about a flood. Reported by wire services.",
			KeyClaims:          []string{"river rose 3m"},
			SourceReputation:   "established outlet",
			MisinformationRisk: model.RiskLow,
			RiskReasoning:      "consistent reporting",
			SourceAuthority:    model.TierSecondary,
			CitedSources: []model.CitedSource{
				{URL: "https://who.int/n/1", Host: "who.int", Authority: model.TierPrimary, Reachable: true},
				{URL: "https://old.example/x", Host: "old.example", Authority: model.TierTertiary, Dead: true},
			},
		},
		Unavailable: []string{model.SubReportAIDetection},
		Votes:       model.VoteTally{Up: 1200, Down: 3},
	}
}

func TestTerminal_Results(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(true, true)
	require.NoError(t, term.Render(&buf, Screen{Kind: ScreenResults, Results: sampleResults(), Language: "French", Translation: "Une inondation."}))

	out := buf.String()
	for _, want := range []string{
		"Trust score: 82/100  High Trust",
		"Metadata integrity",
		"30%",
		"Physics match",
		"40%",
		"river rose 3m",
		"https://who.int/n/1 (primary, ok)",
		"https://old.example/x (tertiary, dead)",
		"2 hours ago",
		"1,200",
		"Summary (French)",
		"Une inondation.",
		"aiDetection analysis unavailable",
		"secondary source",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no color escapes when disabled")
}

func TestTerminal_LoadingAndError(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(true, false)

	require.NoError(t, term.Render(&buf, Screen{Kind: ScreenLoading, Message: "Resolving media"}))
	require.NoError(t, term.Render(&buf, Screen{Kind: ScreenError, Message: "analysis failed"}))
	require.NoError(t, term.Render(&buf, Screen{}))

	out := buf.String()
	assert.Contains(t, out, "Resolving media")
	assert.Contains(t, out, "✗ analysis failed")
}

func TestTerminal_SignalsOnlyWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTerminal(true, false).Render(&buf, Screen{Kind: ScreenResults, Results: sampleResults()}))
	assert.NotContains(t, buf.String(), "secondary source")
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleResults())

	assert.True(t, strings.HasPrefix(md, "# Trust score: 82/100 (High Trust)"))
	assert.Contains(t, md, "| Metadata integrity |")
	assert.Contains(t, md, "- river rose 3m")
	assert.Contains(t, md, "- [who.int](https://who.int/n/1) (primary, ok)")
	assert.Contains(t, md, "- aiDetection (scored neutral)")
	assert.Contains(t, md, "**Votes:** 1200 up, 3 down")
}

func TestHTML(t *testing.T) {
	page := string(HTML(sampleResults()))

	assert.Contains(t, page, "<title>unearth report abc123</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<li>river rose 3m</li>")
}

func TestHTML_SubmittedMarkupIsNotRendered(t *testing.T) {
	r := &model.AnalysisResults{
		ID:   "r-xss",
		Kind: model.KindText,
		Text: &model.TextAnalysis{
			Summary:   "<script>alert(document.cookie)</script>",
			KeyClaims: []string{`see [this](javascript:alert(1))`, `![x](https://tracker.example/p.gif)`},
		},
		Transcription: "<img src=x onerror=alert(1)>",
	}
	page := string(HTML(r))

	assert.NotContains(t, page, "<script>")
	assert.NotContains(t, page, "<img")
	assert.NotContains(t, page, `href="javascript:`)
	assert.NotContains(t, page, "tracker.example/p.gif\"")
	assert.Contains(t, page, "Transcript")
}
