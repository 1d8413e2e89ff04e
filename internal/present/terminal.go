package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/score"
)

// Terminal renders screens for a console
type Terminal struct {
	noColor bool
	verbose bool
}

// NewTerminal creates a terminal renderer. Verbose adds the signal table.
func NewTerminal(noColor, verbose bool) *Terminal {
	return &Terminal{noColor: noColor, verbose: verbose}
}

func (t *Terminal) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// Render implements Renderer
func (t *Terminal) Render(w io.Writer, s Screen) error {
	switch s.Kind {
	case ScreenLoading:
		_, err := t.paint(color.FgCyan).Fprintf(w, "⚙️  %s\n", s.Message)
		return err
	case ScreenError:
		_, err := t.paint(color.FgRed, color.Bold).Fprintf(w, "✗ %s\n", s.Message)
		return err
	case ScreenResults:
		return t.results(w, s)
	default:
		return nil
	}
}

// scoreColor follows the label bands
func (t *Terminal) scoreColor(trust int) *color.Color {
	switch {
	case trust > 75:
		return t.paint(color.FgGreen, color.Bold)
	case trust > 40:
		return t.paint(color.FgYellow, color.Bold)
	default:
		return t.paint(color.FgRed, color.Bold)
	}
}

func (t *Terminal) results(w io.Writer, s Screen) error {
	r := s.Results
	var b strings.Builder

	b.WriteString("\n═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "  Trust score: %s  %s\n",
		t.scoreColor(r.TrustScore).Sprintf("%d/100", r.TrustScore),
		t.scoreColor(r.TrustScore).Sprint(score.Label(r.TrustScore)))
	b.WriteString("═══════════════════════════════════════════════════════════\n\n")

	if r.Caption != "" {
		fmt.Fprintf(&b, "  %s\n\n", r.Caption)
	}

	b.WriteString(t.breakdown(r))
	b.WriteString("\n")

	dim := t.paint(color.Faint)
	fmt.Fprintf(&b, "  Kind:      %s\n", r.Kind)
	if r.ReportURL != "" {
		fmt.Fprintf(&b, "  Report:    %s\n", r.ReportURL)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "  Analyzed:  %s\n", dim.Sprint(humanize.Time(r.CreatedAt)))
	}
	fmt.Fprintf(&b, "  Votes:     👍 %s  👎 %s\n", humanize.Comma(int64(r.Votes.Up)), humanize.Comma(int64(r.Votes.Down)))

	t.details(&b, r)

	if s.Translation != "" {
		fmt.Fprintf(&b, "\n  Summary (%s):\n    %s\n", s.Language, s.Translation)
	}

	if len(r.Unavailable) > 0 {
		warn := t.paint(color.FgYellow)
		b.WriteString("\n")
		for _, name := range r.Unavailable {
			fmt.Fprintf(&b, "  %s\n", warn.Sprintf("⚠ %s analysis unavailable, scored neutral", name))
		}
	}

	if t.verbose && len(r.Score.Signals) > 0 {
		b.WriteString("\n")
		b.WriteString(signalTable(r.Score.Signals).Render())
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Terminal) breakdown(r *model.AnalysisResults) string {
	tw := scoreTable(r)
	tw.SetStyle(table.StyleLight)
	return tw.Render() + "\n"
}

func (t *Terminal) details(b *strings.Builder, r *model.AnalysisResults) {
	switch {
	case r.Text != nil:
		section(b, "Summary", r.Text.Summary)
		list(b, "Key claims", r.Text.KeyClaims)
		section(b, "Risk reasoning", fmt.Sprintf("%s: %s", r.Text.MisinformationRisk, r.Text.RiskReasoning))
	case r.URL != nil:
		section(b, "Summary", r.URL.Summary)
		list(b, "Key claims", r.URL.KeyClaims)
		section(b, "Source", fmt.Sprintf("%s (%s authority)", r.URL.SourceReputation, r.URL.SourceAuthority))
		section(b, "Risk reasoning", fmt.Sprintf("%s: %s", r.URL.MisinformationRisk, r.URL.RiskReasoning))
		list(b, "Cited sources", citationLines(r.URL.CitedSources, false))
	case r.Image != nil:
		section(b, "Description", r.Image.Description)
		section(b, "Manipulation", r.Image.ManipulationAssessment)
		list(b, "Search keywords", r.Image.ReverseImageSearchKeywords)
	}

	if r.AIDetection != nil {
		section(b, "AI generation", fmt.Sprintf("%d%% likely. %s", r.AIDetection.AIProbability, r.AIDetection.Reasoning))
		list(b, "Artifacts", r.AIDetection.ArtifactsFound)
	}
	if r.CrisisContext != nil {
		c := r.CrisisContext
		verdict := "weather matches the claimed context"
		if !c.WeatherMatch {
			verdict = "weather does not match: " + c.MismatchReason
		}
		section(b, "Crisis context", fmt.Sprintf("sun azimuth %.0f°, altitude %.0f°; %s", c.SolarAzimuth, c.SolarAltitude, verdict))
	}
	if r.RecycledFootage != nil {
		section(b, "Recycled footage", r.RecycledFootage.GDELTResults)
		list(b, "Keywords", r.RecycledFootage.ExtractedKeywords)
	}
	if r.Transcription != "" {
		section(b, "Transcript", fmt.Sprintf("%s words", humanize.Comma(int64(len(strings.Fields(r.Transcription))))))
	}
	if r.Anonymization != nil {
		if p, err := model.ParseDataURI(r.Anonymization.AnonymizedAudioDataURI); err == nil {
			section(b, "Anonymized audio", fmt.Sprintf("%s %s", humanize.Bytes(uint64(p.Size())), p.MediaType))
		}
	}
}

func section(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" || body == ":" {
		return
	}
	fmt.Fprintf(b, "\n  %s:\n    %s\n", title, text.WrapSoft(body, 76))
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n  %s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "    • %s\n", it)
	}
}

// citationLines renders one line per cited source with its status
func citationLines(sources []model.CitedSource, markdown bool) []string {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		status := "unreachable"
		switch {
		case src.Reachable:
			status = "ok"
		case src.Dead:
			status = "dead"
		}
		link := src.URL
		if markdown {
			link = fmt.Sprintf("[%s](%s)", src.Host, src.URL)
		}
		out = append(out, fmt.Sprintf("%s (%s, %s)", link, src.Authority, status))
	}
	return out
}

// scoreTable lists the three weighted sub-scores
func scoreTable(r *model.AnalysisResults) table.Writer {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Component", "Weight", "Score"})
	tw.AppendRow(table.Row{"Metadata integrity", fmt.Sprintf("%d%%", score.WeightIntegrity), r.Score.Integrity})
	tw.AppendRow(table.Row{"Physics match", fmt.Sprintf("%d%%", score.WeightPhysical), r.Score.Physical})
	tw.AppendRow(table.Row{"Source corroboration", fmt.Sprintf("%d%%", score.WeightCorroboration), r.Score.Corroboration})
	tw.AppendFooter(table.Row{"Trust", "", r.TrustScore})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tw
}

func signalTable(signals []model.Signal) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Signal", "Severity", "Description"})
	for _, s := range signals {
		tw.AppendRow(table.Row{s.Type, s.Severity, s.Description})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 60}})
	return tw
}
