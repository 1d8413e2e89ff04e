package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/score"
)

// Markdown renders a report as a Markdown document
func Markdown(r *model.AnalysisResults) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Trust score: %d/100 (%s)\n\n", r.TrustScore, score.Label(r.TrustScore))
	if r.Caption != "" {
		fmt.Fprintf(&b, "> %s\n\n", r.Caption)
	}

	b.WriteString("## Breakdown\n\n")
	b.WriteString(scoreTable(r).RenderMarkdown())
	b.WriteString("\n\n")

	b.WriteString("## Details\n\n")
	fmt.Fprintf(&b, "- **Kind:** %s\n", r.Kind)
	if r.ID != "" {
		fmt.Fprintf(&b, "- **Report:** `%s`\n", r.ID)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Analyzed:** %s\n", r.CreatedAt.UTC().Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "- **Votes:** %d up, %d down\n\n", r.Votes.Up, r.Votes.Down)

	switch {
	case r.Text != nil:
		mdSection(&b, "Summary", r.Text.Summary)
		mdList(&b, "Key claims", r.Text.KeyClaims)
		mdSection(&b, "Misinformation risk", fmt.Sprintf("**%s.** %s", r.Text.MisinformationRisk, r.Text.RiskReasoning))
	case r.URL != nil:
		mdSection(&b, "Summary", r.URL.Summary)
		mdList(&b, "Key claims", r.URL.KeyClaims)
		mdSection(&b, "Source reputation", fmt.Sprintf("%s (authority: %s)", r.URL.SourceReputation, r.URL.SourceAuthority))
		mdSection(&b, "Misinformation risk", fmt.Sprintf("**%s.** %s", r.URL.MisinformationRisk, r.URL.RiskReasoning))
		mdList(&b, "Cited sources", citationLines(r.URL.CitedSources, true))
	case r.Image != nil:
		mdSection(&b, "Description", r.Image.Description)
		mdSection(&b, "Manipulation assessment", r.Image.ManipulationAssessment)
		mdList(&b, "Reverse image search keywords", r.Image.ReverseImageSearchKeywords)
	}

	if r.AIDetection != nil {
		mdSection(&b, "AI generation", fmt.Sprintf("**%d%%** likely. %s", r.AIDetection.AIProbability, r.AIDetection.Reasoning))
		mdList(&b, "Artifacts found", r.AIDetection.ArtifactsFound)
	}
	if r.CrisisContext != nil {
		c := r.CrisisContext
		body := fmt.Sprintf("Solar azimuth %.1f°, altitude %.1f°. Weather match: **%t**.", c.SolarAzimuth, c.SolarAltitude, c.WeatherMatch)
		if c.MismatchReason != "" {
			body += " " + c.MismatchReason
		}
		mdSection(&b, "Crisis context", body)
	}
	if r.RecycledFootage != nil {
		mdSection(&b, "Recycled footage", r.RecycledFootage.GDELTResults)
		mdList(&b, "Extracted keywords", r.RecycledFootage.ExtractedKeywords)
	}
	if r.Transcription != "" {
		mdSection(&b, "Transcript", r.Transcription)
	}

	if len(r.Unavailable) > 0 {
		b.WriteString("## Unavailable\n\n")
		for _, name := range r.Unavailable {
			fmt.Fprintf(&b, "- %s (scored neutral)\n", name)
		}
		b.WriteString("\n")
	}

	if len(r.Score.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		b.WriteString(signalTable(r.Score.Signals).RenderMarkdown())
		b.WriteString("\n")
	}

	return b.String()
}

// htmlFlags render report text, which echoes submitted content, without
// raw HTML, images or non-http links
const htmlFlags = mdhtml.CommonFlags | mdhtml.CompletePage | mdhtml.HrefTargetBlank |
	mdhtml.SkipHTML | mdhtml.SkipImages | mdhtml.Safelink | mdhtml.NoopenerLinks | mdhtml.NoreferrerLinks

// HTML renders a report as a standalone HTML page
func HTML(r *model.AnalysisResults) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(Markdown(r)))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: htmlFlags,
		Title: fmt.Sprintf("unearth report %s", r.ID),
	})
	return markdown.Render(doc, renderer)
}

func mdSection(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "### %s\n\n%s\n\n", title, strings.TrimSpace(body))
}

func mdList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}
