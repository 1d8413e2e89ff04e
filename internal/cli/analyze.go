package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/unearth/internal/agent"
	"github.com/ppiankov/unearth/internal/extract"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/present"
)

var (
	inText     string
	inURL      string
	inFile     string
	inHTML     string
	pageURL    string
	postIndex  int
	liveURL    string
	selector   string
	serverURL  string
	outJSON    string
	outMD      string
	voteDir    string
	translate  string
	withChrome bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fact-check one post, media file, text or link",
	Long: `Analyze produces a forensic report with a trust score for exactly one input:

  --text     literal text
  --url      a link
  --file     a local image, video or audio file
  --html     a saved post or page (pick a post with --post)
  --live     a live page rendered in Chrome (pick a post with --selector)

Identical content returns the stored report and its votes.

Example:
  unearth analyze --text "The dam burst this morning"
  unearth analyze --file clip.mp4 --json report.json
  unearth analyze --html timeline.html --page-url https://x.com/home --post 2
  unearth analyze --live https://example.com/story --selector article --vote up
  unearth analyze --url https://example.com/a --server http://localhost:9002 --translate Spanish`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.StringVar(&inText, "text", "", "text to analyze")
	f.StringVar(&inURL, "url", "", "link to analyze")
	f.StringVar(&inFile, "file", "", "image, video or audio file to analyze")
	f.StringVar(&inHTML, "html", "", "saved HTML of a post or page")
	f.StringVar(&pageURL, "page-url", "", "URL the saved HTML came from")
	f.IntVar(&postIndex, "post", -1, "index of the post on the page (default: whole document)")
	f.StringVar(&liveURL, "live", "", "live page to open in Chrome")
	f.StringVar(&selector, "selector", "article", "CSS selector of the post on the live page")
	f.StringVar(&serverURL, "server", "", "analyze on a remote unearth server instead of in process")
	f.BoolVar(&withChrome, "chrome", false, "resolve media through headless Chrome")

	f.StringVar(&outJSON, "json", "", "write the report as JSON to this path")
	f.StringVar(&outMD, "md", "", "write the report as Markdown to this path")
	f.StringVar(&voteDir, "vote", "", "vote on the report: up or down")
	f.StringVar(&translate, "translate", "", "translate the summary into this language")

	analyzeCmd.MarkFlagsMutuallyExclusive("text", "url", "file", "html", "live")
	analyzeCmd.MarkFlagsOneRequired("text", "url", "file", "html", "live")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if withChrome || liveURL != "" {
		cfg.Resolver.ChromeEnabled = true
	}

	var dir model.VoteDirection
	if voteDir != "" {
		d, ok := model.ParseVote(voteDir)
		if !ok {
			return fmt.Errorf("--vote must be up or down, got %q", voteDir)
		}
		dir = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, commandTimeout(cfg))
	defer cancel()

	svc, closeSvc, err := openBackend(cfg, serverURL, true)
	if err != nil {
		return err
	}
	defer func() { _ = closeSvc() }()

	relay, err := newRelay(cfg, svc, nil)
	if err != nil {
		return fmt.Errorf("create relay: %w", err)
	}

	origin := pageURL
	if liveURL != "" {
		origin = liveURL
	}
	side, err := newPageSide(ctx, cfg, relay, origin, nil)
	if err != nil {
		return err
	}
	defer func() { _ = side.Close() }()

	ui := present.NewController(os.Stdout, present.NewTerminal(cfg.Output.NoColor, cfg.Output.Verbose))
	defer ui.Destroy()

	ex := extract.NewExtractor()
	a := agent.New(ex, side.resolver, side.client, ui)

	res, err := analyzeInput(ctx, a, ex, side)
	if err != nil {
		return err
	}

	if dir != "" {
		if _, err := a.Vote(ctx, dir); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Vote failed: %v\n", err)
		}
	}
	if translate != "" {
		if _, err := a.Translate(ctx, translate); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Translation failed: %v\n", err)
		}
	}

	// Follow-ups update the agent's copy
	if cur := a.Current(); cur != nil {
		res = cur
	}
	return writeOutputs(res, outJSON, outMD)
}

func analyzeInput(ctx context.Context, a *agent.Agent, ex *extract.Extractor, side *pageSide) (*model.AnalysisResults, error) {
	switch {
	case inText != "":
		return a.Submit(ctx, model.TextRequest{Content: inText})
	case inURL != "":
		return a.Submit(ctx, model.URLRequest{Content: inURL})
	case inFile != "":
		req, err := requestFromFile(inFile)
		if err != nil {
			return nil, err
		}
		return a.Submit(ctx, req)
	case inHTML != "":
		raw, err := os.ReadFile(inHTML)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", inHTML, err)
		}
		fragment, err := postFragment(ex, string(raw), pageURL, postIndex)
		if err != nil {
			return nil, err
		}
		return a.FactCheck(ctx, fragment, pageURL)
	default:
		if side.session == nil {
			return nil, fmt.Errorf("live pages need Chrome")
		}
		if err := side.session.Navigate(ctx, liveURL); err != nil {
			return nil, err
		}
		fragment, err := side.session.PostHTML(ctx, selector)
		if err != nil {
			return nil, err
		}
		return a.FactCheck(ctx, fragment, liveURL)
	}
}

// writeOutputs saves the report as JSON and/or Markdown
func writeOutputs(res *model.AnalysisResults, jsonPath, mdPath string) error {
	if jsonPath != "" {
		raw, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(jsonPath, append(raw, '\n'), 0o644); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report written to %s\n", jsonPath)
	}
	if mdPath != "" {
		if err := os.WriteFile(mdPath, []byte(present.Markdown(res)), 0o644); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report written to %s\n", mdPath)
	}
	return nil
}
