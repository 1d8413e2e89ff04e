package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/present"
)

var remoteServer string

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Show a stored report",
	Long: `Report prints a stored report with its current votes.

Example:
  unearth report 6f1c2a9e-4d4b-4a53-9b1e-0c6f7f0f2c11
  unearth report 6f1c2a9e-4d4b-4a53-9b1e-0c6f7f0f2c11 --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

// voteCmd represents the vote command
var voteCmd = &cobra.Command{
	Use:   "vote <id> <up|down>",
	Short: "Vote on whether a stored report is accurate",
	Args:  cobra.ExactArgs(2),
	RunE:  runVote,
}

// translateCmd represents the translate command
var translateCmd = &cobra.Command{
	Use:   "translate <id> <language>",
	Short: "Translate the summary of a stored report",
	Long: `Translate renders the main summary of a stored report in another language.
Translations are cached per language and summary.

Example:
  unearth translate 6f1c2a9e-4d4b-4a53-9b1e-0c6f7f0f2c11 Spanish`,
	Args: cobra.ExactArgs(2),
	RunE: runTranslate,
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, voteCmd, translateCmd} {
		c.Flags().StringVar(&remoteServer, "server", "", "use a remote unearth server instead of the local store")
		rootCmd.AddCommand(c)
	}
	reportCmd.Flags().StringVar(&outJSON, "json", "", "write the report as JSON to this path")
	reportCmd.Flags().StringVar(&outMD, "md", "", "write the report as Markdown to this path")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, closeSvc, err := openBackend(cfg, remoteServer, false)
	if err != nil {
		return err
	}
	defer func() { _ = closeSvc() }()

	res, err := svc.Report(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	ui := present.NewController(os.Stdout, present.NewTerminal(cfg.Output.NoColor, cfg.Output.Verbose))
	defer ui.Destroy()
	if err := ui.Results(res); err != nil {
		return err
	}
	return writeOutputs(res, outJSON, outMD)
}

func runVote(cmd *cobra.Command, args []string) error {
	dir, ok := model.ParseVote(args[1])
	if !ok {
		return fmt.Errorf("vote must be up or down, got %q", args[1])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, closeSvc, err := openBackend(cfg, remoteServer, false)
	if err != nil {
		return err
	}
	defer func() { _ = closeSvc() }()

	tally, err := svc.Vote(cmd.Context(), args[0], dir)
	if err != nil {
		return fmt.Errorf("vote: %w", err)
	}
	fmt.Printf("✓ Vote recorded: %s up, %s down\n", humanize.Comma(int64(tally.Up)), humanize.Comma(int64(tally.Down)))
	return nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Locally the translator needs the LLM; a remote server has its own
	svc, closeSvc, err := openBackend(cfg, remoteServer, remoteServer == "")
	if err != nil {
		return err
	}
	defer func() { _ = closeSvc() }()

	text, err := translateReport(cmd.Context(), svc, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Summary (%s):\n%s\n", args[1], text)
	return nil
}

type reportTranslator interface {
	Report(ctx context.Context, id string) (*model.AnalysisResults, error)
	Translate(ctx context.Context, req model.TranslateRequest) (string, error)
}

// translateReport translates the main summary of a stored report
func translateReport(ctx context.Context, svc reportTranslator, id, language string) (string, error) {
	res, err := svc.Report(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load report: %w", err)
	}

	req := model.TranslateRequest{ReportID: res.ID, Summary: res.MainSummary(), TargetLanguage: language}
	if err := req.Validate(); err != nil {
		return "", err
	}
	text, err := svc.Translate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return text, nil
}
