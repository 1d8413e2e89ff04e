package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/unearth/internal/agent"
	"github.com/ppiankov/unearth/internal/extract"
	"github.com/ppiankov/unearth/internal/metrics"
	"github.com/ppiankov/unearth/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis server",
	Long: `Serve exposes the analysis service over HTTP:

  POST /api/analyze     analysis requests and translate/vote control messages
  POST /api/factcheck   fact-check a post from its HTML
  GET  /reports/{id}    a stored report (JSON, or HTML for browsers)
  POST /bridge          the privileged media relay (bearer token from
                        UNEARTH_SERVER_BRIDGE_TOKEN; not served without one)
  GET  /metrics         Prometheus metrics

Example:
  unearth serve
  unearth serve --addr :8080 --log-format json`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	svc, err := newService(cfg, m, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	relay, err := newRelay(cfg, svc.pipeline, m)
	if err != nil {
		return fmt.Errorf("create relay: %w", err)
	}

	side, err := newPageSide(ctx, cfg, relay, cfg.Server.PublicURL, m)
	if err != nil {
		return err
	}
	defer func() { _ = side.Close() }()

	checker := agent.New(extract.NewExtractor(), side.resolver, side.client, nil)

	srv := server.New(svc.pipeline,
		server.WithRelay(relay, cfg.Server.BridgeToken),
		server.WithMetrics(m),
		server.WithPostChecker(checker),
	)

	fmt.Fprintf(os.Stderr, "⚙️  unearth %s listening on %s\n", Version, cfg.Server.Addr)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
