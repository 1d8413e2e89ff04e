package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/unearth/internal/analysis"
	"github.com/ppiankov/unearth/internal/bridge"
	"github.com/ppiankov/unearth/internal/browser"
	"github.com/ppiankov/unearth/internal/cache"
	"github.com/ppiankov/unearth/internal/dispatch"
	"github.com/ppiankov/unearth/internal/llm"
	"github.com/ppiankov/unearth/internal/metrics"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/pipeline"
	"github.com/ppiankov/unearth/internal/resolve"
	"github.com/ppiankov/unearth/internal/server"
	"github.com/ppiankov/unearth/internal/store"
	"github.com/ppiankov/unearth/internal/validate"
	"github.com/ppiankov/unearth/internal/worker"
)

// service is the in-process analysis backend: store, orchestrator and
// pipeline
type service struct {
	cfg      *model.Config
	metrics  *metrics.Metrics
	store    *store.FileStore
	pipeline *pipeline.Pipeline
}

// newService opens the store and builds the analysis chain. Without an
// LLM the pipeline can still serve reports and votes.
func newService(cfg *model.Config, m *metrics.Metrics, withLLM bool) (*service, error) {
	opts := []store.Option{store.WithQueueSize(cfg.Store.MutationQueue)}
	if base := strings.TrimRight(cfg.Server.PublicURL, "/"); base != "" {
		opts = append(opts, store.WithReportURL(func(id string) string { return base + "/reports/" + id }))
	}
	st := store.Open(cfg.Store.Path, opts...)

	var (
		analyzer   pipeline.Analyzer
		translator pipeline.Translator
	)
	if withLLM {
		llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
		provider, err := llm.NewProvider(llmCfg)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("create LLM provider: %w", err)
		}
		flows := analysis.NewFlows(provider)
		pages := pipeline.NewPageReader(cfg.HTTP, worker.NewLimiter(cfg.Fetch.RatePerSecond, cfg.Fetch.Burst))
		authority := validate.NewAuthorityClassifier(&cfg.Authority)

		backends := dispatch.Backends{
			Text:    flows,
			URL:     flows,
			Image:   flows,
			AI:      flows,
			Footage: flows,
			Pages:   pages,
			Sources: authority,
		}
		if cfg.Citations.Enabled {
			checker := validate.NewLinkChecker(cfg.HTTP, cfg.Citations.Timeout, cfg.Citations.Workers, authority)
			backends.Citations = pipeline.NewCitationReader(pages, checker, cfg.Citations.MaxLinks)
		}

		// Audio steps need the OpenAI speech API
		if strings.EqualFold(cfg.LLM.Provider, "openai") {
			audio, err := llm.NewOpenAIAudio(llmCfg)
			if err != nil {
				_ = st.Close()
				return nil, fmt.Errorf("create audio backend: %w", err)
			}
			backends.Transcriber = audio
			backends.Anonymizer = analysis.NewVoiceAnonymizer(audio, audio)
		}

		analyzer = dispatch.NewOrchestrator(backends, dispatch.Options{
			StepTimeout: cfg.Dispatch.StepTimeout,
			FailFast:    cfg.Dispatch.FailFast,
		})
		translator = flows
	}

	p := pipeline.New(st, analyzer, translator)
	if m != nil {
		p.OnLookup = m.StoreLookup
		p.OnAnalysis = m.Analysis
	}

	return &service{cfg: cfg, metrics: m, store: st, pipeline: p}, nil
}

func (s *service) Close() error {
	return s.store.Close()
}

// newRelay builds the privileged side over upstream with the media cache
func newRelay(cfg *model.Config, upstream bridge.Upstream, m *metrics.Metrics) (*bridge.Relay, error) {
	media := cache.NewMediaCache(cfg.Fetch.CacheDir, cfg.Fetch.CacheTTL)
	relay, err := bridge.NewRelay(cfg.HTTP, cfg.Fetch, upstream, media)
	if err != nil {
		return nil, err
	}
	if m != nil {
		relay.OnFetch = m.MediaFetch
	}
	return relay, nil
}

// pageSide is everything running next to the page: the resolver chain and
// the bridge client talking to the privileged relay
type pageSide struct {
	client    *bridge.Client
	resolver  *resolve.Resolver
	session   *browser.Session
	transport *bridge.LocalTransport
}

// newPageSide wires the resolver. With Chrome the live page reads blob:
// media and grabs frames; otherwise same-origin reads go over plain HTTP
// and frames come from the poster image.
func newPageSide(ctx context.Context, cfg *model.Config, relay *bridge.Relay, pageURL string, m *metrics.Metrics) (*pageSide, error) {
	transport := bridge.NewLocalTransport(relay, 0)
	client := bridge.NewClient(transport, pageURL)

	ps := &pageSide{client: client, transport: transport}

	var (
		page   resolve.PageFetcher
		frames []resolve.FrameGrabber
	)
	if cfg.Resolver.ChromeEnabled {
		session, err := browser.NewSession(ctx, browser.Options{
			UserAgent:    cfg.HTTP.UserAgent,
			FrameMaxEdge: cfg.Resolver.FrameMaxEdge,
			NavTimeout:   cfg.HTTP.Timeout,
		})
		if err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
		ps.session = session
		page = session
		frames = append(frames, session)
	} else {
		page = resolve.NewOriginFetcher(cfg.HTTP, cfg.Fetch.MaxMediaBytes)
	}
	frames = append(frames, resolve.NewPosterGrabber(client, cfg.Resolver.FrameMaxEdge))

	ps.resolver = resolve.NewResolver(cfg.Resolver.StepTimeout, resolve.Chain(page, client, frames...)...)
	if m != nil {
		ps.resolver.OnStep = func(strategy, outcome string) {
			m.ResolverStep(strategy, outcome)
			if outcome == resolve.OutcomeExhausted {
				m.Degraded()
			}
		}
	}
	return ps, nil
}

func (p *pageSide) Close() error {
	if p.session != nil {
		_ = p.session.Close()
	}
	return p.transport.Close()
}

// commandTimeout is the overall budget for one CLI analysis
func commandTimeout(cfg *model.Config) time.Duration {
	d := cfg.Dispatch.StepTimeout*3 + cfg.Resolver.StepTimeout*4
	if d < 2*time.Minute {
		d = 2 * time.Minute
	}
	return d
}

// openBackend returns the analysis service: a remote unearth server when
// serverURL is set, otherwise the in-process pipeline
func openBackend(cfg *model.Config, serverURL string, withLLM bool) (server.Service, func() error, error) {
	if serverURL != "" {
		endpoint := strings.TrimRight(serverURL, "/") + "/api/analyze"
		up := bridge.NewServerUpstream(endpoint, &http.Client{Timeout: commandTimeout(cfg)})
		return up, func() error { return nil }, nil
	}

	svc, err := newService(cfg, nil, withLLM)
	if err != nil {
		return nil, nil, err
	}
	return svc.pipeline, svc.Close, nil
}
