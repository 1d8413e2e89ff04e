package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/unearth/internal/bridge"
	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/metrics"
	"github.com/ppiankov/unearth/internal/model"
)

// maxRequestBytes bounds analyze bodies; inline video travels base64-encoded
const maxRequestBytes = 100 << 20

// Service is the analysis backend behind the HTTP boundary.
// pipeline.Pipeline implements it.
type Service interface {
	Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error)
	Translate(ctx context.Context, req model.TranslateRequest) (string, error)
	Vote(ctx context.Context, reportID string, dir model.VoteDirection) (model.VoteTally, error)
	Report(ctx context.Context, id string) (*model.AnalysisResults, error)
}

// PostChecker fact-checks a post from its HTML. agent.Agent implements it.
type PostChecker interface {
	FactCheck(ctx context.Context, fragmentHTML, pageURL string) (*model.AnalysisResults, error)
}

// Option configures a Server
type Option func(*Server)

// WithRelay serves the privileged relay on POST /bridge to clients that
// present token. The relay is not mounted without a token, and it never
// gets CORS headers.
func WithRelay(h bridge.Handler, token string) Option {
	return func(s *Server) {
		s.relay = h
		s.relayToken = token
	}
}

// WithPostChecker serves POST /api/factcheck for clients that send a
// post's HTML instead of resolved content
func WithPostChecker(pc PostChecker) Option {
	return func(s *Server) { s.posts = pc }
}

// WithMetrics counts requests and serves GET /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server is the HTTP boundary of the analysis service
type Server struct {
	svc     Service
	relay      bridge.Handler
	relayToken string
	posts      PostChecker
	metrics    *metrics.Metrics
	log        *slog.Logger
	router     chi.Router
}

// New builds the router
func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: logging.New("server")}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	// Public API, open to any origin
	r.Group(func(r chi.Router) {
		r.Use(cors)

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/api/analyze", s.handleAnalyze)
		r.Options("/api/analyze", preflight)
		r.Get("/reports/{id}", s.handleReport)

		if s.posts != nil {
			r.Post("/api/factcheck", s.handleFactCheck)
			r.Options("/api/factcheck", preflight)
		}
	})

	if s.relay != nil {
		if s.relayToken == "" {
			s.log.Warn("relay not served: no bridge token configured")
		} else {
			r.Method(http.MethodPost, "/bridge", bridge.NewHTTPHandler(s.relay, s.relayToken))
		}
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// requestLog logs each request and feeds the request counter
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		s.log.Info("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
		if s.metrics != nil {
			s.metrics.HTTPRequest(route, status)
		}
	})
}

// cors allows any origin; the extension and page scripts call from arbitrary sites
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// ListenAndServe serves until ctx is cancelled, then drains connections
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
