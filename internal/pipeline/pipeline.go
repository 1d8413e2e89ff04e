package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/unearth/internal/cache"
	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/store"
)

// Analyzer runs the per-kind analysis chain
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error)
}

// Translator renders a summary in another language
type Translator interface {
	Translate(ctx context.Context, summary, language string) (string, error)
}

// Analysis outcomes reported to OnAnalysis
const (
	OutcomeCached    = "cached"
	OutcomeCommitted = "committed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

const translationTTL = 24 * time.Hour

// Pipeline is the analysis service: content-addressed deduplication in
// front of the dispatch orchestrator, plus translation and votes
type Pipeline struct {
	store        store.Store
	analyzer     Analyzer
	translator   Translator
	translations cache.Cache
	flight       singleflight.Group
	log          *slog.Logger

	// OnLookup observes each store lookup
	OnLookup func(hit bool)
	// OnAnalysis observes each submission outcome
	OnAnalysis func(kind model.ContentKind, outcome string, elapsed time.Duration)
}

// New creates a pipeline. translator may be nil to disable translation.
func New(st store.Store, analyzer Analyzer, translator Translator) *Pipeline {
	return &Pipeline{
		store:        st,
		analyzer:     analyzer,
		translator:   translator,
		translations: cache.NewMemoryCache(translationTTL, time.Hour),
		log:          logging.New("pipeline"),
	}
}

// Submit returns the report for req. Identical content is analyzed at most
// once: a committed report is returned as is, and concurrent identical
// submissions share one in-flight analysis.
func (p *Pipeline) Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	if req == nil || strings.TrimSpace(req.Primary()) == "" {
		return nil, fmt.Errorf("empty analysis request")
	}

	start := time.Now()
	kind := req.Kind()
	hash := model.ContentHash(req)

	if res, ok, err := p.lookup(ctx, hash); err != nil {
		p.observe(kind, OutcomeFailed, start)
		return nil, err
	} else if ok {
		p.log.Debug("report cache hit", "kind", kind, "id", res.ID)
		p.observe(kind, OutcomeCached, start)
		return res, nil
	}

	ch := p.flight.DoChan(hash, func() (any, error) {
		return p.analyzeAndCommit(context.WithoutCancel(ctx), hash, req)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			p.observe(kind, OutcomeFailed, start)
			return nil, r.Err
		}
		// Callers sharing a flight each get their own copy
		res := *r.Val.(*model.AnalysisResults)
		switch {
		case res.Partial():
			p.observe(kind, OutcomePartial, start)
		case r.Shared:
			p.observe(kind, OutcomeCached, start)
		default:
			p.observe(kind, OutcomeCommitted, start)
		}
		return &res, nil
	case <-ctx.Done():
		p.observe(kind, OutcomeFailed, start)
		return nil, ctx.Err()
	}
}

// analyzeAndCommit runs inside the single flight for hash
func (p *Pipeline) analyzeAndCommit(ctx context.Context, hash string, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	// A flight that finished just before this one started has committed
	if res, ok, err := p.lookup(ctx, hash); err != nil {
		return nil, err
	} else if ok {
		return res, nil
	}

	if req.Kind() == model.KindURL {
		p.log.Info("analyzing", "kind", req.Kind(), "subject", subjectOf(req.Primary()))
	} else {
		p.log.Info("analyzing", "kind", req.Kind())
	}

	if p.analyzer == nil {
		return nil, fmt.Errorf("analysis is not configured")
	}
	res, err := p.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if res.Partial() {
		// Partial reports are returned but never persisted
		p.log.Warn("partial report not committed", "kind", req.Kind(), "unavailable", res.Unavailable)
		res.ContentHash = hash
		return res, nil
	}

	committed, err := p.store.Commit(ctx, hash, res)
	if err != nil {
		return nil, fmt.Errorf("commit report: %w", err)
	}
	p.log.Info("report committed", "id", committed.ID, "kind", committed.Kind, "trust", committed.TrustScore)
	return committed, nil
}

func (p *Pipeline) lookup(ctx context.Context, hash string) (*model.AnalysisResults, bool, error) {
	res, ok, err := p.store.Lookup(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("store lookup: %w", err)
	}
	if p.OnLookup != nil {
		p.OnLookup(ok)
	}
	return res, ok, nil
}

// Report returns a committed report
func (p *Pipeline) Report(ctx context.Context, id string) (*model.AnalysisResults, error) {
	return p.store.Get(ctx, id)
}

// Vote records one vote and returns the new tally
func (p *Pipeline) Vote(ctx context.Context, id string, dir model.VoteDirection) (model.VoteTally, error) {
	if err := (model.VoteRequest{ReportID: id, Vote: dir}).Validate(); err != nil {
		return model.VoteTally{}, err
	}
	return p.store.Vote(ctx, id, dir)
}

// Translate returns the summary in the target language. When only a report
// id is given, the report's main summary is translated.
func (p *Pipeline) Translate(ctx context.Context, req model.TranslateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if p.translator == nil {
		return "", errors.New("translation is not configured")
	}

	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		res, err := p.store.Get(ctx, req.ReportID)
		if err != nil {
			return "", err
		}
		summary = res.MainSummary()
		if summary == "" {
			return "", fmt.Errorf("report %s has no summary to translate", req.ReportID)
		}
	}

	key := cache.CacheKey("translate", strings.ToLower(strings.TrimSpace(req.TargetLanguage)), summary)
	if data, ok := p.translations.Get(key); ok {
		return string(data), nil
	}

	text, err := p.translator.Translate(ctx, summary, req.TargetLanguage)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	_ = p.translations.Set(key, []byte(text), 0)
	return text, nil
}

func (p *Pipeline) observe(kind model.ContentKind, outcome string, start time.Time) {
	if p.OnAnalysis != nil {
		p.OnAnalysis(kind, outcome, time.Since(start))
	}
}
