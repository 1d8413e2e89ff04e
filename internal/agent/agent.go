package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/present"
)

// Messages shown on the presentation surface
const (
	MsgExtracting = "Finding content in this post..."
	MsgResolving  = "Retrieving media..."
	MsgAnalyzing  = "Analyzing content..."
	MsgNoContent  = "Couldn't find analyzable content (text, image, or video) in this post."
)

// Extractor selects the artifact of one post
type Extractor interface {
	Extract(fragmentHTML, pageURL string) (model.ArtifactReference, error)
}

// Resolver turns an artifact into an analyzable payload
type Resolver interface {
	Resolve(ctx context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error)
}

// Client reaches the analysis service across the privilege boundary.
// bridge.Client implements it.
type Client interface {
	AnalyzeContent(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error)
	Translate(ctx context.Context, req model.TranslateRequest) (string, error)
	Vote(ctx context.Context, reportID string, dir model.VoteDirection) (model.VoteTally, error)
}

// Agent runs the page-side fact-check flow and keeps the surface current
type Agent struct {
	extractor Extractor
	resolver  Resolver
	client    Client
	ui        *present.Controller
	log       *slog.Logger

	mu      sync.Mutex
	current *model.AnalysisResults
}

// New creates an agent drawing to ui. A nil ui runs headless.
func New(extractor Extractor, resolver Resolver, client Client, ui *present.Controller) *Agent {
	return &Agent{
		extractor: extractor,
		resolver:  resolver,
		client:    client,
		ui:        ui,
		log:       logging.New("agent"),
	}
}

// FactCheck analyzes one post. Every outcome, including failure, ends on
// the presentation surface; the returned error mirrors what was shown.
func (a *Agent) FactCheck(ctx context.Context, fragmentHTML, pageURL string) (*model.AnalysisResults, error) {
	a.loading(MsgExtracting)

	ref, err := a.extractor.Extract(fragmentHTML, pageURL)
	if err != nil {
		if errors.Is(err, model.ErrExtractionMiss) {
			a.fail(MsgNoContent)
		} else {
			a.fail(err.Error())
		}
		return nil, err
	}
	a.log.Debug("artifact selected", "kind", ref.Kind, "site", ref.Site)

	if ref.Kind != model.ArtifactText {
		a.loading(MsgResolving)
	}
	payload, err := a.resolver.Resolve(ctx, ref)
	if err != nil {
		a.fail(err.Error())
		return nil, fmt.Errorf("resolve %s: %w", ref.Kind, err)
	}

	req, err := model.RequestFromPayload(payload)
	if err != nil {
		a.fail(err.Error())
		return nil, fmt.Errorf("build request: %w", err)
	}

	res, err := a.analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if payload.Degraded {
		res = markDegraded(res)
		a.log.Info("analyzed by URL only", "kind", ref.Kind, "locator", ref.Locator)
	}
	a.show(res)
	return res, nil
}

// Submit analyzes content that needs no extraction or resolution
func (a *Agent) Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	res, err := a.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	a.show(res)
	return res, nil
}

func (a *Agent) analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	a.loading(MsgAnalyzing)
	res, err := a.client.AnalyzeContent(ctx, req)
	if err != nil {
		a.fail(err.Error())
		return nil, fmt.Errorf("analyze content: %w", err)
	}
	return res, nil
}

func (a *Agent) show(res *model.AnalysisResults) {
	a.mu.Lock()
	a.current = res
	a.mu.Unlock()

	if a.ui == nil {
		return
	}
	if err := a.ui.Results(res); err != nil {
		a.log.Warn("results not shown", "error", err)
	}
}

// Vote records a vote on the report on screen and redraws the tally
func (a *Agent) Vote(ctx context.Context, dir model.VoteDirection) (model.VoteTally, error) {
	id, err := a.currentID()
	if err != nil {
		return model.VoteTally{}, err
	}

	tally, err := a.client.Vote(ctx, id, dir)
	if err != nil {
		return model.VoteTally{}, fmt.Errorf("vote: %w", err)
	}

	a.mu.Lock()
	if a.current != nil && a.current.ID == id {
		res := *a.current
		res.Votes = tally
		a.current = &res
	}
	a.mu.Unlock()

	if a.ui != nil {
		if err := a.ui.Votes(tally); err != nil {
			a.log.Warn("tally not shown", "error", err)
		}
	}
	return tally, nil
}

// Translate shows the report summary in another language
func (a *Agent) Translate(ctx context.Context, language string) (string, error) {
	a.mu.Lock()
	res := a.current
	a.mu.Unlock()
	if res == nil {
		return "", fmt.Errorf("no report to translate")
	}

	req := model.TranslateRequest{ReportID: res.ID, Summary: res.MainSummary(), TargetLanguage: language}
	if err := req.Validate(); err != nil {
		return "", err
	}
	text, err := a.client.Translate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}

	if a.ui != nil {
		if err := a.ui.Translation(language, text); err != nil {
			a.log.Warn("translation not shown", "error", err)
		}
	}
	return text, nil
}

// Current returns the last report shown, if any
func (a *Agent) Current() *model.AnalysisResults {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Agent) currentID() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return "", fmt.Errorf("no report to vote on")
	}
	if a.current.ID == "" {
		return "", fmt.Errorf("report was not stored; partial results cannot be voted on")
	}
	return a.current.ID, nil
}

func (a *Agent) loading(msg string) {
	if a.ui == nil {
		return
	}
	if err := a.ui.Loading(msg); err != nil {
		a.log.Debug("loading not shown", "error", err)
	}
}

func (a *Agent) fail(msg string) {
	if a.ui == nil {
		return
	}
	if err := a.ui.Failure(msg); err != nil {
		a.log.Debug("failure not shown", "error", err)
	}
}

// markDegraded flags a copy of the report. The stored report is shared by
// every submitter of the same content and is left untouched.
func markDegraded(res *model.AnalysisResults) *model.AnalysisResults {
	out := *res
	out.Degraded = true
	out.Score.Signals = append(append([]model.Signal(nil), res.Score.Signals...), model.Signal{
		Type:        model.SignalDegraded,
		Severity:    model.SeverityWarning,
		Description: "Media could not be retrieved; analyzed by URL only",
	})
	return &out
}
