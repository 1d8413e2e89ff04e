package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/score"
)

// ErrNoBackend is returned when a step has no collaborator configured
var ErrNoBackend = errors.New("no backend configured")

// Options tune the orchestrator
type Options struct {
	// StepTimeout bounds each external call; zero means no bound
	StepTimeout time.Duration

	// FailFast fails the whole request when any parallel sub-analysis
	// fails, instead of returning a partial report
	FailFast bool
}

// Orchestrator routes each request to its analysis chain and composes the
// trust score
type Orchestrator struct {
	backends Backends
	scorer   *score.Scorer
	opts     Options
	now      func() time.Time
	log      *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given backends
func NewOrchestrator(backends Backends, opts Options) *Orchestrator {
	return &Orchestrator{
		backends: backends,
		scorer:   score.NewScorer(),
		opts:     opts,
		now:      time.Now,
		log:      logging.New("dispatch"),
	}
}

// Analyze runs the chain for the request's kind. Sequential steps fail the
// request; parallel sub-analyses that fail are reported as unavailable
// unless FailFast is set.
func (o *Orchestrator) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	var (
		res *model.AnalysisResults
		err error
	)

	start := o.now()

	switch r := req.(type) {
	case model.TextRequest:
		res, err = o.analyzeText(ctx, r.Content)
	case model.URLRequest:
		res, err = o.analyzeURL(ctx, r.Content)
	case model.AudioRequest:
		res, err = o.analyzeAudio(ctx, r.Payload)
	case model.ImageRequest:
		res, err = o.analyzeImage(ctx, r.Payload)
	case model.VideoRequest:
		res, err = o.analyzeVideo(ctx, r.Payload)
	default:
		return nil, fmt.Errorf("%w: %T", model.ErrUnsupportedKind, req)
	}
	if err != nil {
		return nil, err
	}

	res.Kind = req.Kind()
	res.CreatedAt = o.now().UTC()
	res.Score = o.scorer.Calculate(res)
	res.TrustScore = res.Score.Trust
	res.Caption = model.Caption(res.MainSummary())

	o.log.Debug("analysis complete",
		"kind", res.Kind,
		"trust", res.TrustScore,
		"unavailable", res.Unavailable,
		"elapsed", o.now().Sub(start))

	return res, nil
}

func (o *Orchestrator) analyzeText(ctx context.Context, text string) (*model.AnalysisResults, error) {
	if o.backends.Text == nil {
		return nil, stepError(StepText, ErrNoBackend)
	}

	var out *model.TextAnalysis
	err := o.step(ctx, StepText, func(ctx context.Context) (err error) {
		out, err = o.backends.Text.AnalyzeText(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &model.AnalysisResults{Text: out}, nil
}

func (o *Orchestrator) analyzeURL(ctx context.Context, locator string) (*model.AnalysisResults, error) {
	if o.backends.URL == nil {
		return nil, stepError(StepURL, ErrNoBackend)
	}

	pageText := o.readPage(ctx, locator)

	// Citations are checked while the model reads the page
	cited := make(chan []model.CitedSource, 1)
	go func() { cited <- o.checkCitations(ctx, locator) }()

	var out *model.URLAnalysis
	err := o.step(ctx, StepURL, func(ctx context.Context) (err error) {
		out, err = o.backends.URL.AnalyzeURL(ctx, locator, pageText)
		return err
	})
	if err != nil {
		return nil, err
	}

	if o.backends.Sources != nil {
		out.SourceAuthority = o.backends.Sources.Classify(locator)
	}
	out.CitedSources = <-cited
	return &model.AnalysisResults{URL: out}, nil
}

// checkCitations is best effort; a failure leaves the report without
// cited sources
func (o *Orchestrator) checkCitations(ctx context.Context, locator string) []model.CitedSource {
	if o.backends.Citations == nil || model.IsDataURI(locator) {
		return nil
	}

	var sources []model.CitedSource
	err := o.step(ctx, StepCitations, func(ctx context.Context) (err error) {
		sources, err = o.backends.Citations.CheckCitations(ctx, locator)
		return err
	})
	if err != nil {
		o.log.Debug("citation check failed", "url", locator, "error", err)
		return nil
	}
	return sources
}

// readPage fetches page text for the URL flow. Failures degrade to
// URL-only prompting.
func (o *Orchestrator) readPage(ctx context.Context, locator string) string {
	if o.backends.Pages == nil || model.IsDataURI(locator) {
		return ""
	}

	var text string
	err := o.step(ctx, StepPageRead, func(ctx context.Context) (err error) {
		text, err = o.backends.Pages.ReadPage(ctx, locator)
		return err
	})
	if err != nil {
		o.log.Debug("page read failed, analyzing by URL only", "url", locator, "error", err)
		return ""
	}
	return text
}

func (o *Orchestrator) analyzeAudio(ctx context.Context, audio model.InlinePayload) (*model.AnalysisResults, error) {
	transcript, err := o.transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}

	res, err := o.analyzeText(ctx, transcript)
	if err != nil {
		return nil, err
	}
	res.Transcription = transcript
	return res, nil
}

func (o *Orchestrator) analyzeImage(ctx context.Context, image model.InlinePayload) (*model.AnalysisResults, error) {
	res := &model.AnalysisResults{}

	steps := []parallelStep{
		{model.SubReportImage, StepImage, o.backends.Image != nil, func(ctx context.Context) (err error) {
			res.Image, err = o.backends.Image.AnalyzeImage(ctx, image)
			return err
		}},
		{model.SubReportAIDetection, StepAIDetection, o.backends.AI != nil, func(ctx context.Context) (err error) {
			res.AIDetection, err = o.backends.AI.DetectAI(ctx, image)
			return err
		}},
	}

	unavailable, err := o.parallel(ctx, steps)
	if err != nil {
		return nil, err
	}
	res.Unavailable = unavailable
	return res, nil
}

func (o *Orchestrator) analyzeVideo(ctx context.Context, video model.InlinePayload) (*model.AnalysisResults, error) {
	transcript, err := o.transcribe(ctx, video)
	if err != nil {
		return nil, err
	}

	res := &model.AnalysisResults{Transcription: transcript}

	steps := []parallelStep{
		{model.SubReportAnonymization, StepAnonymization, o.backends.Anonymizer != nil, func(ctx context.Context) (err error) {
			res.Anonymization, err = o.backends.Anonymizer.Anonymize(ctx, video, transcript)
			return err
		}},
		{model.SubReportRecycled, StepRecycled, o.backends.Footage != nil, func(ctx context.Context) (err error) {
			res.RecycledFootage, err = o.backends.Footage.CheckRecycledFootage(ctx, video, transcript)
			return err
		}},
		{model.SubReportCrisis, StepCrisis, o.backends.Footage != nil, func(ctx context.Context) (err error) {
			res.CrisisContext, err = o.backends.Footage.CheckCrisisContext(ctx, video, transcript)
			return err
		}},
		{model.SubReportAIDetection, StepAIDetection, o.backends.AI != nil, func(ctx context.Context) (err error) {
			res.AIDetection, err = o.backends.AI.DetectAI(ctx, video)
			return err
		}},
	}

	unavailable, err := o.parallel(ctx, steps)
	if err != nil {
		return nil, err
	}
	res.Unavailable = unavailable
	return res, nil
}

// transcribe is a sequential step; its failure fails the request
func (o *Orchestrator) transcribe(ctx context.Context, media model.InlinePayload) (string, error) {
	if o.backends.Transcriber == nil {
		return "", stepError(StepTranscription, ErrNoBackend)
	}

	var transcript string
	err := o.step(ctx, StepTranscription, func(ctx context.Context) (err error) {
		transcript, err = o.backends.Transcriber.Transcribe(ctx, media)
		return err
	})
	return transcript, err
}

// parallelStep is one independent sub-analysis. Each writes only its own
// field of the report.
type parallelStep struct {
	subReport  string
	step       string
	configured bool
	run        func(ctx context.Context) error
}

// parallel runs independent sub-analyses together and waits for all of
// them. It returns the sub-reports that failed. If every step failed, or
// FailFast is set and any step failed, the request fails.
func (o *Orchestrator) parallel(ctx context.Context, steps []parallelStep) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(steps))

	for i, s := range steps {
		i, s := i, s
		g.Go(func() error {
			var err error
			if !s.configured {
				err = stepError(s.step, ErrNoBackend)
			} else {
				err = o.step(gctx, s.step, s.run)
			}
			if err == nil {
				return nil
			}
			errs[i] = err
			if o.opts.FailFast {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		unavailable []string
		first       error
	)
	for i, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		o.log.Warn("sub-analysis unavailable", "step", steps[i].step, "error", err)
		unavailable = append(unavailable, steps[i].subReport)
	}

	if len(unavailable) == len(steps) {
		return nil, first
	}
	return unavailable, nil
}

// step runs one external call under the per-step timeout
func (o *Orchestrator) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if o.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.StepTimeout)
		defer cancel()
	}
	return stepError(name, fn(ctx))
}
