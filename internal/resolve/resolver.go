package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
)

// Strategy is one resolution tier. Applies must be cheap and side-effect
// free; Resolve may block on the network.
type Strategy interface {
	Name() string
	Applies(ref model.ArtifactReference) bool
	Resolve(ctx context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error)
}

// DefaultStepTimeout bounds one strategy attempt
const DefaultStepTimeout = 20 * time.Second

// Outcomes reported to Resolver.OnStep
const (
	OutcomeResolved  = "resolved"
	OutcomeFailed    = "failed"
	OutcomeExhausted = "exhausted"
)

type state int

const (
	statePending state = iota
	stateTryNext
	stateResolved
	stateExhausted
)

// Resolver turns an artifact reference into a payload the analysis backend
// can consume. Strategies run in order; the first valid payload wins and
// exhaustion degrades to a URL payload carrying the original locator.
type Resolver struct {
	strategies  []Strategy
	stepTimeout time.Duration
	log         *slog.Logger

	// OnStep observes each attempted strategy; the fallback reports as "url"
	OnStep func(strategy, outcome string)
}

// NewResolver creates a resolver over strategies. A non-positive timeout
// uses DefaultStepTimeout.
func NewResolver(stepTimeout time.Duration, strategies ...Strategy) *Resolver {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Resolver{
		strategies:  strategies,
		stepTimeout: stepTimeout,
		log:         logging.New("resolve"),
	}
}

// Resolve walks the strategy chain. Errors from individual strategies are
// logged and swallowed; only an unusable reference or a cancelled context
// is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error) {
	if ref.Locator == "" {
		return model.ResolvedPayload{}, fmt.Errorf("artifact reference has no locator")
	}
	if ref.Kind == model.ArtifactText {
		return model.TextPayload(ref.Locator), nil
	}

	var (
		st      = statePending
		next    int
		payload model.ResolvedPayload
		errs    []error
	)

	for {
		switch st {
		case statePending:
			st = stateTryNext

		case stateTryNext:
			if err := ctx.Err(); err != nil {
				return model.ResolvedPayload{}, err
			}
			if next >= len(r.strategies) {
				st = stateExhausted
				continue
			}
			s := r.strategies[next]
			next++
			if !s.Applies(ref) {
				continue
			}

			p, err := r.attempt(ctx, s, ref)
			if err != nil {
				r.log.Debug("strategy failed", "strategy", s.Name(), "kind", ref.Kind, "error", err)
				r.observe(s.Name(), OutcomeFailed)
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				continue
			}
			r.observe(s.Name(), OutcomeResolved)
			payload = p
			st = stateResolved

		case stateResolved:
			return payload, nil

		case stateExhausted:
			err := errors.Join(append([]error{model.ErrResolutionExhausted}, errs...)...)
			r.log.Info("falling back to URL analysis", "kind", ref.Kind, "site", ref.Site, "error", err)
			r.observe("url", OutcomeExhausted)
			return model.URLPayload(ref.Locator, true), nil
		}
	}
}

// attempt runs one strategy under the step timeout and checks the payload
// invariants
func (r *Resolver) attempt(ctx context.Context, s Strategy, ref model.ArtifactReference) (model.ResolvedPayload, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	p, err := s.Resolve(stepCtx, ref)
	if err != nil {
		return model.ResolvedPayload{}, err
	}
	if err := p.Validate(); err != nil {
		return model.ResolvedPayload{}, fmt.Errorf("invalid payload: %w", err)
	}
	if p.Strategy == "" {
		p.Strategy = s.Name()
	}
	return p, nil
}

func (r *Resolver) observe(strategy, outcome string) {
	if r.OnStep != nil {
		r.OnStep(strategy, outcome)
	}
}
