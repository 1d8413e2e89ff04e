package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
)

// Options configures the headless browser
type Options struct {
	ExecPath     string // empty uses the chromedp lookup
	Headful      bool
	UserAgent    string
	FrameMaxEdge int
	NavTimeout   time.Duration
}

// Session is one live page. It reads blob: references and captures video
// frames with the page's own permissions.
type Session struct {
	ctx          context.Context
	cancel       context.CancelFunc
	frameMaxEdge int
	navTimeout   time.Duration
	log          *slog.Logger
}

// NewSession starts a browser with one tab
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	alloc := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("mute-audio", true),
	)
	if opts.ExecPath != "" {
		alloc = append(alloc, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		alloc = append(alloc, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, alloc...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a missing binary fails here
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	maxEdge := opts.FrameMaxEdge
	if maxEdge <= 0 {
		maxEdge = 1280
	}
	navTimeout := opts.NavTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}

	return &Session{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		frameMaxEdge: maxEdge,
		navTimeout:   navTimeout,
		log:          logging.New("browser"),
	}, nil
}

// Close shuts the browser down
func (s *Session) Close() error {
	s.cancel()
	return nil
}

// Navigate loads pageURL and waits for the body
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	ctx, cancel := s.bind(ctx, s.navTimeout)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	s.log.Debug("page loaded", "url", pageURL)
	return nil
}

// PostHTML returns the outer HTML of the first element matching selector
func (s *Session) PostHTML(ctx context.Context, selector string) (string, error) {
	ctx, cancel := s.bind(ctx, s.navTimeout)
	defer cancel()

	var out string
	if err := chromedp.Run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML(selector, &out, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("read %s: %w", selector, err)
	}
	return out, nil
}

// FetchInPage reads locator from inside the page and returns its bytes
func (s *Session) FetchInPage(ctx context.Context, locator string) (model.InlinePayload, error) {
	script, err := fetchScript(locator)
	if err != nil {
		return model.InlinePayload{}, err
	}

	var dataURI string
	if err := s.eval(ctx, script, &dataURI); err != nil {
		return model.InlinePayload{}, fmt.Errorf("in-page fetch: %w", err)
	}
	return model.ParseDataURI(dataURI)
}

// GrabFrame draws the current frame of the video playing ref.Locator onto
// a canvas and returns it as JPEG. Cross-origin video without CORS taints
// the canvas and fails here.
func (s *Session) GrabFrame(ctx context.Context, ref model.ArtifactReference) (model.InlinePayload, error) {
	script, err := frameScript(ref.Locator, s.frameMaxEdge)
	if err != nil {
		return model.InlinePayload{}, err
	}

	var dataURI string
	if err := s.eval(ctx, script, &dataURI); err != nil {
		return model.InlinePayload{}, fmt.Errorf("capture frame: %w", err)
	}
	return model.ParseDataURI(dataURI)
}

func (s *Session) eval(ctx context.Context, script string, out any) error {
	ctx, cancel := s.bind(ctx, 0)
	defer cancel()

	return chromedp.Run(ctx, chromedp.Evaluate(script, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

// bind derives a context on the tab that also ends with the caller's
// context. Cancelling it leaves the tab open.
func (s *Session) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		tab    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		tab, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		tab, cancel = context.WithCancel(s.ctx)
	}
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tab, cancelDeadline = context.WithDeadline(tab, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return tab, func() {
		stop()
		cancel()
	}
}

const fetchJS = `(async () => {
  const r = await fetch(%s);
  if (!r.ok) throw new Error("status " + r.status);
  const b = await r.blob();
  return await new Promise((resolve, reject) => {
    const fr = new FileReader();
    fr.onload = () => resolve(fr.result);
    fr.onerror = () => reject(fr.error);
    fr.readAsDataURL(b);
  });
})()`

const frameJS = `(() => {
  const src = %s, max = %d;
  const v = Array.from(document.querySelectorAll("video")).find(v =>
    v.currentSrc === src || v.src === src ||
    Array.from(v.querySelectorAll("source")).some(s => s.src === src));
  if (!v) throw new Error("video not found");
  if (v.readyState < 2 || !v.videoWidth) throw new Error("video has no decoded frame");
  const k = Math.min(1, max / Math.max(v.videoWidth, v.videoHeight));
  const c = document.createElement("canvas");
  c.width = Math.round(v.videoWidth * k);
  c.height = Math.round(v.videoHeight * k);
  c.getContext("2d").drawImage(v, 0, 0, c.width, c.height);
  return c.toDataURL("image/jpeg", 0.85);
})()`

func fetchScript(locator string) (string, error) {
	lit, err := json.Marshal(locator)
	if err != nil {
		return "", fmt.Errorf("quote locator: %w", err)
	}
	return fmt.Sprintf(fetchJS, lit), nil
}

func frameScript(locator string, maxEdge int) (string, error) {
	lit, err := json.Marshal(locator)
	if err != nil {
		return "", fmt.Errorf("quote locator: %w", err)
	}
	return fmt.Sprintf(frameJS, lit, maxEdge), nil
}
