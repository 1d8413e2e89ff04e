package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/unearth/internal/cache"
	"github.com/ppiankov/unearth/internal/extract/adapters"
	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/util"
	"github.com/ppiankov/unearth/internal/worker"
)

// ErrDisallowed means robots.txt forbids reading the page
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxFetchAttempts = 3

// pageTTL keeps a fetched page long enough for the URL flow and the
// citation check to share one download
const pageTTL = 5 * time.Minute

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// PageReader fetches a submitted URL and reduces it to visible text for
// URL analysis
type PageReader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	pages      cache.Cache
	log        *slog.Logger
}

// NewPageReader creates a reader from the HTTP settings. limiter may be nil.
func NewPageReader(cfg model.HTTPConfig, limiter *worker.Limiter) *PageReader {
	client := util.NewHTTPClient(cfg)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	r := &PageReader{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		pages:      cache.NewMemoryCache(pageTTL, time.Minute),
		log:        logging.New("pages"),
	}
	if cfg.RespectRobots {
		r.robots = util.NewRobotsChecker(client, cfg.UserAgent)
	}
	return r
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body        string
	ContentType string
	FinalURL    string
}

// ReadPage returns the page title and visible text of rawURL
func (r *PageReader) ReadPage(ctx context.Context, rawURL string) (string, error) {
	res, err := r.fetchPage(ctx, rawURL)
	if err != nil {
		return "", err
	}

	mt := mediaTypeOf(res.ContentType)
	if mt != "" && !isHTML(mt) {
		if strings.HasPrefix(mt, "text/") {
			return strings.TrimSpace(res.Body), nil
		}
		return "", fmt.Errorf("unsupported content type %q", mt)
	}
	return PageText(res.Body), nil
}

// fetchPage honors robots.txt and the per-domain rate limit, and reuses a
// recent download of the same URL
func (r *PageReader) fetchPage(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.CacheKey("page", rawURL)
	if res, ok := cache.GetJSON[FetchResult](r.pages, key); ok {
		return &res, nil
	}

	var delay time.Duration
	if r.robots != nil {
		ok, d, err := r.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		delay = d
	}
	if r.limiter != nil {
		if err := r.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	res, err := r.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(r.pages, key, res, 0); err != nil {
		r.log.Debug("page not cached", "url", rawURL, "error", err)
	}
	return res, nil
}

func mediaTypeOf(contentType string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	return mt
}

func isHTML(mediaType string) bool {
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// FetchWithRetry fetches rawURL, retrying transient failures with
// exponential backoff
func (r *PageReader) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			r.log.Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			fetchSleepFunc(backoff)
		}

		res, err := r.Fetch(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Fetch performs one GET
func (r *PageReader) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether err is a transport failure or a
// 429/5xx status
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: ") {
		code := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(code, "5") || strings.HasPrefix(code, "429")
	}
	return strings.HasPrefix(msg, "fetch: ")
}

// PageText returns "title\n\nvisible body text" for an HTML document
func PageText(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}

	var title string
	if t := adapters.FindAll(root, adapters.Tag("title")); len(t) > 0 {
		title = strings.Join(strings.Fields(textOf(t[0])), " ")
	}

	body := root
	if b := adapters.FindAll(root, adapters.Tag("body")); len(b) > 0 {
		body = b[0]
	}
	text := adapters.VisibleText(body)

	switch {
	case title == "":
		return text
	case text == "":
		return title
	default:
		return title + "\n\n" + text
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// subjectOf derives a readable label from a URL path, used when logging
// URL submissions
func subjectOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}
