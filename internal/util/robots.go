package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/unearth/internal/cache"
)

// RobotsChecker answers robots.txt questions for the page fetcher.
// Raw robots bodies are cached per host so the parse stays cheap.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	store     cache.Cache
	ttl       time.Duration
	group     singleflight.Group
}

type robotsEntry struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// NewRobotsChecker creates a checker; a nil client gets a 10s default
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		store:     cache.NewMemoryCache(time.Hour, 10*time.Minute),
		ttl:       time.Hour,
	}
}

// CanFetch reports whether rawURL may be fetched and the crawl delay.
// Unreachable robots.txt allows the fetch.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, 0, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	data, err := r.robots(ctx, u)
	if err != nil {
		return true, 0, nil
	}

	agent := NormalizeUserAgent(r.userAgent)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	var delay time.Duration
	if g := data.FindGroup(agent); g != nil {
		delay = g.CrawlDelay
	}
	return data.TestAgent(path, agent), delay, nil
}

// IsAllowed drops the crawl delay and error
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	ok, _, _ := r.CanFetch(ctx, rawURL)
	return ok
}

func (r *RobotsChecker) robots(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	origin := u.Scheme + "://" + u.Host
	key := cache.CacheKey("robots", origin)

	if e, ok := cache.GetJSON[robotsEntry](r.store, key); ok {
		return robotstxt.FromStatusAndBytes(e.Status, e.Body)
	}

	v, err, _ := r.group.Do(origin, func() (any, error) {
		e, err := r.download(ctx, origin+"/robots.txt")
		if err != nil {
			return nil, err
		}
		_ = cache.SetJSON(r.store, key, e, r.ttl)
		return e, nil
	})
	if err != nil {
		return nil, err
	}

	e := v.(robotsEntry)
	return robotstxt.FromStatusAndBytes(e.Status, e.Body)
}

func (r *RobotsChecker) download(ctx context.Context, robotsURL string) (robotsEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return robotsEntry{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return robotsEntry{}, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return robotsEntry{}, fmt.Errorf("read robots.txt: %w", err)
	}

	return robotsEntry{Status: resp.StatusCode, Body: body}, nil
}

// NormalizeUserAgent reduces "Unearth/0.1 (+url)" to "Unearth"
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
