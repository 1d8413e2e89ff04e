package validate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/util"
)

const checkMaxAttempts = 3

// checkSleepFunc is the sleep between retries (replaced in tests)
var checkSleepFunc = time.Sleep

// LinkChecker checks the cited links of a page concurrently
type LinkChecker struct {
	httpClient *http.Client
	userAgent  string
	maxWorkers int
	authority  *AuthorityClassifier
}

// NewLinkChecker creates a checker. timeout bounds each request.
func NewLinkChecker(httpCfg model.HTTPConfig, timeout time.Duration, maxWorkers int, authority *AuthorityClassifier) *LinkChecker {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}

	client := util.NewHTTPClient(httpCfg)
	if timeout > 0 {
		client.Timeout = timeout
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	return &LinkChecker{
		httpClient: client,
		userAgent:  httpCfg.UserAgent,
		maxWorkers: maxWorkers,
		authority:  authority,
	}
}

// Check classifies and probes every link. Results keep the input order.
func (c *LinkChecker) Check(ctx context.Context, links []string) []model.CitedSource {
	if len(links) == 0 {
		return nil
	}

	results := make([]model.CitedSource, len(links))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, link := range links {
		wg.Add(1)
		go func(idx int, link string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = c.base(link)
				results[idx].Error = "context cancelled"
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, link)
		}(i, link)
	}

	wg.Wait()
	return results
}

func (c *LinkChecker) base(link string) model.CitedSource {
	host := ""
	if u, err := url.Parse(link); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	return model.CitedSource{URL: link, Host: host, Authority: c.authority.Classify(link)}
}

// checkOne probes link with HEAD, falling back to GET for servers that
// refuse HEAD
func (c *LinkChecker) checkOne(ctx context.Context, link string) model.CitedSource {
	result := c.base(link)

	resp, err := c.probe(ctx, http.MethodHead, link)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.probe(ctx, http.MethodGet, link)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Reachable = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != link {
		result.RedirectURL = final
	}
	return result
}

func (c *LinkChecker) probe(ctx context.Context, method, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// checkWithRetry retries transient failures with exponential backoff
func (c *LinkChecker) checkWithRetry(ctx context.Context, link string) model.CitedSource {
	var result model.CitedSource
	for attempt := 0; attempt < checkMaxAttempts; attempt++ {
		result = c.checkOne(ctx, link)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < checkMaxAttempts-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

// isRetryable reports 5xx, 429 and transient network failures
func isRetryable(result model.CitedSource) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	s := strings.ToLower(result.Error)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
