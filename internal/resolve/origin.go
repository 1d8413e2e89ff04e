package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/util"
)

// ErrNeedsBrowser is returned for blob: references outside a live page
var ErrNeedsBrowser = errors.New("blob references can only be read inside the page that created them")

// OriginFetcher is the page-context reader used when no browser is
// attached. It sends no credentials, so it only sees what the page's own
// origin serves publicly.
type OriginFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewOriginFetcher creates a fetcher honoring the HTTP proxy and timeout
// settings. maxBytes <= 0 uses the config body limit.
func NewOriginFetcher(cfg model.HTTPConfig, maxBytes int64) *OriginFetcher {
	if maxBytes <= 0 {
		maxBytes = cfg.MaxBodyBytes
	}
	if maxBytes <= 0 {
		maxBytes = 50_000_000
	}
	return &OriginFetcher{
		client:    util.NewHTTPClient(cfg),
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// FetchInPage reads locator with a plain GET
func (f *OriginFetcher) FetchInPage(ctx context.Context, locator string) (model.InlinePayload, error) {
	if IsBlob(locator) {
		return model.InlinePayload{}, ErrNeedsBrowser
	}
	if !isHTTP(locator) {
		return model.InlinePayload{}, fmt.Errorf("cannot read %q from the page origin", locator)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(locator), nil)
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.InlinePayload{}, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return model.InlinePayload{}, fmt.Errorf("body exceeds the %s limit", humanize.Bytes(uint64(f.maxBytes)))
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(raw)
	}
	return model.NewInlinePayload(mediaType, raw), nil
}
