package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/publicsuffix"

	"github.com/ppiankov/unearth/internal/cache"
	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/util"
	"github.com/ppiankov/unearth/internal/worker"
)

const (
	// maxErrorBody bounds the upstream body kept on a failed media fetch
	maxErrorBody = 512
	maxRedirects = 10
)

// Relay is the privileged context. It performs credentialed media fetches
// and forwards analysis, translation and votes upstream.
type Relay struct {
	client      *http.Client
	userAgent   string
	credentials map[string]string // host -> Cookie header
	private     bool              // allow loopback, private and link-local hosts
	resolver    *net.Resolver
	maxBytes    int64
	limiter     *worker.Limiter
	media       cache.Cache
	mediaTTL    time.Duration
	upstream    Upstream
	log         *slog.Logger

	// OnFetch observes each media fetch outcome ("hit", "ok", "error")
	OnFetch func(outcome string)
}

// NewRelay creates a relay. media may be nil to disable caching.
func NewRelay(httpCfg model.HTTPConfig, fetchCfg model.FetchConfig, upstream Upstream, media cache.Cache) (*Relay, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	timeout := fetchCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxBytes := fetchCfg.MaxMediaBytes
	if maxBytes <= 0 {
		maxBytes = 50_000_000
	}

	credentials := make(map[string]string, len(fetchCfg.Credentials))
	for host, cookie := range fetchCfg.Credentials {
		credentials[strings.ToLower(host)] = cookie
	}

	r := &Relay{
		userAgent:   httpCfg.UserAgent,
		credentials: credentials,
		private:     fetchCfg.AllowPrivateHosts,
		resolver:    net.DefaultResolver,
		maxBytes:    maxBytes,
		limiter:     worker.NewLimiter(fetchCfg.RatePerSecond, fetchCfg.Burst),
		media:       media,
		mediaTTL:    fetchCfg.CacheTTL,
		upstream:    upstream,
		log:         logging.New("relay"),
	}
	r.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
		// Redirects must not lead into the private network either
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return r.checkHost(req.Context(), req.URL.Hostname())
		},
	}
	return r, nil
}

// Handle serves one message
func (r *Relay) Handle(ctx context.Context, msg Message) *Reply {
	switch m := msg.(type) {
	case AnalyzeContent:
		if r.upstream == nil {
			return Failure(fmt.Errorf("the analysis backend is not configured"))
		}
		res, err := r.upstream.Submit(ctx, m.Request)
		if err != nil {
			r.log.Error("analysis failed", "kind", m.Request.Kind(), "origin", m.Origin, "error", err)
			return Failure(err)
		}
		return &Reply{Success: true, Results: res}

	case FetchMedia:
		p, err := r.FetchMedia(ctx, m.URL)
		if err != nil {
			r.log.Warn("fetchMedia failed", "url", m.URL, "error", err)
			return Failure(err)
		}
		return &Reply{Success: true, DataURI: p.DataURI(), ContentType: p.MediaType}

	case Translate:
		if r.upstream == nil {
			return Failure(fmt.Errorf("the analysis backend is not configured"))
		}
		text, err := r.upstream.Translate(ctx, m.TranslateRequest)
		if err != nil {
			return Failure(err)
		}
		return &Reply{Success: true, TranslatedSummary: text}

	case Vote:
		if r.upstream == nil {
			return Failure(fmt.Errorf("the analysis backend is not configured"))
		}
		tally, err := r.upstream.Vote(ctx, m.ReportID, m.Vote)
		if err != nil {
			return Failure(err)
		}
		return &Reply{Success: true, Votes: &tally}

	default:
		return Failure(fmt.Errorf("unknown message %T", msg))
	}
}

// FetchMedia retrieves a cross-origin resource with the configured
// credentials and returns it inline
func (r *Relay) FetchMedia(ctx context.Context, rawURL string) (model.InlinePayload, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.InlinePayload{}, fmt.Errorf("cannot fetch %s: URLs from the privileged context", u.Scheme)
	}
	if err := r.checkHost(ctx, u.Hostname()); err != nil {
		r.observe("error")
		return model.InlinePayload{}, err
	}

	key := cache.CacheKey("media", u.String())
	if r.media != nil {
		if p, ok := cache.GetJSON[model.InlinePayload](r.media, key); ok {
			r.observe("hit")
			return p, nil
		}
	}

	p, err := r.download(ctx, u)
	if err != nil {
		r.observe("error")
		return model.InlinePayload{}, err
	}
	r.observe("ok")

	if r.media != nil {
		if err := cache.SetJSON(r.media, key, p, r.mediaTTL); err != nil {
			r.log.Debug("media cache write failed", "error", err)
		}
	}
	return p, nil
}

func (r *Relay) download(ctx context.Context, u *url.URL) (model.InlinePayload, error) {
	if err := r.limiter.Wait(ctx, u.String()); err != nil {
		return model.InlinePayload{}, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("create request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "image/*,video/*,audio/*,*/*;q=0.8")
	if cookie := r.credentialFor(u.Hostname()); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrPrivateHost) {
			return model.InlinePayload{}, err
		}
		return model.InlinePayload{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.InlinePayload{}, &TransportError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if resp.ContentLength > r.maxBytes {
		return model.InlinePayload{}, fmt.Errorf("media is %s, limit is %s",
			humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(r.maxBytes)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("read media: %w", err)
	}
	if int64(len(raw)) > r.maxBytes {
		return model.InlinePayload{}, fmt.Errorf("media exceeds the %s limit", humanize.Bytes(uint64(r.maxBytes)))
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	r.log.Debug("fetchMedia success", "url", u.String(), "type", mediaType, "size", humanize.Bytes(uint64(len(raw))))
	return model.NewInlinePayload(mediaType, raw), nil
}

// checkHost rejects hosts that are, or resolve to, loopback, private,
// link-local or unspecified addresses
func (r *Relay) checkHost(ctx context.Context, host string) error {
	if r.private {
		return nil
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return fmt.Errorf("missing host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = append(ips, ip)
	} else {
		addrs, err := r.resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return &TransportError{Err: fmt.Errorf("resolve %s: %w", host, err)}
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: %s (%s)", ErrPrivateHost, host, ip)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast()
}

// credentialFor returns the configured Cookie header for host or its
// closest configured parent domain
func (r *Relay) credentialFor(host string) string {
	host = strings.ToLower(host)
	for host != "" {
		if c, ok := r.credentials[host]; ok {
			return c
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}
	return ""
}

func (r *Relay) observe(outcome string) {
	if r.OnFetch != nil {
		r.OnFetch(outcome)
	}
}
