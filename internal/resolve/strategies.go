package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/unearth/internal/model"
)

// PageFetcher reads a resource with the permissions of the page that
// holds it
type PageFetcher interface {
	FetchInPage(ctx context.Context, locator string) (model.InlinePayload, error)
}

// MediaFetcher performs a credentialed cross-origin fetch. bridge.Client
// and bridge.Relay both satisfy it.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, rawURL string) (model.InlinePayload, error)
}

// FrameGrabber captures a single still image of a video
type FrameGrabber interface {
	GrabFrame(ctx context.Context, ref model.ArtifactReference) (model.InlinePayload, error)
}

// Strategy names
const (
	NameInline     = "inline"
	NamePage       = "page"
	NamePrivileged = "privileged"
	NameFrame      = "frame"
)

// Chain builds the standard order: inline, page, privileged, frame. Nil
// collaborators drop their tier.
func Chain(page PageFetcher, media MediaFetcher, frames ...FrameGrabber) []Strategy {
	chain := []Strategy{InlineStrategy{}}
	if page != nil {
		chain = append(chain, PageStrategy{Fetcher: page})
	}
	if media != nil {
		chain = append(chain, PrivilegedStrategy{Fetcher: media})
	}
	for _, g := range frames {
		if g != nil {
			chain = append(chain, FrameStrategy{Grabber: g})
		}
	}
	return chain
}

// InlineStrategy decodes data: locators without touching the network
type InlineStrategy struct{}

func (InlineStrategy) Name() string { return NameInline }

func (InlineStrategy) Applies(ref model.ArtifactReference) bool {
	return model.IsDataURI(ref.Locator)
}

func (InlineStrategy) Resolve(_ context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error) {
	p, err := model.ParseDataURI(ref.Locator)
	if err != nil {
		return model.ResolvedPayload{}, err
	}
	return model.PayloadFromInline(p, NameInline), nil
}

// PageStrategy reads blob: references, and same-origin URLs, through the
// page context
type PageStrategy struct {
	Fetcher PageFetcher
}

func (PageStrategy) Name() string { return NamePage }

func (PageStrategy) Applies(ref model.ArtifactReference) bool {
	return IsBlob(ref.Locator) || SameOrigin(ref.Locator, ref.PageURL)
}

func (s PageStrategy) Resolve(ctx context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error) {
	p, err := s.Fetcher.FetchInPage(ctx, ref.Locator)
	if err != nil {
		return model.ResolvedPayload{}, err
	}
	return mediaPayload(p, NamePage)
}

// PrivilegedStrategy asks the privileged context for an http(s) resource
type PrivilegedStrategy struct {
	Fetcher MediaFetcher
}

func (PrivilegedStrategy) Name() string { return NamePrivileged }

func (PrivilegedStrategy) Applies(ref model.ArtifactReference) bool {
	return isHTTP(ref.Locator)
}

func (s PrivilegedStrategy) Resolve(ctx context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error) {
	p, err := s.Fetcher.FetchMedia(ctx, ref.Locator)
	if err != nil {
		return model.ResolvedPayload{}, err
	}
	return mediaPayload(p, NamePrivileged)
}

// FrameStrategy substitutes one frame for a video that could not be read
type FrameStrategy struct {
	Grabber FrameGrabber
}

func (FrameStrategy) Name() string { return NameFrame }

func (FrameStrategy) Applies(ref model.ArtifactReference) bool {
	return ref.IsPlayableVideo()
}

func (s FrameStrategy) Resolve(ctx context.Context, ref model.ArtifactReference) (model.ResolvedPayload, error) {
	p, err := s.Grabber.GrabFrame(ctx, ref)
	if err != nil {
		return model.ResolvedPayload{}, err
	}
	if kind := model.ClassifyMediaType(p.MediaType); kind != model.KindImage {
		return model.ResolvedPayload{}, fmt.Errorf("frame has media type %s, want an image", p.MediaType)
	}
	return model.PayloadFromInline(p, NameFrame), nil
}

// mediaPayload accepts only image, video or audio bodies. Anything else
// (a login page, a JSON error) means the fetch did not reach the media.
func mediaPayload(p model.InlinePayload, strategy string) (model.ResolvedPayload, error) {
	out := model.PayloadFromInline(p, strategy)
	if !out.ContentKind.IsBinary() {
		return model.ResolvedPayload{}, fmt.Errorf("unexpected content type %q", p.MediaType)
	}
	return out, nil
}

// IsBlob reports whether locator is a page-local blob: reference
func IsBlob(locator string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(locator)), "blob:")
}

func isHTTP(locator string) bool {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SameOrigin reports whether two http(s) URLs share scheme, host and port
func SameOrigin(a, b string) bool {
	if !isHTTP(a) || !isHTTP(b) {
		return false
	}
	ua, _ := url.Parse(strings.TrimSpace(a))
	ub, _ := url.Parse(strings.TrimSpace(b))
	return ua.Scheme == ub.Scheme && strings.EqualFold(ua.Host, ub.Host)
}
