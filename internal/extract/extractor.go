package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/ppiankov/unearth/internal/extract/adapters"
	"github.com/ppiankov/unearth/internal/model"
)

const (
	// MinImageArea rejects avatars, emoji and icons (roughly 100x100)
	MinImageArea = 10000

	// Fallback text thresholds for posts without a text element
	minFallbackText = 20
	maxFallbackText = 500

	// PlayableAttr set to "false" marks a video the page cannot play
	PlayableAttr = "data-unearth-playable"
)

// Extractor picks the single best analyzable artifact in a post
type Extractor struct {
	registry *adapters.Registry
}

// NewExtractor creates an extractor with the built-in site profiles
func NewExtractor() *Extractor {
	return &Extractor{registry: adapters.NewRegistry()}
}

// NewExtractorWithRegistry uses a caller-supplied profile registry
func NewExtractorWithRegistry(r *adapters.Registry) *Extractor {
	return &Extractor{registry: r}
}

// Extract parses one post's HTML and selects its artifact. It returns
// model.ErrExtractionMiss when nothing analyzable is present.
func (e *Extractor) Extract(fragmentHTML, pageURL string) (model.ArtifactReference, error) {
	doc, err := html.Parse(strings.NewReader(fragmentHTML))
	if err != nil {
		return model.ArtifactReference{}, model.ErrExtractionMiss
	}

	profile := e.registry.FindProfile(pageURL, doc)
	return e.ExtractNode(doc, pageURL, profile)
}

// ExtractNode selects the artifact under an already parsed post root.
// Priority: playable video, then the largest image, then text.
func (e *Extractor) ExtractNode(post *html.Node, pageURL string, profile adapters.SiteProfile) (ref model.ArtifactReference, err error) {
	defer func() {
		if r := recover(); r != nil {
			ref, err = model.ArtifactReference{}, model.ErrExtractionMiss
		}
	}()

	if post == nil {
		return model.ArtifactReference{}, model.ErrExtractionMiss
	}

	base, _ := url.Parse(pageURL)
	site := profile.Name()

	// 1. Video
	if v, ok := selectVideo(post, base); ok {
		v.Site, v.PageURL = site, pageURL
		return v, nil
	}

	// 2. Largest image above the minimum area
	if img, ok := selectImage(post, base); ok {
		img.Site, img.PageURL = site, pageURL
		return img, nil
	}

	// 3. Text
	if text, ok := selectText(post, profile); ok {
		return model.ArtifactReference{Kind: model.ArtifactText, Locator: text, Site: site}, nil
	}

	return model.ArtifactReference{}, model.ErrExtractionMiss
}

func selectVideo(post *html.Node, base *url.URL) (model.ArtifactReference, bool) {
	videos := adapters.FindAll(post, adapters.Tag("video"))

	// video[src] takes precedence over <source> children
	for _, pass := range []func(*html.Node) string{videoSrc, sourceSrc} {
		for _, v := range videos {
			src := pass(v)
			if src == "" {
				continue
			}
			if adapters.Attr(v, PlayableAttr) == "false" {
				continue
			}
			return model.ArtifactReference{
				Kind:     model.ArtifactVideo,
				Locator:  resolveLocator(base, src),
				Poster:   resolveLocator(base, strings.TrimSpace(adapters.Attr(v, "poster"))),
				Playable: true,
			}, true
		}
	}
	return model.ArtifactReference{}, false
}

func videoSrc(v *html.Node) string {
	return strings.TrimSpace(adapters.Attr(v, "src"))
}

func sourceSrc(v *html.Node) string {
	for c := v.FirstChild; c != nil; c = c.NextSibling {
		if adapters.IsElement(c, "source") {
			if src := strings.TrimSpace(adapters.Attr(c, "src")); src != "" {
				return src
			}
		}
	}
	return ""
}

// selectImage picks the largest image by on-screen area; DOM order only
// breaks ties
func selectImage(post *html.Node, base *url.URL) (model.ArtifactReference, bool) {
	var best *html.Node
	bestArea := 0

	for _, img := range adapters.FindAll(post, adapters.Tag("img")) {
		if imageSource(img) == "" {
			continue
		}
		a := OnScreenArea(img)
		if a >= MinImageArea && a > bestArea {
			best, bestArea = img, a
		}
	}

	if best == nil {
		return model.ArtifactReference{}, false
	}
	return model.ArtifactReference{
		Kind:    model.ArtifactImage,
		Locator: resolveLocator(base, imageSource(best)),
		Area:    bestArea,
	}, true
}

// imageSource prefers src, then data-src, then the last srcset candidate
func imageSource(img *html.Node) string {
	if src := strings.TrimSpace(adapters.Attr(img, "src")); src != "" {
		return src
	}
	if src := strings.TrimSpace(adapters.Attr(img, "data-src")); src != "" {
		return src
	}
	return lastSrcsetCandidate(adapters.Attr(img, "srcset"))
}

func lastSrcsetCandidate(srcset string) string {
	parts := strings.Split(srcset, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if f := strings.Fields(parts[i]); len(f) > 0 {
			return f[0]
		}
	}
	return ""
}

func selectText(post *html.Node, profile adapters.SiteProfile) (string, bool) {
	preds := []func(*html.Node) bool{
		profile.IsPrimaryText,
		adapters.Tag("p"),
		adapters.Tag("h1"),
		adapters.Tag("h2"),
	}
	for _, pred := range preds {
		for _, n := range adapters.FindAll(post, pred) {
			if t := adapters.VisibleText(n); t != "" {
				return t, true
			}
		}
	}

	combined := strings.TrimSpace(adapters.VisibleText(post))
	if utf8.RuneCountInString(combined) > minFallbackText {
		return truncateRunes(combined, maxFallbackText), true
	}
	return "", false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// resolveLocator makes relative references absolute. data: and blob:
// references are returned unchanged.
func resolveLocator(base *url.URL, ref string) string {
	if ref == "" || base == nil || model.IsDataURI(ref) || strings.HasPrefix(ref, "blob:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
