package model

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
)

// ContentKind selects the analysis pipeline
type ContentKind string

const (
	KindImage ContentKind = "image"
	KindVideo ContentKind = "video"
	KindAudio ContentKind = "audio"
	KindURL   ContentKind = "url"
	KindText  ContentKind = "text"
)

// IsBinary reports whether the kind travels as an inline payload
func (k ContentKind) IsBinary() bool {
	return k == KindImage || k == KindVideo || k == KindAudio
}

// Valid reports whether k is one of the known kinds
func (k ContentKind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindURL, KindText:
		return true
	}
	return false
}

// InlinePayload is a base64-encoded byte string with its declared media type
type InlinePayload struct {
	MediaType string `json:"mediaType"`
	Data      string `json:"data"` // standard base64
}

// NewInlinePayload encodes raw bytes
func NewInlinePayload(mediaType string, raw []byte) InlinePayload {
	return InlinePayload{
		MediaType: normalizeMediaType(mediaType),
		Data:      base64.StdEncoding.EncodeToString(raw),
	}
}

// DataURI renders the payload as data:<type>;base64,<data>
func (p InlinePayload) DataURI() string {
	return "data:" + p.MediaType + ";base64," + p.Data
}

// Bytes decodes the payload
func (p InlinePayload) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Data)
}

// Size returns the decoded size without decoding
func (p InlinePayload) Size() int {
	return base64.StdEncoding.DecodedLen(len(p.Data))
}

// IsDataURI reports whether s looks like an inline data reference
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "data:")
}

// ParseDataURI parses data:<media type>[;params];base64,<data>. Only base64
// data URIs carry bytes usable for analysis; percent-encoded ones are rejected.
func ParseDataURI(s string) (InlinePayload, error) {
	s = strings.TrimSpace(s)
	if !IsDataURI(s) {
		return InlinePayload{}, fmt.Errorf("not a data URI")
	}

	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return InlinePayload{}, fmt.Errorf("data URI has no payload separator")
	}

	header := s[len("data:"):comma]
	data := s[comma+1:]

	parts := strings.Split(header, ";")
	isBase64 := false
	for _, p := range parts[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return InlinePayload{}, fmt.Errorf("data URI is not base64-encoded")
	}

	mediaType := normalizeMediaType(parts[0])
	if mediaType == "" {
		return InlinePayload{}, fmt.Errorf("data URI declares no media type")
	}

	return InlinePayload{MediaType: mediaType, Data: data}, nil
}

// ClassifyMediaType maps a declared media type to a content kind. Anything
// that is not image, video or audio is analyzed as a URL.
func ClassifyMediaType(mediaType string) ContentKind {
	mt := normalizeMediaType(mediaType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	case strings.HasPrefix(mt, "audio/"):
		return KindAudio
	default:
		return KindURL
	}
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ResolvedPayload is the resolver's output. Exactly one of Inline or
// TextOrURL is populated.
type ResolvedPayload struct {
	ContentKind ContentKind    `json:"contentKind"`
	Inline      *InlinePayload `json:"inlinePayload,omitempty"`
	TextOrURL   string         `json:"textOrUrl,omitempty"`

	// Strategy names the resolver tier that produced the payload
	Strategy string `json:"strategy,omitempty"`
	// Degraded marks a URL-only payload produced after every tier failed
	Degraded bool `json:"degraded,omitempty"`
}

// Validate checks the payload invariants. A kind that disagrees with the
// inline media type is a resolution bug, not a user error.
func (p ResolvedPayload) Validate() error {
	if !p.ContentKind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, p.ContentKind)
	}

	hasInline := p.Inline != nil
	hasText := p.TextOrURL != ""
	if hasInline == hasText {
		return fmt.Errorf("exactly one of inline payload or text/url must be set")
	}

	if hasInline {
		if p.Inline.MediaType == "" {
			return fmt.Errorf("inline payload has empty media type")
		}
		if got := ClassifyMediaType(p.Inline.MediaType); got != p.ContentKind {
			return fmt.Errorf("content kind %s disagrees with media type %s", p.ContentKind, p.Inline.MediaType)
		}
		return nil
	}

	if p.ContentKind.IsBinary() {
		return fmt.Errorf("content kind %s requires an inline payload", p.ContentKind)
	}
	return nil
}

// PayloadFromInline classifies an inline payload by its media type alone
func PayloadFromInline(inline InlinePayload, strategy string) ResolvedPayload {
	kind := ClassifyMediaType(inline.MediaType)
	return ResolvedPayload{ContentKind: kind, Inline: &inline, Strategy: strategy}
}

// URLPayload is the last-resort payload carrying only the original locator
func URLPayload(locator string, degraded bool) ResolvedPayload {
	return ResolvedPayload{ContentKind: KindURL, TextOrURL: locator, Strategy: "url", Degraded: degraded}
}

// TextPayload wraps literal text
func TextPayload(text string) ResolvedPayload {
	return ResolvedPayload{ContentKind: KindText, TextOrURL: text, Strategy: "text"}
}
