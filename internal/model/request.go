package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// AnalysisRequest is one submission to the dispatch orchestrator. The set
// of implementations is closed: VideoRequest, AudioRequest, ImageRequest,
// TextRequest and URLRequest.
type AnalysisRequest interface {
	Kind() ContentKind
	// Primary returns the content string the request is identified by
	Primary() string
	sealed()
}

// VideoRequest carries an inline video payload
type VideoRequest struct{ Payload InlinePayload }

// AudioRequest carries an inline audio payload
type AudioRequest struct{ Payload InlinePayload }

// ImageRequest carries an inline image payload
type ImageRequest struct{ Payload InlinePayload }

// TextRequest carries literal text
type TextRequest struct{ Content string }

// URLRequest carries a locator to analyze by reference
type URLRequest struct{ Content string }

func (VideoRequest) Kind() ContentKind { return KindVideo }
func (AudioRequest) Kind() ContentKind { return KindAudio }
func (ImageRequest) Kind() ContentKind { return KindImage }
func (TextRequest) Kind() ContentKind  { return KindText }
func (URLRequest) Kind() ContentKind   { return KindURL }

func (r VideoRequest) Primary() string { return r.Payload.DataURI() }
func (r AudioRequest) Primary() string { return r.Payload.DataURI() }
func (r ImageRequest) Primary() string { return r.Payload.DataURI() }
func (r TextRequest) Primary() string  { return r.Content }
func (r URLRequest) Primary() string   { return r.Content }

func (VideoRequest) sealed() {}
func (AudioRequest) sealed() {}
func (ImageRequest) sealed() {}
func (TextRequest) sealed()  {}
func (URLRequest) sealed()   {}

// WireRequest is the JSON shape of an AnalysisRequest:
// {type, dataUri} for binary kinds and {type, content} otherwise
type WireRequest struct {
	Type    ContentKind `json:"type"`
	DataURI string      `json:"dataUri,omitempty"`
	Content string      `json:"content,omitempty"`
}

// ToWire converts a request to its JSON shape
func ToWire(req AnalysisRequest) WireRequest {
	switch r := req.(type) {
	case VideoRequest:
		return WireRequest{Type: KindVideo, DataURI: r.Payload.DataURI()}
	case AudioRequest:
		return WireRequest{Type: KindAudio, DataURI: r.Payload.DataURI()}
	case ImageRequest:
		return WireRequest{Type: KindImage, DataURI: r.Payload.DataURI()}
	case TextRequest:
		return WireRequest{Type: KindText, Content: r.Content}
	case URLRequest:
		return WireRequest{Type: KindURL, Content: r.Content}
	default:
		panic(fmt.Sprintf("unknown analysis request %T", req))
	}
}

// Request validates the wire shape and returns the typed request
func (w WireRequest) Request() (AnalysisRequest, error) {
	switch w.Type {
	case KindVideo, KindAudio, KindImage:
		if w.DataURI == "" {
			return nil, fmt.Errorf("%s request requires dataUri", w.Type)
		}
		p, err := ParseDataURI(w.DataURI)
		if err != nil {
			return nil, fmt.Errorf("parse dataUri: %w", err)
		}
		if got := ClassifyMediaType(p.MediaType); got != w.Type {
			return nil, fmt.Errorf("%w: %s request carries %q", ErrKindMismatch, w.Type, p.MediaType)
		}
		switch w.Type {
		case KindVideo:
			return VideoRequest{Payload: p}, nil
		case KindAudio:
			return AudioRequest{Payload: p}, nil
		default:
			return ImageRequest{Payload: p}, nil
		}

	case KindText:
		if strings.TrimSpace(w.Content) == "" {
			return nil, fmt.Errorf("text request requires content")
		}
		return TextRequest{Content: w.Content}, nil

	case KindURL:
		if strings.TrimSpace(w.Content) == "" {
			return nil, fmt.Errorf("url request requires content")
		}
		return URLRequest{Content: w.Content}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, w.Type)
	}
}

// MarshalRequest encodes a request as JSON
func MarshalRequest(req AnalysisRequest) ([]byte, error) {
	return json.Marshal(ToWire(req))
}

// UnmarshalRequest decodes a request from JSON
func UnmarshalRequest(data []byte) (AnalysisRequest, error) {
	var w WireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode analysis request: %w", err)
	}
	return w.Request()
}

// RequestFromPayload turns a resolved payload into the matching request
func RequestFromPayload(p ResolvedPayload) (AnalysisRequest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.ContentKind {
	case KindVideo:
		return VideoRequest{Payload: *p.Inline}, nil
	case KindAudio:
		return AudioRequest{Payload: *p.Inline}, nil
	case KindImage:
		return ImageRequest{Payload: *p.Inline}, nil
	case KindText:
		return TextRequest{Content: p.TextOrURL}, nil
	case KindURL:
		if p.Inline != nil {
			// Inline payload of a non-media type is analyzed by reference
			return URLRequest{Content: p.Inline.DataURI()}, nil
		}
		return URLRequest{Content: p.TextOrURL}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, p.ContentKind)
}

// ContentHash is the deterministic identity of a request: sha256 over the
// declared type and the normalized primary content.
func ContentHash(req AnalysisRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Kind()))
	h.Write([]byte{0})
	h.Write([]byte(normalizePrimary(req)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizePrimary(req AnalysisRequest) string {
	switch r := req.(type) {
	case TextRequest:
		return strings.TrimSpace(r.Content)
	case URLRequest:
		return normalizeURL(r.Content)
	default:
		return req.Primary()
	}
}

// normalizeURL lowercases scheme and host; everything else is significant
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
