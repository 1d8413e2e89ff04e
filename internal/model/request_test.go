package model

import (
	"errors"
	"testing"
)

func TestUnmarshalRequest(t *testing.T) {
	tests := []struct {
		body     string
		expected ContentKind
		wantErr  bool
	}{
		{`{"type":"text","content":"The moon is made of cheese"}`, KindText, false},
		{`{"type":"url","content":"https://example.com/story"}`, KindURL, false},
		{`{"type":"image","dataUri":"data:image/png;base64,AAAA"}`, KindImage, false},
		{`{"type":"video","dataUri":"data:video/mp4;base64,AAAA"}`, KindVideo, false},
		{`{"type":"audio","dataUri":"data:audio/mpeg;base64,AAAA"}`, KindAudio, false},
		{`{"type":"text","content":"   "}`, "", true},
		{`{"type":"image","content":"https://example.com/a.png"}`, "", true},
		{`{"type":"image","dataUri":"data:video/mp4;base64,AAAA"}`, "", true},
		{`{"type":"video","dataUri":"data:text/html;base64,AAAA"}`, "", true},
		{`{"type":"audio","dataUri":"data:image/png;base64,AAAA"}`, "", true},
		{`{"type":"hologram","content":"x"}`, "", true},
		{`not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			req, err := UnmarshalRequest([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Kind() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, req.Kind())
			}
		})
	}
}

func TestWireRequest_KindMustMatchMediaType(t *testing.T) {
	_, err := WireRequest{Type: KindImage, DataURI: "data:video/mp4;base64,AAAA"}.Request()
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}

	req, err := WireRequest{Type: KindVideo, DataURI: "data:video/mp4;codecs=avc1;base64,AAAA"}.Request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind() != KindVideo {
		t.Errorf("expected video, got %s", req.Kind())
	}
}

func TestMarshalRequest_WireShape(t *testing.T) {
	img := ImageRequest{Payload: InlinePayload{MediaType: "image/png", Data: "AAAA"}}
	b, err := MarshalRequest(img)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"image","dataUri":"data:image/png;base64,AAAA"}` {
		t.Errorf("unexpected wire shape: %s", b)
	}

	b, err = MarshalRequest(URLRequest{Content: "https://example.com"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"url","content":"https://example.com"}` {
		t.Errorf("unexpected wire shape: %s", b)
	}
}

func TestRequestFromPayload(t *testing.T) {
	frame := NewInlinePayload("image/jpeg", []byte{0xff, 0xd8})
	req, err := RequestFromPayload(ResolvedPayload{ContentKind: KindImage, Inline: &frame})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.(ImageRequest); !ok {
		t.Errorf("expected ImageRequest, got %T", req)
	}

	req, err = RequestFromPayload(URLPayload("https://example.com/v.mp4", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, ok := req.(URLRequest); !ok || u.Content != "https://example.com/v.mp4" {
		t.Errorf("expected URLRequest for locator, got %#v", req)
	}

	_, err = RequestFromPayload(ResolvedPayload{ContentKind: KindVideo, Inline: &frame})
	if err == nil {
		t.Error("expected error for kind/media type mismatch")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash(URLRequest{Content: "https://Example.COM/Story?id=1"})
	b := ContentHash(URLRequest{Content: " https://example.com/Story?id=1 "})
	if a != b {
		t.Error("expected scheme/host normalization to yield the same hash")
	}

	c := ContentHash(URLRequest{Content: "https://example.com/story?id=1"})
	if a == c {
		t.Error("path case must remain significant")
	}

	// Same string, different declared type
	if ContentHash(TextRequest{Content: "https://example.com"}) == ContentHash(URLRequest{Content: "https://example.com"}) {
		t.Error("declared type must be part of the hash")
	}

	if ContentHash(TextRequest{Content: "hello\n"}) != ContentHash(TextRequest{Content: "hello"}) {
		t.Error("text should be trimmed before hashing")
	}

	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}
}

func TestWireRequest_UnsupportedKind(t *testing.T) {
	_, err := WireRequest{Type: "hologram", Content: "x"}.Request()
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}
