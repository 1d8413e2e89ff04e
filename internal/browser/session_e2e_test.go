//go:build e2e

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/unearth/internal/model"
)

const blobPage = `<!doctype html>
<html><body>
<div class="post"><img id="pic"></div>
<script>
  const b = new Blob([new Uint8Array([0xff, 0xd8, 0xff])], {type: "image/jpeg"});
  document.getElementById("pic").src = URL.createObjectURL(b);
</script>
</body></html>`

func TestSession_FetchBlobInPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(blobPage))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s, err := NewSession(ctx, Options{})
	if err != nil {
		t.Skipf("no browser available: %v", err)
	}
	defer s.Close()

	if err := s.Navigate(ctx, server.URL); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	post, err := s.PostHTML(ctx, ".post")
	if err != nil {
		t.Fatalf("post html: %v", err)
	}

	start := len(`<div class="post"><img id="pic" src="`)
	end := start
	for end < len(post) && post[end] != '"' {
		end++
	}
	locator := post[start:end]

	p, err := s.FetchInPage(ctx, locator)
	if err != nil {
		t.Fatalf("fetch %s: %v", locator, err)
	}
	if model.ClassifyMediaType(p.MediaType) != model.KindImage {
		t.Errorf("media type = %s, want image/*", p.MediaType)
	}
}
