package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/validate"
)

func TestCitationReader_SharesPageDownload(t *testing.T) {
	cited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dead" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer cited.Close()
	citedBase := strings.Replace(cited.URL, "127.0.0.1", "localhost", 1)

	var pageHits atomic.Int32
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, `<html><head><title>Story</title></head><body>
<p>Officials confirmed it, see <a href="%[1]s/report">the report</a>
and <a href="%[1]s/dead">the archive</a>. <a href="/about">About us</a>.</p>
</body></html>`, citedBase)
	}))
	defer page.Close()

	pages := testReader(false)
	checker := validate.NewLinkChecker(model.HTTPConfig{}, 5*time.Second, 2, nil)
	citations := NewCitationReader(pages, checker, 10)

	ctx := context.Background()
	text, err := pages.ReadPage(ctx, page.URL+"/story")
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !strings.HasPrefix(text, "Story") {
		t.Errorf("unexpected page text %q", text)
	}

	sources, err := citations.CheckCitations(ctx, page.URL+"/story")
	if err != nil {
		t.Fatalf("CheckCitations: %v", err)
	}
	if pageHits.Load() != 1 {
		t.Errorf("page downloaded %d times, want 1", pageHits.Load())
	}

	if len(sources) != 2 {
		t.Fatalf("expected 2 cited sources, got %+v", sources)
	}
	if !sources[0].Reachable || sources[0].Host != "localhost" {
		t.Errorf("first source: %+v", sources[0])
	}
	if !sources[1].Dead {
		t.Errorf("second source should be dead: %+v", sources[1])
	}
}

func TestCitationReader_LimitAndNonHTML(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	base := strings.Replace(ok.URL, "127.0.0.1", "localhost", 1)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprintf(w, "%s/a", base)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		for i := 0; i < 5; i++ {
			_, _ = fmt.Fprintf(w, `<a href="%s/%d">link</a>`, base, i)
		}
	}))
	defer page.Close()

	checker := validate.NewLinkChecker(model.HTTPConfig{}, 5*time.Second, 2, nil)
	citations := NewCitationReader(testReader(false), checker, 3)

	sources, err := citations.CheckCitations(context.Background(), page.URL+"/links")
	if err != nil {
		t.Fatalf("CheckCitations: %v", err)
	}
	if len(sources) != 3 {
		t.Errorf("expected 3 sources after the limit, got %d", len(sources))
	}

	sources, err = citations.CheckCitations(context.Background(), page.URL+"/plain")
	if err != nil || sources != nil {
		t.Errorf("plain text page: sources %v, err %v", sources, err)
	}
}
