package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_DefaultBurst(t *testing.T) {
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5, got %d", l.defaultBurst)
	}
}

func TestLimiter_SharesBudgetAcrossSubdomains(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("https://pbs.twimg.com/media/a.jpg") {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("https://video.twimg.com/b.mp4") {
		t.Error("sibling subdomain should share the exhausted budget")
	}
	if !limiter.Allow("https://scontent.cdninstagram.com/c.jpg") {
		t.Error("unrelated domain should have its own budget")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("https://example.com") {
			t.Fatalf("request %d blocked with limiting disabled", i)
		}
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetDomainRate("slow.com", 0.1, 1)

	if !limiter.Allow("http://www.slow.com/a") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.com/b") {
		t.Error("second request should be limited")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "http://example.com", 30*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("expected crawl delay to be honored")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.WaitWithDelay(ctx, "http://other.com", time.Second); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.bbc.co.uk/news":  "bbc.co.uk",
		"https://pbs.twimg.com/x.jpg": "twimg.com",
		"http://localhost:9002/api":   "localhost",
	}
	for in, want := range tests {
		got, err := registrableDomain(in)
		if err != nil {
			t.Fatalf("registrableDomain(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("registrableDomain(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := registrableDomain("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
