package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type testResult struct {
	n   int
	err error
}

func (r *testResult) GetError() error {
	return r.err
}

// funcJob adapts a function to Job
type funcJob func(ctx context.Context) Result

func (f funcJob) Execute(ctx context.Context) Result {
	return f(ctx)
}

func numbered(n int, sleep time.Duration, err error) Job {
	return funcJob(func(ctx context.Context) Result {
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return &testResult{n: n, err: ctx.Err()}
		}
		return &testResult{n: n, err: err}
	})
}

func waitWithin(t *testing.T, p *Pool, d time.Duration) []Result {
	t.Helper()
	done := make(chan []Result, 1)
	go func() { done <- p.Wait() }()
	select {
	case results := <-done:
		return results
	case <-time.After(d):
		t.Fatalf("Wait did not return within %v", d)
		return nil
	}
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{5, 5},
		{0, 1},
		{-1, 1},
	}
	for _, tt := range tests {
		if got := NewPool(tt.in).workers; got != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.in, tt.want, got)
		}
	}
}

func TestPool_PreservesSubmissionOrder(t *testing.T) {
	pool := NewPool(4)
	pool.Start(context.Background())

	// Earlier jobs sleep longer so they finish last
	for i := 0; i < 8; i++ {
		pool.Submit(numbered(i, time.Duration(8-i)*3*time.Millisecond, nil))
	}

	results := waitWithin(t, pool, 5*time.Second)
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
	for i, r := range results {
		if got := r.(*testResult).n; got != i {
			t.Errorf("slot %d holds result %d", i, got)
		}
	}
}

func TestPool_ManyMoreJobsThanBuffers(t *testing.T) {
	pool := NewPool(1)
	pool.Start(context.Background())

	const jobs = 200
	for i := 0; i < jobs; i++ {
		pool.Submit(numbered(i, 0, nil))
	}

	results := waitWithin(t, pool, 5*time.Second)
	if len(results) != jobs {
		t.Fatalf("expected %d results, got %d", jobs, len(results))
	}
	if last := results[jobs-1].(*testResult).n; last != jobs-1 {
		t.Errorf("expected last slot %d, got %d", jobs-1, last)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(workers)
	pool.Start(context.Background())

	var current, peak atomic.Int32
	for i := 0; i < 40; i++ {
		n := i
		pool.Submit(funcJob(func(ctx context.Context) Result {
			c := current.Add(1)
			for {
				p := peak.Load()
				if c <= p || peak.CompareAndSwap(p, c) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			return &testResult{n: n}
		}))
	}

	results := waitWithin(t, pool, 5*time.Second)
	if len(results) != 40 {
		t.Errorf("expected 40 results, got %d", len(results))
	}
	if p := peak.Load(); p > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", p, workers)
	}
}

func TestPool_ErrorsStayInTheirSlot(t *testing.T) {
	pool := NewPool(2)
	pool.Start(context.Background())

	pool.Submit(numbered(0, 0, nil))
	pool.Submit(numbered(1, 0, errors.New("analysis failed")))
	pool.Submit(numbered(2, 0, nil))

	results := waitWithin(t, pool, 5*time.Second)
	for i, r := range results {
		failed := r.GetError() != nil
		if failed != (i == 1) {
			t.Errorf("slot %d: unexpected error state %v", i, r.GetError())
		}
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(2)
	pool.Start(context.Background())
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(numbered(0, 0, nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	pool := NewPool(1)
	pool.Start(context.Background())

	started := make(chan struct{})
	var cancelled atomic.Bool
	pool.Submit(funcJob(func(ctx context.Context) Result {
		close(started)
		select {
		case <-ctx.Done():
			cancelled.Store(true)
		case <-time.After(5 * time.Second):
		}
		return &testResult{err: ctx.Err()}
	}))
	<-started

	stopped := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}
	if !cancelled.Load() {
		t.Error("expected the running job to see cancellation")
	}
}
