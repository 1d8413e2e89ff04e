package worker

import (
	"context"
	"sync"
)

// Job is one unit of work executed by a pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of goroutines. Wait returns results in
// submission order regardless of completion order.
type Pool struct {
	workers   int
	queue     chan indexedJob
	results   chan indexedResult
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	submitted int
	closeOnce sync.Once

	// collected is owned by the collector goroutine until done is closed
	collected map[int]Result
	done      chan struct{}
}

// NewPool creates a pool; workers <= 0 means one worker
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:   workers,
		queue:     make(chan indexedJob, workers*2),
		results:   make(chan indexedResult, workers*2),
		collected: make(map[int]Result),
		done:      make(chan struct{}),
	}
}

// Start launches the workers and the result collector; cancelling ctx
// stops them
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	go p.collect()
}

// collect drains results while jobs are still being submitted, so a full
// results buffer never stalls the workers
func (p *Pool) collect() {
	defer close(p.done)
	for ir := range p.results {
		p.collected[ir.index] = ir.result
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.queue:
			if !ok {
				return
			}
			r := ij.job.Execute(p.ctx)
			select {
			case p.results <- indexedResult{index: ij.index, result: r}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job. It is a no-op once the pool is shut down.
// Submit must not be called concurrently with itself or Wait.
func (p *Pool) Submit(job Job) {
	ij := indexedJob{index: p.submitted, job: job}
	select {
	case <-p.ctx.Done():
		return
	case p.queue <- ij:
		p.submitted++
	}
}

// Wait closes the queue and returns results in submission order. Jobs
// abandoned by shutdown leave nil slots.
func (p *Pool) Wait() []Result {
	close(p.queue)
	p.wg.Wait()
	p.closeResults()
	<-p.done

	out := make([]Result, p.submitted)
	for i, r := range p.collected {
		out[i] = r
	}
	return out
}

// Shutdown cancels in-flight work and stops the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() { close(p.results) })
}
