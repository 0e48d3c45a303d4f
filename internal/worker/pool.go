// Package worker runs destructive effect commits off the interaction loop.
package worker

import (
	"context"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/focusshot/internal/annotate"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// Job computes the committed pixels of one preview against Source.
// Owner is an opaque tag the submitter uses to discard stale results.
type Job struct {
	Ctx     context.Context
	Owner   any
	Source  *image.RGBA
	Preview annotate.Preview
	Params  annotate.EffectParams
}

// Result is delivered on Results once a Job finishes.
type Result struct {
	Owner     any
	Committed annotate.Committed
	Err       error
	Elapsed   time.Duration
}

// Pool is a fixed-size effect worker pool with strict back-pressure: at most
// one job is accepted until its result has been handed to the results
// channel.
type Pool struct {
	jobs    chan Job
	results chan Result
	quit    chan struct{}
	busy    atomic.Bool
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a worker pool. Size defaults to NumCPU when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		jobs:    make(chan Job, 1),
		results: make(chan Result, 1),
		quit:    make(chan struct{}),
	}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	log := logger.WithComponent("worker")
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				start := time.Now()
				res := Result{Owner: j.Owner}
				if err := j.Ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Committed, res.Err = annotate.ComputeEffect(j.Source, j.Preview, j.Params)
				}
				res.Elapsed = time.Since(start)
				log.Debug().
					Str("effect", j.Preview.EffectKind.String()).
					Str("region", j.Preview.Rect.String()).
					Dur("elapsed", res.Elapsed).
					Err(res.Err).
					Msg("Effect computed")

				select {
				case p.results <- res:
				case <-p.quit:
				}
				p.busy.Store(false)
			}
		}()
	}
}

// Submit enqueues j if no other job is outstanding. Returns false if dropped.
func (p *Pool) Submit(j Job) bool {
	if j.Ctx == nil {
		j.Ctx = context.Background()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.busy.CompareAndSwap(false, true) {
		return false
	}
	// busy was clear, so the single slot is empty
	p.jobs <- j
	return true
}

// Busy reports whether a job is queued or running.
func (p *Pool) Busy() bool {
	return p.busy.Load()
}

// Results delivers finished jobs in completion order.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Done is closed once Close has been called. A result still owed at that
// point may never arrive.
func (p *Pool) Done() <-chan struct{} {
	return p.quit
}

// Close stops the pool. Undelivered results are dropped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
