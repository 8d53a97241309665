// Package worker runs translation jobs off the polling goroutine.
//
// At most Size jobs run at once. While every worker is busy, one further job
// waits in a pending slot; a newer submission replaces it, so a burst of
// clipboard changes collapses to the most recent one.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Job is one unit of work. It receives the pool's context.
type Job func(ctx context.Context)

// Pool is a bounded job runner with a keep-latest pending slot.
type Pool struct {
	ctx  context.Context
	sem  *semaphore.Weighted
	size int64

	mu      sync.Mutex
	pending Job
	closed  bool

	wg sync.WaitGroup
}

// New creates a pool whose jobs run with ctx. Size defaults to 1 when size<=0.
func New(ctx context.Context, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		ctx:  ctx,
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Submit starts j if a worker is free, otherwise parks it in the pending
// slot. It never blocks. replaced reports whether an older pending job was
// discarded; accepted is false once the pool is closed.
func (p *Pool) Submit(j Job) (accepted, replaced bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, false
	}
	if p.sem.TryAcquire(1) {
		p.wg.Add(1)
		go p.run(j)
		return true, false
	}
	replaced = p.pending != nil
	p.pending = j
	return true, replaced
}

// run executes j and then drains the pending slot on the same permit.
func (p *Pool) run(j Job) {
	defer p.wg.Done()
	for j != nil {
		j(p.ctx)

		p.mu.Lock()
		j, p.pending = p.pending, nil
		if j == nil {
			p.sem.Release(1)
		}
		p.mu.Unlock()
	}
}

// Pending reports whether a job is waiting for a worker.
func (p *Pool) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Close rejects further submissions and waits for running and pending work.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
