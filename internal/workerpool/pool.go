package workerpool

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("worker pool is closed")

// Pool runs submitted jobs on a fixed number of goroutines. A job is handed
// over only when a worker is idle, so at most Size jobs run at once.
type Pool struct {
	size   int
	jobs   chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func New(size int) *Pool {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		size: size,
		jobs: make(chan func()),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) Size() int {
	return p.size
}

// Submit blocks until a worker picks up job or ctx is done. Jobs must
// report their own results; a panic is swallowed to keep the worker alive.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		run(job)
	}
}

func run(job func()) {
	defer func() {
		_ = recover()
	}()
	job()
}
