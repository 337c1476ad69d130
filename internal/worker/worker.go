package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cesargomez89/cuesplit/internal/logger"
)

var ErrPoolClosed = errors.New("worker pool is stopped")

// Handler processes one job to completion.
type Handler func(ctx context.Context, jobID int64)

// Pool runs queued jobs on a fixed number of long-lived workers. Jobs start
// in submission order. Stop is only observed between jobs.
type Pool struct {
	handler Handler
	Logger  *logger.Logger
	queue   []int64
	mu      sync.Mutex
	cond    *sync.Cond
	wg      sync.WaitGroup
	size    int
	closed  bool
	started bool
}

func NewPool(size int, handler Handler, log *logger.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Default()
	}
	p := &Pool{
		handler: handler,
		Logger:  log.WithComponent("worker"),
		size:    size,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.Logger.Info("Starting workers", "count", p.size)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.loop(i + 1)
	}
}

// Submit appends a job to the queue.
func (p *Pool) Submit(jobID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, jobID)
	p.cond.Signal()
	return nil
}

// Stop wakes idle workers and waits for running jobs to finish. Jobs still
// queued are left untouched.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pending := len(p.queue)
	p.cond.Broadcast()
	p.mu.Unlock()

	p.Logger.Info("Stopping workers", "pending_jobs", pending)
	p.wg.Wait()
}

// Pending returns the number of jobs waiting for a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) loop(id int) {
	defer p.wg.Done()
	for {
		jobID, ok := p.next()
		if !ok {
			return
		}
		p.runJob(id, jobID)
	}
}

// next blocks until a job is available or the pool is stopped.
func (p *Pool) next() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, false
	}
	jobID := p.queue[0]
	p.queue = p.queue[1:]
	return jobID, true
}

func (p *Pool) runJob(worker int, jobID int64) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error("Panic in job", "worker", worker, "job_id", jobID, "panic", fmt.Sprint(r))
		}
	}()

	// Jobs are never cancelled once started.
	p.handler(context.Background(), jobID)
}

// RunBounded calls fn for every index in [0, n) with at most limit calls in
// flight, and returns once all of them have finished.
func RunBounded(limit, n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	if limit > n {
		limit = n
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
