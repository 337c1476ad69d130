package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cesargomez89/cuesplit/internal/logger"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPoolStartsJobsInFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var started []int64
	p := NewPool(1, func(ctx context.Context, id int64) {
		mu.Lock()
		started = append(started, id)
		mu.Unlock()
	}, logger.Discard())

	for i := int64(1); i <= 5; i++ {
		if err := p.Submit(i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	p.Start()
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(started) == 5
	})
	p.Stop()

	for i, id := range started {
		if id != int64(i+1) {
			t.Fatalf("Expected FIFO start order, got %v", started)
		}
	}
}

func TestPoolRunsJobsConcurrently(t *testing.T) {
	var running, peak int32
	release := make(chan struct{})
	p := NewPool(3, func(ctx context.Context, id int64) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
	}, logger.Discard())
	p.Start()

	for i := int64(1); i <= 3; i++ {
		p.Submit(i)
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&running) == 3 })
	close(release)
	p.Stop()

	if peak != 3 {
		t.Errorf("Expected 3 concurrent jobs, got %d", peak)
	}
}

func TestPoolStopWaitsForRunningAndKeepsQueue(t *testing.T) {
	started := make(chan int64, 10)
	release := make(chan struct{})
	var finished int32
	p := NewPool(1, func(ctx context.Context, id int64) {
		started <- id
		<-release
		atomic.AddInt32(&finished, 1)
	}, logger.Discard())
	p.Start()

	p.Submit(1)
	p.Submit(2)
	if id := <-started; id != 1 {
		t.Fatalf("Expected job 1 first, got %d", id)
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped

	if atomic.LoadInt32(&finished) != 1 {
		t.Errorf("Expected exactly the running job to finish, got %d", finished)
	}
	if p.Pending() != 1 {
		t.Errorf("Expected job 2 to stay queued, got %d pending", p.Pending())
	}
	if err := p.Submit(3); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed after Stop, got %v", err)
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	var done int32
	p := NewPool(1, func(ctx context.Context, id int64) {
		if id == 1 {
			panic("boom")
		}
		atomic.AddInt32(&done, 1)
	}, logger.Discard())
	p.Start()
	p.Submit(1)
	p.Submit(2)

	waitFor(t, func() bool { return atomic.LoadInt32(&done) == 1 })
	p.Stop()
}

func TestPoolStopIdle(t *testing.T) {
	p := NewPool(4, func(ctx context.Context, id int64) {}, logger.Discard())
	p.Start()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not wake idle workers")
	}
	p.Stop()
}

func TestRunBounded(t *testing.T) {
	var running, peak int32
	results := make([]int, 20)

	RunBounded(4, len(results), func(i int) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		results[i] = i * i
		atomic.AddInt32(&running, -1)
	})

	if peak > 4 {
		t.Errorf("Expected at most 4 in flight, got %d", peak)
	}
	for i, r := range results {
		if r != i*i {
			t.Errorf("Expected result %d at index %d, got %d", i*i, i, r)
		}
	}
}

func TestRunBoundedEmptyAndDefaultLimit(t *testing.T) {
	calls := 0
	RunBounded(2, 0, func(int) { calls++ })
	if calls != 0 {
		t.Errorf("Expected no calls for n=0, got %d", calls)
	}

	var n int32
	RunBounded(0, 3, func(int) { atomic.AddInt32(&n, 1) })
	if n != 3 {
		t.Errorf("Expected 3 calls, got %d", n)
	}
}
