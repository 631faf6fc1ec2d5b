package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestThrottle_NeverExceedsMaxConcurrent(t *testing.T) {
	th := NewThrottle(2, 0)

	var active, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = th.Do(context.Background(), func() error {
				n := atomic.AddInt64(&active, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt64(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > 2 {
		t.Fatalf("observed %d concurrent tasks, limit is 2", got)
	}
}

func TestThrottle_ErrorPropagatesOnlyToOwnCaller(t *testing.T) {
	th := NewThrottle(1, 0)

	boom := errors.New("provider 500")
	if err := th.Do(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected task error, got %v", err)
	}

	// The queue must keep draining after a failure.
	if err := th.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("queue stalled after failure: %v", err)
	}
}

func TestThrottle_DelaySeparatesDispatches(t *testing.T) {
	th := NewThrottle(1, 30*time.Millisecond)

	var starts []time.Time
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = th.Do(context.Background(), func() error {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < 20*time.Millisecond {
			t.Fatalf("dispatch %d started %v after previous, want >= ~30ms", i, gap)
		}
	}
}

func TestThrottle_ContextCancelWhileQueued(t *testing.T) {
	th := NewThrottle(1, 0)

	release := make(chan struct{})
	go func() {
		_ = th.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond) // let the blocker occupy the slot

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- th.Do(ctx, func() error { return nil })
	}()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Do did not return after cancellation")
	}
	close(release)
}

func TestThrottle_DepthObserver(t *testing.T) {
	th := NewThrottle(1, 0)

	var mu sync.Mutex
	var sawActive bool
	th.OnDepth = func(queued, active int) {
		mu.Lock()
		if active > 0 {
			sawActive = true
		}
		mu.Unlock()
	}

	_ = th.Do(context.Background(), func() error { return nil })

	mu.Lock()
	defer mu.Unlock()
	if !sawActive {
		t.Fatalf("expected depth observer to see an active task")
	}
}
