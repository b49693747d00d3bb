package git

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPool_LimitsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	gate := make(chan struct{})

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Run(context.Background(), func() error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-gate
				current.Add(-1)
				return nil
			})
		}()
	}

	close(gate)
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent operations, observed %d", peak.Load())
	}
}

func TestPool_PropagatesError(t *testing.T) {
	pool := NewPool(1)
	want := errors.New("clone failed")

	err := pool.Run(context.Background(), func() error { return want })
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the only slot so the next Run must wait on the context.
	release := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func() error {
			<-release
			return nil
		})
	}()

	err := pool.Run(ctx, func() error { return nil })
	close(release)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPool_NilRunsDirectly(t *testing.T) {
	var pool *Pool
	ran := false
	if err := pool.Run(context.Background(), func() error { ran = true; return nil }); err != nil {
		t.Fatalf("nil pool Run returned error: %v", err)
	}
	if !ran {
		t.Error("expected fn to run on nil pool")
	}
}
