package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFutureFirstCompletionWins(t *testing.T) {
	f := NewFuture[string]()
	if _, ok, _ := f.Peek(); ok {
		t.Fatal("expected pending future")
	}

	if !f.Resolve("ready") {
		t.Fatal("expected first Resolve to complete the future")
	}
	if f.Reject(errors.New("late failure")) {
		t.Fatal("expected Reject after completion to be ignored")
	}
	if f.Resolve("again") {
		t.Fatal("expected second Resolve to be ignored")
	}

	value, err := f.Wait(context.Background())
	if err != nil || value != "ready" {
		t.Fatalf("expected ready, got %q, %v", value, err)
	}
}

func TestFutureRejectKeepsError(t *testing.T) {
	f := NewFuture[int]()
	boom := errors.New("download failed")
	f.Reject(boom)
	f.Resolve(42)

	value, ok, err := f.Peek()
	if !ok || !errors.Is(err, boom) || value != 0 {
		t.Fatalf("expected rejected future, got %d, %v, %v", value, err, ok)
	}
}

func TestFutureConcurrentCompletersOnlyOneWins(t *testing.T) {
	f := NewFuture[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if f.Resolve(i) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	select {
	case <-f.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

func TestFutureWaitHonoursContext(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGo(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (string, error) {
		return "done", nil
	})
	value, err := f.Wait(context.Background())
	if err != nil || value != "done" {
		t.Fatalf("expected done, got %q, %v", value, err)
	}
}
