package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	var waits []time.Duration
	sleep = func(d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleep = time.Sleep })

	calls := 0
	err := Retry(context.Background(), 3, time.Second, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Fatalf("unexpected waits: %v", waits)
	}

	boom := errors.New("boom")
	waits = nil
	err = Retry(context.Background(), 2, time.Millisecond, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if len(waits) != 1 {
		t.Fatalf("expected a single wait, got %v", waits)
	}
}

func TestWaitForCancelled(t *testing.T) {
	block := make(chan struct{})
	sleep = func(time.Duration) { <-block }
	t.Cleanup(func() {
		close(block)
		sleep = time.Sleep
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
