package utils

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Retry calls fn up to attempts times, waiting step, 2*step, ... between tries.
func Retry(ctx context.Context, attempts int, step time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		if err := WaitFor(ctx, time.Duration(i+1)*step); err != nil {
			return fmt.Errorf("retry interrupted: %w", err)
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
