package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
)

func fastLimiter(workers int) *Limiter {
	l := NewLimiter(0, workers)
	l.baseDelay = time.Millisecond
	l.maxDelay = 4 * time.Millisecond
	return l
}

func TestRateLimitedCall_Success(t *testing.T) {
	result, err := RateLimitedCall(context.Background(), nil, 100, logger.NewNoOpLogger(), func(ctx context.Context) (string, error) {
		return "success", nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got: %s", result)
	}
}

func TestRateLimitedCall_NonRateLimitError(t *testing.T) {
	testErr := errors.New("invalid_request_error")
	calls := 0
	_, err := RateLimitedCall(context.Background(), fastLimiter(1), 100, logger.NewNoOpLogger(), func(ctx context.Context) (string, error) {
		calls++
		return "", testErr
	})
	if err != testErr {
		t.Errorf("Expected original error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRateLimitedCall_RateLimitRetry(t *testing.T) {
	calls := 0
	result, err := RateLimitedCall(context.Background(), fastLimiter(1), 100, logger.NewNoOpLogger(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 Too Many Requests")
		}
		return "success after retry", nil
	})
	if err != nil {
		t.Fatalf("Expected no error after retry, got: %v", err)
	}
	if result != "success after retry" {
		t.Errorf("Expected 'success after retry', got: %s", result)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got: %d", calls)
	}
}

func TestRateLimitedCall_RetriesExhausted(t *testing.T) {
	l := fastLimiter(1)
	calls := 0
	_, err := RateLimitedCall(context.Background(), l, 100, logger.NewNoOpLogger(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("rate limit exceeded")
	})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if calls != l.maxRetries+1 {
		t.Errorf("Expected %d calls, got %d", l.maxRetries+1, calls)
	}
}

func TestRateLimitedCall_OversizedEstimate(t *testing.T) {
	l := NewLimiter(60, 1) // burst of 2 tokens
	_, err := RateLimitedCall(context.Background(), l, 10_000, logger.NewNoOpLogger(), func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("estimates above the burst must be clamped, got: %v", err)
	}
}

func TestRateLimitedCall_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RateLimitedCall(ctx, nil, 100, logger.NewNoOpLogger(), func(ctx context.Context) (string, error) {
		t.Error("Function should not be called with cancelled context")
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"429 error", errors.New("429 Too Many Requests"), true},
		{"rate limit text", errors.New("Rate limit exceeded"), true},
		{"rate_limit_exceeded", errors.New("rate_limit_exceeded"), true},
		{"other error", errors.New("some other error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimitError(tt.err); got != tt.expected {
				t.Errorf("isRateLimitError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestWorkerPool(t *testing.T) {
	ctx := context.Background()
	wp := NewWorkerPool(2)

	if err := wp.Acquire(ctx); err != nil {
		t.Fatalf("Failed to acquire first worker: %v", err)
	}
	if err := wp.Acquire(ctx); err != nil {
		t.Fatalf("Failed to acquire second worker: %v", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := wp.Acquire(ctx2); err == nil {
		t.Error("Expected timeout error when pool is full, got nil")
	}

	wp.Release()
	if err := wp.Acquire(ctx); err != nil {
		t.Fatalf("Failed to acquire worker after release: %v", err)
	}
}

func TestParallelProcess(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	outcomes := ParallelProcess(context.Background(), fastLimiter(2), items, logger.NewNoOpLogger(), func(ctx context.Context, idx int, item int) (int, error) {
		return item * 2, nil
	})

	if len(outcomes) != len(items) {
		t.Fatalf("Expected %d outcomes, got %d", len(items), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Err != nil {
			t.Errorf("Outcome[%d] error = %v", i, o.Err)
		}
		if o.Value != items[i]*2 {
			t.Errorf("Outcome[%d] = %d, want %d", i, o.Value, items[i]*2)
		}
	}
}

func TestParallelProcess_ErrorIsolated(t *testing.T) {
	testErr := errors.New("processing error")
	outcomes := ParallelProcess(context.Background(), fastLimiter(3), []int{1, 2, 3}, logger.NewNoOpLogger(), func(ctx context.Context, idx int, item int) (int, error) {
		if item == 2 {
			return 0, testErr
		}
		return item, nil
	})

	if !errors.Is(outcomes[1].Err, testErr) {
		t.Errorf("Outcome[1] error = %v, want %v", outcomes[1].Err, testErr)
	}
	if outcomes[0].Err != nil || outcomes[0].Value != 1 || outcomes[2].Err != nil || outcomes[2].Value != 3 {
		t.Errorf("other items were affected: %+v", outcomes)
	}
}

func TestParallelProcess_PanicIsolated(t *testing.T) {
	outcomes := ParallelProcess(context.Background(), fastLimiter(2), []int{1, 2, 3}, logger.NewNoOpLogger(), func(ctx context.Context, idx int, item int) (int, error) {
		if item == 2 {
			panic("bad item")
		}
		return item, nil
	})

	if !errors.Is(outcomes[1].Err, ErrPanicked) {
		t.Errorf("Outcome[1] error = %v, want %v", outcomes[1].Err, ErrPanicked)
	}
	if outcomes[0].Err != nil || outcomes[0].Value != 1 || outcomes[2].Err != nil || outcomes[2].Value != 3 {
		t.Errorf("other items were affected: %+v", outcomes)
	}
}

func TestParallelProcess_RespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 12)
	ParallelProcess(context.Background(), fastLimiter(3), items, logger.NewNoOpLogger(), func(ctx context.Context, idx int, item int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestParallelProcess_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := ParallelProcess(ctx, nil, []int{1, 2, 3}, logger.NewNoOpLogger(), func(ctx context.Context, idx int, item int) (int, error) {
		return item, nil
	})
	for i, o := range outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("Outcome[%d] error = %v, want context.Canceled", i, o.Err)
		}
	}
}

func TestParallelProcess_Empty(t *testing.T) {
	outcomes := ParallelProcess(context.Background(), nil, []string{}, logger.NewNoOpLogger(), func(ctx context.Context, idx int, item string) (string, error) {
		return item, nil
	})
	if len(outcomes) != 0 {
		t.Errorf("Expected no outcomes, got %d", len(outcomes))
	}
}
