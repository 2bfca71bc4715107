package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
)

const (
	// DefaultTokensPerMinute leaves headroom under the 2M tokens/min
	// gpt-5-mini limit.
	DefaultTokensPerMinute = 1_800_000
	DefaultMaxWorkers      = 5

	maxRetries     = 5
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// ErrPanicked is the outcome error of an item whose function panicked.
var ErrPanicked = errors.New("worker panicked")

// Limiter paces model calls by estimated token use and bounds how many
// run at once. One Limiter is shared by every request of a process.
type Limiter struct {
	tokens     *rate.Limiter
	maxWorkers int

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewLimiter allows tokensPerMinute with a two second burst and at most
// maxWorkers concurrent calls. Non-positive values take the defaults.
func NewLimiter(tokensPerMinute, maxWorkers int) *Limiter {
	if tokensPerMinute <= 0 {
		tokensPerMinute = DefaultTokensPerMinute
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	perSecond := float64(tokensPerMinute) / 60
	return &Limiter{
		tokens:     rate.NewLimiter(rate.Limit(perSecond), max(int(2*perSecond), 1)),
		maxWorkers: maxWorkers,
		maxRetries: maxRetries,
		baseDelay:  baseRetryDelay,
		maxDelay:   maxRetryDelay,
	}
}

var defaultLimiter = NewLimiter(DefaultTokensPerMinute, DefaultMaxWorkers)

func (l *Limiter) orDefault() *Limiter {
	if l == nil {
		return defaultLimiter
	}
	return l
}

func (l *Limiter) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(l.baseDelay) * math.Pow(2, float64(attempt-1)))
	return min(delay, l.maxDelay)
}

// RateLimitedCall waits for token budget, then runs fn, retrying with
// exponential backoff while it fails with a rate limit error. A nil
// limiter uses the process-wide default.
func RateLimitedCall[T any](ctx context.Context, l *Limiter, estimatedTokens int, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	l = l.orDefault()

	if err := l.tokens.WaitN(ctx, min(max(estimatedTokens, 1), l.tokens.Burst())); err != nil {
		return zero, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			delay := l.backoff(attempt)
			log.Info("Retry attempt %d/%d after %v", attempt, l.maxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}
		lastErr = err
		if !isRateLimitError(err) {
			return zero, err
		}
		log.Warn("Rate limited on attempt %d/%d: %v", attempt+1, l.maxRetries+1, err)
	}
	return zero, fmt.Errorf("max retries (%d) exceeded, last error: %w", l.maxRetries, lastErr)
}

var rateLimitMarkers = []string{"429", "rate limit", "rate_limit_exceeded", "too many requests"}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WorkerPool is a counting semaphore.
type WorkerPool struct {
	semaphore chan struct{}
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &WorkerPool{semaphore: make(chan struct{}, maxWorkers)}
}

// Acquire blocks until a slot is free or ctx is done.
func (wp *WorkerPool) Acquire(ctx context.Context) error {
	select {
	case wp.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) Release() {
	<-wp.semaphore
}

// Outcome is the result of processing one item.
type Outcome[R any] struct {
	Value R
	Err   error
}

// ParallelProcess runs fn over items with at most the limiter's worker
// count in flight. Every item gets an Outcome in input order; one item
// failing or panicking never stops the others. Items not started before ctx is done
// carry ctx.Err().
func ParallelProcess[T any, R any](
	ctx context.Context,
	l *Limiter,
	items []T,
	log logger.Logger,
	fn func(context.Context, int, T) (R, error),
) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return outcomes
	}

	wp := NewWorkerPool(l.orDefault().maxWorkers)
	var wg sync.WaitGroup
	for i, item := range items {
		if err := wp.Acquire(ctx); err != nil {
			for j := i; j < len(items); j++ {
				outcomes[j].Err = err
			}
			log.Warn("Stopped scheduling at item %d/%d: %v", i+1, len(items), err)
			break
		}
		wg.Add(1)
		go func(idx int, itm T) {
			defer wg.Done()
			defer wp.Release()
			defer func() {
				if r := recover(); r != nil {
					log.Error("Item %d/%d panicked: %v", idx+1, len(items), r)
					outcomes[idx] = Outcome[R]{Err: fmt.Errorf("%w: %v", ErrPanicked, r)}
				}
			}()
			if err := ctx.Err(); err != nil {
				outcomes[idx].Err = err
				return
			}
			val, err := fn(ctx, idx, itm)
			outcomes[idx] = Outcome[R]{Value: val, Err: err}
		}(i, item)
	}
	wg.Wait()
	return outcomes
}
