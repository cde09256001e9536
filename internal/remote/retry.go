package remote

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/wordtrail/syncore/internal/learner"
)

// RetryConfig controls the exponential backoff of the retry decorator.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig matches the interactive latency budget: a couple of
// quick retries, then give up and let the background synchronizer's own
// backoff take over.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 250 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// retryService is a decorator that retries transient errors with
// exponential backoff and jitter. Resubmitting a batch is safe: the server
// deduplicates by action id.
type retryService struct {
	inner  Service
	config RetryConfig
}

// WithRetry wraps a Service with retry logic.
func WithRetry(s Service, cfg RetryConfig) Service {
	return &retryService{inner: s, config: cfg}
}

func (r *retryService) SubmitBatch(ctx context.Context, learnerID string, actions []learner.QueuedAction) ([]ActionResult, error) {
	var results []ActionResult
	err := r.attempt(ctx, func() error {
		var err error
		results, err = r.inner.SubmitBatch(ctx, learnerID, actions)
		return err
	})
	return results, err
}

func (r *retryService) GetSnapshot(ctx context.Context, learnerID string) (*learner.Snapshot, error) {
	var snap *learner.Snapshot
	err := r.attempt(ctx, func() error {
		var err error
		snap, err = r.inner.GetSnapshot(ctx, learnerID)
		return err
	})
	return snap, err
}

func (r *retryService) StartEntity(ctx context.Context, learnerID, entityID string) (*ActionResult, error) {
	var result *ActionResult
	err := r.attempt(ctx, func() error {
		var err error
		result, err = r.inner.StartEntity(ctx, learnerID, entityID)
		return err
	})
	return result, err
}

func (r *retryService) attempt(ctx context.Context, call func() error) error {
	var lastErr error

	for attempt := range r.config.MaxAttempts {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return err
		}

		// Last attempt — don't sleep, just return the error.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return lastErr
}

// backoff computes the wait duration for the given attempt with ±20% jitter.
func (r *retryService) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
