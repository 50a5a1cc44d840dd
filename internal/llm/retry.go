package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/riskbot/internal/metrics"
)

// RetryProvider is a decorator that repeats transient failures with
// exponential backoff and jitter.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps a Provider with retries. MaxAttempts below 1 means a
// single attempt.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidSeen := false
	for attempt := 0; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		reason := retryReason(err)
		if reason == "invalid_response" {
			// A malformed answer is worth one more sample, not more.
			if invalidSeen {
				reason = ""
			}
			invalidSeen = true
		}
		if reason == "" || attempt == r.config.MaxAttempts-1 {
			return nil, err
		}
		metrics.LLMRetries.WithLabelValues(PurposeFrom(ctx), reason).Inc()

		t := time.NewTimer(r.backoff(attempt, err))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// retryReason names the kind of a retryable error, or returns "" when the
// error is final: context errors, timeouts, truncated output and requests
// the provider rejected.
func retryReason(err error) string {
	var (
		timeout  *ErrTimeout
		maxTok   *ErrMaxTokensExceeded
		rejected *ErrRejected
		invalid  *ErrInvalidResponse
		limit    *ErrRateLimit
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &timeout), errors.As(err, &maxTok), errors.As(err, &rejected):
		return ""
	case errors.As(err, &invalid):
		return "invalid_response"
	case errors.As(err, &limit):
		return "rate_limit"
	default:
		return "unavailable"
	}
}

// backoff is the wait before attempt+1. A rate limit's RetryAfter wins over
// the exponential schedule.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.MaxWait > 0 {
		wait = min(wait, float64(r.config.MaxWait))
	}
	// ±20% jitter.
	wait *= 0.8 + 0.4*rand.Float64()
	return time.Duration(wait)
}
