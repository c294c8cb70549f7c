package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nstogner/agentrt/internal/domain"
)

// RetryConfig controls WithRetry's exponential backoff.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig holds modest defaults for transparent retry with
// exponential backoff on transient failures.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 4,
	BaseDelay:   250 * time.Millisecond,
	MaxDelay:    8 * time.Second,
}

// retrying wraps a Client, retrying calls whose error Classify reports
// as KindRecoverable, and giving up immediately on KindFatal.
type retrying struct {
	inner    Client
	cfg      RetryConfig
	classify Classifier
}

// WithRetry decorates client with exponential-backoff retry. classify
// distinguishes recoverable (RateLimit/TransientNetwork) from fatal
// (ModelAuthFailure/MalformedResponse) errors; everything not recognized
// is treated as fatal to avoid masking an unrecoverable condition.
func WithRetry(client Client, classify Classifier, cfg RetryConfig) Client {
	return &retrying{inner: client, cfg: cfg, classify: classify}
}

func (r *retrying) EstimateTokens(text string) int { return r.inner.EstimateTokens(text) }

func (r *retrying) Chat(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	attempts := r.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := r.inner.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if r.classify(err) == KindFatal {
			return nil, err
		}
		if attempt == attempts-1 {
			break
		}
		delay := backoff(r.cfg, attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}

func backoff(cfg RetryConfig, attempt int) time.Duration {
	d := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}

// DefaultClassify treats domain.ErrRateLimit and domain.ErrTransientNetwork
// as recoverable and everything else — including domain.ErrModelAuthFailure
// and domain.ErrMalformedResponse — as fatal.
func DefaultClassify(err error) Kind {
	if errors.Is(err, domain.ErrRateLimit) || errors.Is(err, domain.ErrTransientNetwork) {
		return KindRecoverable
	}
	return KindFatal
}
