package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nstogner/agentrt/internal/domain"
)

// flakyClient fails the first failures Chat calls with err, then
// succeeds.
type flakyClient struct {
	failures int
	err      error
	calls    int
}

func (f *flakyClient) Chat(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &Response{Message: domain.Message{Text: "ok"}, FinishReason: domain.FinishStop}, nil
}

func (f *flakyClient) EstimateTokens(text string) int { return len(text) / 4 }

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &flakyClient{failures: 2, err: fmt.Errorf("dial: %w", domain.ErrTransientNetwork)}
	client := WithRetry(inner, DefaultClassify, fastRetry(4))

	resp, err := client.Chat(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Text != "ok" {
		t.Errorf("Chat response = %+v, want the eventual success", resp)
	}
	if inner.calls != 3 {
		t.Errorf("inner Chat called %d times, want 3 (two failures + one success)", inner.calls)
	}
}

func TestRetryGivesUpImmediatelyOnFatalError(t *testing.T) {
	inner := &flakyClient{failures: 10, err: fmt.Errorf("401: %w", domain.ErrModelAuthFailure)}
	client := WithRetry(inner, DefaultClassify, fastRetry(4))

	_, err := client.Chat(context.Background(), Request{})
	if !errors.Is(err, domain.ErrModelAuthFailure) {
		t.Fatalf("Chat error = %v, want ErrModelAuthFailure", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner Chat called %d times, want 1 (no retry on fatal)", inner.calls)
	}
}

func TestRetryExhaustsAttemptsAndWrapsLastError(t *testing.T) {
	inner := &flakyClient{failures: 10, err: fmt.Errorf("429: %w", domain.ErrRateLimit)}
	client := WithRetry(inner, DefaultClassify, fastRetry(3))

	_, err := client.Chat(context.Background(), Request{})
	if !errors.Is(err, domain.ErrRateLimit) {
		t.Fatalf("Chat error = %v, want wrapped ErrRateLimit", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner Chat called %d times, want MaxAttempts (3)", inner.calls)
	}
}

func TestRetryAbortsWhenContextCanceledDuringBackoff(t *testing.T) {
	inner := &flakyClient{failures: 10, err: fmt.Errorf("dial: %w", domain.ErrTransientNetwork)}
	cfg := RetryConfig{MaxAttempts: 4, BaseDelay: time.Hour, MaxDelay: time.Hour}
	client := WithRetry(inner, DefaultClassify, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := client.Chat(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Chat error = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner Chat called %d times, want 1 before the long backoff", inner.calls)
	}
}

func TestBackoffCapsAtMaxDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	if d := backoff(cfg, 0); d != 100*time.Millisecond {
		t.Errorf("backoff(0) = %v, want 100ms", d)
	}
	if d := backoff(cfg, 1); d != 200*time.Millisecond {
		t.Errorf("backoff(1) = %v, want 200ms", d)
	}
	if d := backoff(cfg, 5); d != 300*time.Millisecond {
		t.Errorf("backoff(5) = %v, want the 300ms cap", d)
	}
}
