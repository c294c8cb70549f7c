// Package model abstracts request/response to an LLM: tokenization
// estimates, retries, and the success/recoverable/fatal error taxonomy.
// It never interprets tool calls and never mutates the messages it is
// given.
package model

import (
	"context"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/tools"
)

// Request is the input to a single Chat call.
type Request struct {
	Instructions string
	Messages     []domain.Message
	Tools        []tools.Schema
}

// Response is the result of a single Chat call.
type Response struct {
	Message      domain.Message
	FinishReason domain.FinishReason
	Usage        domain.Usage
}

// Client is the model client contract: one blocking Chat call per
// request, plus a heuristic token estimator.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	// EstimateTokens returns a heuristic token count for text (e.g. a
	// 4-characters-per-token floor) when the provider's real usage isn't
	// available yet (before a call is made, or for compaction sizing).
	EstimateTokens(text string) int
}

// Kind classifies an error returned by a Client: recoverable errors
// are retried by WithRetry, fatal ones are surfaced as-is.
type Kind int

const (
	KindRecoverable Kind = iota
	KindFatal
)

// Classifier lets a concrete provider tell WithRetry which of its errors
// are transient (network, rate limit) versus fatal (auth, malformed
// response after the provider's own retries).
type Classifier func(error) Kind
