// Package mock provides a scriptable model.Client for tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/nstogner/agentrt/internal/model"
)

// Client replays a scripted sequence of responses, one per Chat call. If
// the script is exhausted, the last response repeats.
type Client struct {
	mu        sync.Mutex
	Responses []model.Response
	calls     int
	Err       error
}

var _ model.Client = (*Client)(nil)

// Chat returns the next scripted response.
func (c *Client) Chat(ctx context.Context, req model.Request) (*model.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if len(c.Responses) == 0 {
		return nil, fmt.Errorf("mock: no scripted responses")
	}
	idx := c.calls
	if idx >= len(c.Responses) {
		idx = len(c.Responses) - 1
	}
	c.calls++
	resp := c.Responses[idx]
	return &resp, nil
}

// EstimateTokens applies the 4-characters-per-token heuristic floor.
func (c *Client) EstimateTokens(text string) int {
	return len(text) / 4
}

// Calls returns how many times Chat has been invoked.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
