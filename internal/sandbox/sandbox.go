// Package sandbox declares the contract a code-execution backend must
// satisfy for tool handlers that run untrusted code on behalf of an
// agent or tournament worker: execute a command in an isolated
// environment and return its output.
package sandbox

import "context"

// Result is the outcome of one code execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Lister supplies the set of agent IDs a Manager should keep sandboxes
// running for, used by reconciliation loops.
type Lister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Manager owns the lifecycle of one sandbox per agent ID and executes
// code within it.
type Manager interface {
	// Run starts a reconciliation loop that keeps containers in sync
	// with lister's known IDs. Blocks until ctx is cancelled.
	Run(ctx context.Context, lister Lister) error
	// Exec runs code in the agent's sandbox, starting one if needed.
	Exec(ctx context.Context, agentID, code string) (*Result, error)
	// Status reports the sandbox's container state ("running", "stopped", "unknown").
	Status(ctx context.Context, agentID string) (string, error)
	// Close releases the Manager's own resources (not the containers).
	Close() error
}
