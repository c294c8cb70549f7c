package domain

import "errors"

// Input errors: surfaced to the caller; no loop progress is made.
var (
	ErrRejectGoalEmpty   = errors.New("goal must not be empty")
	ErrRangeError        = errors.New("value out of allowed range")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrSchemaViolation   = errors.New("tool arguments violate schema")
	ErrPathEscape        = errors.New("path escapes workspace root")
	ErrStagesNotMonotone = errors.New("tournament stages must be non-increasing")
)

// Recoverable tool errors: converted to tool_result messages so the model can react.
var (
	ErrHandlerFailure  = errors.New("tool handler failed")
	ErrTimeout         = errors.New("operation timed out")
	ErrCodeExecNonZero = errors.New("code execution exited non-zero")
)

// Recoverable LLM errors: retried by ModelClient.
var (
	ErrRateLimit        = errors.New("rate limited")
	ErrTransientNetwork = errors.New("transient network error")
)

// Fatal errors: AgentCore transitions to StateError; LifecycleController exposes the cause.
var (
	ErrModelAuthFailure  = errors.New("model authentication failed")
	ErrMalformedResponse = errors.New("model returned a malformed response")
	ErrCompactionFailed  = errors.New("context compaction failed")
	ErrUnrecoverableIO   = errors.New("unrecoverable I/O error")
)

// Policy errors.
var (
	ErrProtectedToolMutation      = errors.New("cannot delete or overwrite a protected tool")
	ErrFactoryResetWithoutConfirm = errors.New("factory reset requires explicit confirmation")
)
