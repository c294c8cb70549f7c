package domain

// Role identifies the sender of a Message.
type Role string

const (
	// RoleSystem is a system-level message (instructions, compaction summaries).
	RoleSystem Role = "system"
	// RoleUser indicates a message from the user or an injected prompt.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant Role = "assistant"
	// RoleToolResult indicates a tool's result fed back into the context.
	RoleToolResult Role = "tool_result"
)

// LifecycleState is a state in the AgentCore/LifecycleController state machine.
type LifecycleState string

const (
	StateIdle     LifecycleState = "idle"
	StateRunning  LifecycleState = "running"
	StatePaused   LifecycleState = "paused"
	StateStopping LifecycleState = "stopping"
	StateStopped  LifecycleState = "stopped"
	StateError    LifecycleState = "error"
)

// FinishReason describes why a model turn, or an agent run, ended.
type FinishReason string

const (
	FinishStop             FinishReason = "stop"
	FinishToolCalls        FinishReason = "tool_calls"
	FinishCompleteTask     FinishReason = "complete_task"
	FinishMaxTurnsExceeded FinishReason = "max_turns_exceeded"
	FinishError            FinishReason = "error"
)

// Priority orders PromptQueueItem draining.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ToolCategory groups tools for ToolRegistry.List filtering.
type ToolCategory string

const (
	CategoryCore   ToolCategory = "core"
	CategoryMeta   ToolCategory = "meta"
	CategoryOutput ToolCategory = "output"
	CategoryCustom ToolCategory = "custom"
)

// LogCategory classifies EnhancedLogEntry records.
type LogCategory string

const (
	LogLifecycle  LogCategory = "lifecycle"
	LogLLM        LogCategory = "llm"
	LogTool       LogCategory = "tool"
	LogContext    LogCategory = "context"
	LogTournament LogCategory = "tournament"
	LogError      LogCategory = "error"
)

// TournamentStatus is the lifecycle of a Tournament.
type TournamentStatus string

const (
	TournamentPending  TournamentStatus = "pending"
	TournamentRunning  TournamentStatus = "running"
	TournamentComplete TournamentStatus = "complete"
	TournamentFailed   TournamentStatus = "failed"
)

// CompletionReason is the terminal reason a Worker (or sub-task) reports via complete_task.
type CompletionReason string

const (
	CompletionFinished CompletionReason = "finished"
	CompletionStuck    CompletionReason = "stuck"
	CompletionBlocked  CompletionReason = "blocked"
	CompletionError    CompletionReason = "error"
)

// Well-known, protected tool names routed specially by AgentCore/ToolRegistry.
const (
	ToolCompleteTask   = "complete_task"
	ToolManageContext  = "manage_context"
	ToolReveal         = "reveal"
)
