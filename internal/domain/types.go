// Package domain holds the data model shared across the agent runtime:
// messages, tool calls, context windows, prompt queue items, status
// snapshots, and tournament records. Types here are immutable once
// appended, per the ownership rules in the runtime's design.
package domain

import "time"

// ToolCall is a single tool invocation requested by the model on an
// assistant Message.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Args holds the decoded argument mapping. ToolDescription, if the
	// model supplied one, is carried separately and must never appear here.
	Args map[string]any `json:"args"`
	// ToolDescription is free text the model used to explain its intent.
	// ToolRegistry strips this from dispatched arguments; EnhancedLogger
	// surfaces it as the log entry's description.
	ToolDescription string `json:"tool_description,omitempty"`
}

// ToolResult is the outcome of a dispatched ToolCall, fed back into the
// context as a tool_result Message correlated by ToolCallID.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Message is one immutable entry in a ContextWindow.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	// ToolCalls is set on assistant messages that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolResult correlates a tool_result message to its originating call.
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Usage reports token accounting from a ModelClient.Chat call. Values may
// be zero when the provider doesn't report them, in which case callers
// fall back to EstimateTokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// PromptQueueItem is one operator-injected prompt awaiting a turn boundary.
type PromptQueueItem struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Sequence uint64   `json:"sequence"`
}

// AgentStatus is a rebuildable snapshot of an AgentCore's observable state.
type AgentStatus struct {
	State         LifecycleState `json:"state"`
	LoopCount     int            `json:"loop_count"`
	TotalTokens   int            `json:"total_tokens"`
	LastAction    string         `json:"last_action"`
	ContextUsage  float64        `json:"context_usage_percent"`
	QueuedPrompts []string       `json:"queued_prompts"`
	TodosDigest   string         `json:"todos_digest,omitempty"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// EnhancedLogEntry is one append-only log record.
type EnhancedLogEntry struct {
	ID          int64       `json:"id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Category    LogCategory `json:"category"`
	Message     string      `json:"message"`
	Description string      `json:"description,omitempty"`
	ToolName    string      `json:"tool_name,omitempty"`
	// ToolArgs is the filtered argument map: tool_description is never present.
	ToolArgs map[string]any `json:"tool_args,omitempty"`
}

// RevealedFile is a workspace file a Worker has published for downstream
// stages and debate peers.
type RevealedFile struct {
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	WorkerID    string `json:"worker_id"`
}

// CompletionRecord is the output of complete_task.
type CompletionRecord struct {
	Reason  CompletionReason `json:"reason"`
	Summary string           `json:"summary"`
	Output  string           `json:"output,omitempty"`
}

// Worker is one isolated agent running within a tournament Stage.
type Worker struct {
	ID              string           `json:"id"`
	TournamentID    string           `json:"tournament_id"`
	Stage           int              `json:"stage"`
	WorkspacePath   string           `json:"workspace_path"`
	State           LifecycleState   `json:"state"`
	Revealed        []RevealedFile   `json:"revealed"`
	Completion      *CompletionRecord `json:"completion,omitempty"`
	Failed          bool             `json:"failed"`
	FailureCause    string           `json:"failure_cause,omitempty"`
}

// DebateEntry is one critique-and-response transcript record.
type DebateEntry struct {
	Round    int    `json:"round"`
	WorkerID string `json:"worker_id"`
	Text     string `json:"text"`
}

// Stage is one fixed-width horizontal slice of a Tournament.
type Stage struct {
	Index               int           `json:"index"`
	Workers             []*Worker     `json:"workers"`
	DebateTranscript    []DebateEntry `json:"debate_transcript"`
	SynthesisTranscript string        `json:"synthesis_transcript,omitempty"`
	CollisionNotes      []string      `json:"collision_notes,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	EndedAt             time.Time     `json:"ended_at"`
	Failed              bool          `json:"failed"`
}

// Tournament is a staged pipeline of worker agents narrowing to a
// synthesized artifact set.
type Tournament struct {
	ID           string           `json:"id"`
	Topic        string           `json:"topic"`
	Stages       []int            `json:"stages"`
	DebateRounds int              `json:"debate_rounds"`
	StageIndex   int              `json:"stage_index"`
	Status       TournamentStatus `json:"status"`
	StageRecords []*Stage         `json:"stage_records"`
	Artifacts    []RevealedFile   `json:"artifacts,omitempty"`
}
