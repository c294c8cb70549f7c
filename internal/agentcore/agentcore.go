// Package agentcore implements the turn-loop engine that drives one
// agent's conversation with a model: it drains queued prompts, compacts
// the context when usage crosses the threshold, calls the model,
// dispatches any requested tool calls, and feeds results back until
// complete_task is observed. Each AgentCore runs in its own goroutine
// with cooperative cancellation and a pause/resume gate.
package agentcore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nstogner/agentrt/internal/contextmgr"
	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/logger"
	"github.com/nstogner/agentrt/internal/model"
	"github.com/nstogner/agentrt/internal/promptqueue"
	"github.com/nstogner/agentrt/internal/statusbus"
	"github.com/nstogner/agentrt/internal/tools"
	"github.com/nstogner/agentrt/internal/workspace"
)

// Config bounds one AgentCore's run.
type Config struct {
	// MaxTurns caps the number of model turns per run; 0 means unlimited.
	MaxTurns int
	// MaxContextTokens is the ContextManager's budget denominator.
	MaxContextTokens int
	// CompactionThreshold is the ContextManager's usage_percent trigger.
	CompactionThreshold float64
	// ContinuousMode selects the complete_task semantics. false
	// (default) is task-scoped: complete_task ends the run, which is
	// what a tournament worker needs so its completion record can be
	// exposed to its supervisor. true is the continuous main-agent
	// mode: complete_task closes only the current sub-task, and the
	// loop re-prompts itself with an implicit continuation message
	// instead of stopping.
	ContinuousMode bool
	// Summarizer, when non-nil, is the model client used for context
	// compaction instead of the main client.
	Summarizer model.Client
}

// modelChatter adapts a model.Client to contextmgr.Chatter; the two
// packages declare independent interfaces so neither imports the other.
type modelChatter struct {
	client model.Client
}

func (c modelChatter) Chat(ctx context.Context, instructions string, messages []domain.Message) (domain.Message, error) {
	resp, err := c.client.Chat(ctx, model.Request{Instructions: instructions, Messages: messages})
	if err != nil {
		return domain.Message{}, err
	}
	return resp.Message, nil
}

func (c modelChatter) EstimateTokens(text string) int { return c.client.EstimateTokens(text) }

// AgentCore is the turn-loop engine for one agent.
type AgentCore struct {
	mu          sync.Mutex
	state       domain.LifecycleState
	goal        string
	loopCount   int
	totalTokens int
	lastAction  string
	completion  *domain.CompletionRecord
	subTaskLog  []domain.CompletionRecord
	errCause    error
	pauseGate   chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}

	maxTurns   int
	continuous bool

	client    model.Client
	registry  *tools.Registry
	workspace *workspace.FS
	ctxmgr    *contextmgr.Manager
	queue     *promptqueue.Queue
	bus       *statusbus.Bus
	log       *logger.Logger
}

// New constructs an idle AgentCore. client should already be wrapped
// with model.WithRetry if retries are desired; AgentCore itself does
// not retry fatal Chat errors.
func New(cfg Config, client model.Client, registry *tools.Registry, fs *workspace.FS, queue *promptqueue.Queue, bus *statusbus.Bus, log *logger.Logger) *AgentCore {
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = client
	}
	mgr := contextmgr.New(modelChatter{client: summarizer}, "", cfg.MaxContextTokens, cfg.CompactionThreshold)
	return &AgentCore{
		state:      domain.StateIdle,
		maxTurns:   cfg.MaxTurns,
		continuous: cfg.ContinuousMode,
		client:     client,
		registry:   registry,
		workspace:  fs,
		ctxmgr:     mgr,
		queue:      queue,
		bus:        bus,
		log:        log,
	}
}

// ContextManager returns the agent's owned ContextManager, so builtin
// tools (manage_context) and diagnostics can reach it without AgentCore
// needing to re-expose every Manager method itself.
func (a *AgentCore) ContextManager() *contextmgr.Manager { return a.ctxmgr }

// State returns the current LifecycleState.
func (a *AgentCore) State() domain.LifecycleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Completion returns the CompletionRecord from the most recent
// complete_task call, if any.
func (a *AgentCore) Completion() *domain.CompletionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completion
}

// ErrCause returns the error that moved the agent to StateError, if any.
func (a *AgentCore) ErrCause() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errCause
}

// SubTaskCompletions returns every complete_task record observed during
// this run, in order. In continuous mode a single run may accumulate
// many, one per closed sub-task; in task-scoped mode it holds at most one.
func (a *AgentCore) SubTaskCompletions() []domain.CompletionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.CompletionRecord, len(a.subTaskLog))
	copy(out, a.subTaskLog)
	return out
}

// Start transitions idle/stopped -> running and launches the run loop
// in its own goroutine. An empty goal is rejected.
func (a *AgentCore) Start(ctx context.Context, goal string) error {
	if goal == "" {
		return domain.ErrRejectGoalEmpty
	}

	a.mu.Lock()
	if a.state != domain.StateIdle && a.state != domain.StateStopped && a.state != domain.StateError {
		a.mu.Unlock()
		return fmt.Errorf("start: agent is %s, not idle/stopped/error", a.state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.goal = goal
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = domain.StateRunning
	a.loopCount = 0
	a.totalTokens = 0
	a.completion = nil
	a.errCause = nil
	a.ctxmgr.Reset()
	a.ctxmgr.SetGoal(goal)
	a.ctxmgr.Append(domain.Message{Role: domain.RoleUser, Text: goal, CreatedAt: time.Now()})
	a.mu.Unlock()

	a.log.Lifecycle(ctx, "agent started: "+goal)
	a.publishStatus()
	go a.runLoop(runCtx)
	return nil
}

// Continue resumes a stopped, task-scoped AgentCore with prompt
// appended as a new user message, preserving its existing context
// rather than resetting it. The tournament engine uses this to drive
// debate rounds after a worker has already called complete_task once.
// The run proceeds exactly like a fresh Start's loop until the next
// complete_task, MaxTurns, or cancellation.
func (a *AgentCore) Continue(ctx context.Context, prompt string) error {
	a.mu.Lock()
	if a.state != domain.StateStopped {
		a.mu.Unlock()
		return fmt.Errorf("continue: agent is %s, not stopped", a.state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = domain.StateRunning
	a.completion = nil
	a.ctxmgr.Append(domain.Message{Role: domain.RoleUser, Text: prompt, CreatedAt: time.Now()})
	a.mu.Unlock()

	a.log.Lifecycle(ctx, "agent continuing: "+prompt)
	a.publishStatus()
	go a.runLoop(runCtx)
	return nil
}

// Pause transitions running -> paused. The run loop blocks at its next
// turn boundary until Resume or Stop.
func (a *AgentCore) Pause() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != domain.StateRunning {
		return fmt.Errorf("pause: agent is %s, not running", a.state)
	}
	a.state = domain.StatePaused
	a.pauseGate = make(chan struct{})
	return nil
}

// Resume transitions paused -> running, waking the run loop.
func (a *AgentCore) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != domain.StatePaused {
		return fmt.Errorf("resume: agent is %s, not paused", a.state)
	}
	a.state = domain.StateRunning
	close(a.pauseGate)
	a.pauseGate = nil
	return nil
}

// Stop cancels the run loop's context, unblocking it whether it is mid
// turn or waiting on a pause gate, and waits for it to finish.
func (a *AgentCore) Stop() {
	a.mu.Lock()
	if a.state == domain.StateIdle || a.state == domain.StateStopped {
		a.mu.Unlock()
		return
	}
	a.state = domain.StateStopping
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Restart atomically stops any current run, waits for quiescence, and
// starts again with the same goal. When keepContext is true the
// accumulated context survives the restart; otherwise it is reset to
// just the goal. A non-empty prompt is injected as a user message
// before the first new turn.
func (a *AgentCore) Restart(ctx context.Context, prompt string, keepContext bool) error {
	a.Stop()

	a.mu.Lock()
	if a.goal == "" {
		a.mu.Unlock()
		return domain.ErrRejectGoalEmpty
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = domain.StateRunning
	a.loopCount = 0
	a.completion = nil
	a.errCause = nil
	if !keepContext {
		a.totalTokens = 0
		a.ctxmgr.Reset()
		a.ctxmgr.Append(domain.Message{Role: domain.RoleUser, Text: a.goal, CreatedAt: time.Now()})
	}
	if prompt != "" {
		a.ctxmgr.Append(domain.Message{Role: domain.RoleUser, Text: prompt, CreatedAt: time.Now()})
	}
	a.mu.Unlock()

	a.log.Lifecycle(ctx, "agent restarted")
	a.publishStatus()
	go a.runLoop(runCtx)
	return nil
}

// ForceCompact runs context compaction immediately, regardless of
// current usage, independent of the run loop's own ShouldCompact check.
func (a *AgentCore) ForceCompact(ctx context.Context) error {
	if err := a.ctxmgr.Compact(ctx); err != nil {
		a.log.Context(ctx, "forced compaction failed: "+err.Error())
		return err
	}
	a.log.Context(ctx, fmt.Sprintf("forced compaction complete (#%d)", a.ctxmgr.CompactionCount()))
	return nil
}

// Reset stops any current run and returns the core to a blank idle
// state: goal, context, counters, and completion records are all
// cleared, so the next Start begins from scratch.
func (a *AgentCore) Reset() {
	a.Stop()
	a.mu.Lock()
	a.state = domain.StateIdle
	a.goal = ""
	a.loopCount = 0
	a.totalTokens = 0
	a.lastAction = ""
	a.completion = nil
	a.subTaskLog = nil
	a.errCause = nil
	a.ctxmgr.Reset()
	a.ctxmgr.SetGoal("")
	a.mu.Unlock()
	a.publishStatus()
}

// SendPrompt enqueues an operator prompt, drained at the next turn
// boundary, and returns its queue id.
func (a *AgentCore) SendPrompt(text string, priority domain.Priority) string {
	return a.queue.Enqueue(text, priority)
}

// Status returns a snapshot of the agent's observable state.
func (a *AgentCore) Status() domain.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.AgentStatus{
		State:         a.state,
		LoopCount:     a.loopCount,
		TotalTokens:   a.totalTokens,
		LastAction:    a.lastAction,
		ContextUsage:  a.ctxmgr.UsagePercent(),
		QueuedPrompts: a.queue.Peek(),
		GeneratedAt:   time.Now(),
	}
}

func (a *AgentCore) publishStatus() {
	a.bus.Publish(a.Status())
}

// runLoop drives turns until the context is cancelled, completion is
// reported, an unrecoverable error occurs, or MaxTurns is reached.
func (a *AgentCore) runLoop(ctx context.Context) {
	defer close(a.done)
	defer a.finalize()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		a.mu.Lock()
		state := a.state
		gate := a.pauseGate
		a.mu.Unlock()

		if state == domain.StatePaused {
			select {
			case <-ctx.Done():
				return
			case <-gate:
			}
			continue
		}
		if state != domain.StateRunning {
			return
		}

		finished, err := a.turn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Stop cancelled the run context mid-turn; this is an
				// intentional shutdown, not a fatal model/tool failure.
				return
			}
			a.mu.Lock()
			a.state = domain.StateError
			a.errCause = err
			a.mu.Unlock()
			a.log.Error(ctx, "agent error: "+err.Error())
			a.publishStatus()
			return
		}
		if finished {
			a.mu.Lock()
			if a.state == domain.StateRunning {
				a.state = domain.StateStopped
			}
			a.mu.Unlock()
			a.publishStatus()
			return
		}

		a.mu.Lock()
		a.loopCount++
		exceeded := a.maxTurns > 0 && a.loopCount >= a.maxTurns
		a.mu.Unlock()
		if exceeded {
			a.log.Lifecycle(ctx, "max turns exceeded")
			a.mu.Lock()
			a.state = domain.StateStopped
			a.mu.Unlock()
			a.publishStatus()
			return
		}
		a.publishStatus()
	}
}

func (a *AgentCore) finalize() {
	a.mu.Lock()
	if a.state == domain.StateRunning || a.state == domain.StatePaused || a.state == domain.StateStopping {
		a.state = domain.StateStopped
	}
	a.mu.Unlock()
	a.log.Lifecycle(context.Background(), "agent stopped")
	a.publishStatus()
}

// turn runs one loop iteration: drain queued prompts, compact if
// needed, call the model, then dispatch any requested tool calls. It
// returns finished=true once complete_task has been observed.
func (a *AgentCore) turn(ctx context.Context) (finished bool, err error) {
	for _, item := range a.queue.Drain() {
		a.ctxmgr.Append(domain.Message{Role: domain.RoleUser, Text: item.Text, CreatedAt: time.Now()})
	}

	if a.ctxmgr.ShouldCompact() {
		if cErr := a.ctxmgr.Compact(ctx); cErr != nil {
			a.log.Context(ctx, "compaction failed: "+cErr.Error())
			return false, cErr
		}
		a.log.Context(ctx, fmt.Sprintf("compaction complete (#%d)", a.ctxmgr.CompactionCount()))
	}

	snapshot := a.registry.Snapshot()
	req := model.Request{
		Instructions: a.goal,
		Messages:     a.ctxmgr.Messages(),
		Tools:        schemasFor(snapshot),
	}

	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return false, fmt.Errorf("model chat: %w", err)
	}

	assistant := resp.Message
	assistant.Role = domain.RoleAssistant
	if assistant.CreatedAt.IsZero() {
		assistant.CreatedAt = time.Now()
	}
	a.ctxmgr.Append(assistant)

	a.mu.Lock()
	if resp.Usage.TotalTokens > 0 {
		a.totalTokens += resp.Usage.TotalTokens
	} else {
		a.totalTokens += a.client.EstimateTokens(assistant.Text)
	}
	a.lastAction = "model replied: " + string(resp.FinishReason)
	a.mu.Unlock()
	a.log.LLM(ctx, "model turn finished: "+string(resp.FinishReason))

	if len(assistant.ToolCalls) == 0 {
		return false, nil
	}

	completedThisReply := false
	for _, tc := range assistant.ToolCalls {
		if completedThisReply {
			break
		}
		if tc.Name == domain.ToolCompleteTask {
			completedThisReply = a.handleCompleteTask(ctx, tc)
			continue
		}

		out, invokeErr := snapshot.Invoke(ctx, tc.Name, tc.Args)
		isErr := invokeErr != nil
		content := out
		if isErr {
			content = invokeErr.Error()
		}
		a.log.Tool(ctx, tc.Name, tc.ToolDescription, tc.Args)
		a.ctxmgr.Append(domain.Message{
			Role:       domain.RoleToolResult,
			ToolResult: &domain.ToolResult{ToolCallID: tc.ID, Content: content, IsError: isErr},
			CreatedAt:  time.Now(),
		})
	}

	a.mu.Lock()
	a.lastAction = "dispatched tool calls"
	a.mu.Unlock()

	if completedThisReply && a.continuous {
		// In continuous mode complete_task closes only the current
		// sub-task. Re-prompt with an implicit continuation message
		// instead of stopping the loop.
		a.mu.Lock()
		last := a.completion
		a.mu.Unlock()
		a.ctxmgr.Append(domain.Message{
			Role:      domain.RoleUser,
			Text:      continuationPrompt(last),
			CreatedAt: time.Now(),
		})
		a.mu.Lock()
		a.lastAction = "sub-task complete; continuing"
		a.mu.Unlock()
		return false, nil
	}

	return completedThisReply, nil
}

// continuationPrompt builds the implicit re-prompt a continuous
// MainAgent receives after closing a sub-task via complete_task.
func continuationPrompt(last *domain.CompletionRecord) string {
	if last == nil {
		return "The previous sub-task finished. Continue working toward the goal."
	}
	return fmt.Sprintf(
		"Sub-task complete (reason=%s): %s\nContinue working toward the overall goal. Call complete_task again once the next sub-task is done.",
		last.Reason, last.Summary,
	)
}

// handleCompleteTask records the CompletionRecord from a complete_task
// call and appends its acknowledgement as a tool_result message. The
// caller stops processing further tool calls in the same reply once
// this returns true, so a single reply yields at most one completion.
func (a *AgentCore) handleCompleteTask(ctx context.Context, tc domain.ToolCall) bool {
	reason, _ := tc.Args["reason"].(string)
	summary, _ := tc.Args["summary"].(string)
	output, _ := tc.Args["output"].(string)

	record := domain.CompletionRecord{
		Reason:  domain.CompletionReason(reason),
		Summary: summary,
		Output:  output,
	}
	a.mu.Lock()
	a.completion = &record
	a.subTaskLog = append(a.subTaskLog, record)
	a.mu.Unlock()

	a.log.Tool(ctx, domain.ToolCompleteTask, tc.ToolDescription, tc.Args)
	a.ctxmgr.Append(domain.Message{
		Role:       domain.RoleToolResult,
		ToolResult: &domain.ToolResult{ToolCallID: tc.ID, Content: "task marked complete: " + summary},
		CreatedAt:  time.Now(),
	})
	return true
}

func schemasFor(snapshot *tools.Registry) []tools.Schema {
	list := snapshot.List()
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	out := make([]tools.Schema, len(list))
	for i, t := range list {
		out[i] = t.Schema
	}
	return out
}
