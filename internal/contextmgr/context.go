// Package contextmgr tracks one agent's ordered message sequence and
// its estimated token usage, and performs summarizing compaction when
// usage crosses a configured threshold. The Manager is single-writer:
// only the owning agent appends or compacts.
package contextmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/nstogner/agentrt/internal/domain"
)

// DefaultPreserveRecent is the floor on verbatim recent messages kept
// by Compact.
const DefaultPreserveRecent = 4

// Chatter is the subset of the model client the manager needs to run a
// summarization call. Declared locally rather than importing the model
// package to keep the dependency pointing one way.
type Chatter interface {
	Chat(ctx context.Context, instructions string, messages []domain.Message) (domain.Message, error)
	EstimateTokens(text string) int
}

// Manager is the ContextManager.
type Manager struct {
	messages        []domain.Message
	estimatedTokens int
	maxTokens       int
	threshold       float64
	compactionCount int
	preserveRecent  int
	chatter         Chatter
	goal            string
}

// New creates an empty Manager; goal is used only by Compact's
// summarization prompt.
func New(chatter Chatter, goal string, maxTokens int, threshold float64) *Manager {
	m := &Manager{
		maxTokens:      maxTokens,
		threshold:      threshold,
		preserveRecent: DefaultPreserveRecent,
		chatter:        chatter,
		goal:           goal,
	}
	return m
}

// Reset clears all messages and counters, preparing the Manager for a
// fresh run (AgentCore.Start, Restart and Reset). The goal is left as is.
func (m *Manager) Reset() {
	m.messages = nil
	m.estimatedTokens = 0
	m.compactionCount = 0
}

// SetGoal updates the active goal used by Compact's summarization
// prompt. AgentCore calls this on Start, since a Manager is constructed
// before the goal for its first run is known.
func (m *Manager) SetGoal(goal string) { m.goal = goal }

// Messages returns the current, ordered message sequence.
func (m *Manager) Messages() []domain.Message {
	out := make([]domain.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// CompactionCount returns how many times Compact has succeeded.
func (m *Manager) CompactionCount() int { return m.compactionCount }

// EstimatedTokens returns the current token estimate.
func (m *Manager) EstimatedTokens() int { return m.estimatedTokens }

// Append adds msg and updates the token estimate.
func (m *Manager) Append(msg domain.Message) {
	m.messages = append(m.messages, msg)
	m.estimatedTokens += m.chatter.EstimateTokens(msg.Text)
	for _, tc := range msg.ToolCalls {
		m.estimatedTokens += m.chatter.EstimateTokens(tc.Name) + m.chatter.EstimateTokens(fmt.Sprint(tc.Args))
	}
	if msg.ToolResult != nil {
		m.estimatedTokens += m.chatter.EstimateTokens(msg.ToolResult.Content)
	}
}

// UsagePercent returns estimated_tokens / max_tokens.
func (m *Manager) UsagePercent() float64 {
	if m.maxTokens == 0 {
		return 0
	}
	return float64(m.estimatedTokens) / float64(m.maxTokens)
}

// ShouldCompact reports whether usage has reached the configured threshold.
func (m *Manager) ShouldCompact() bool {
	return m.UsagePercent() >= m.threshold
}

// SetThreshold validates and updates the compaction threshold.
func (m *Manager) SetThreshold(t float64) error {
	if t < 0.1 || t > 0.99 {
		return fmt.Errorf("threshold %v: %w", t, domain.ErrRangeError)
	}
	m.threshold = t
	return nil
}

// Compact summarizes the dropped prefix of messages (everything before
// the last preserveRecent) into one synthetic system message that keeps
// the active goal, file identities and paths, pending todos, recorded
// failures with causes, and key decisions with rationale; the most
// recent messages stay verbatim. On failure the context is left
// untouched and ErrCompactionFailed is returned.
func (m *Manager) Compact(ctx context.Context) error {
	if len(m.messages) <= m.preserveRecent {
		return nil
	}

	splitIdx := findSplitPoint(m.messages, m.preserveRecent)
	if splitIdx <= 0 {
		return nil
	}

	toSummarize := m.messages[:splitIdx]
	recent := m.messages[splitIdx:]

	prompt := buildSummaryPrompt(m.goal, toSummarize)

	summaryMsg, err := m.chatter.Chat(ctx, summarizerInstructions, []domain.Message{
		{Role: domain.RoleUser, Text: prompt},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCompactionFailed, err)
	}
	if strings.TrimSpace(summaryMsg.Text) == "" {
		return fmt.Errorf("%w: empty summary", domain.ErrCompactionFailed)
	}

	summary := domain.Message{
		Role: domain.RoleSystem,
		Text: fmt.Sprintf("[CONTEXT SUMMARY — compaction #%d]\n\n%s", m.compactionCount+1, summaryMsg.Text),
	}

	newMessages := make([]domain.Message, 0, 1+len(recent))
	newMessages = append(newMessages, summary)
	newMessages = append(newMessages, recent...)
	m.messages = newMessages
	m.compactionCount++
	m.recomputeEstimate()
	return nil
}

func (m *Manager) recomputeEstimate() {
	total := 0
	for _, msg := range m.messages {
		total += m.chatter.EstimateTokens(msg.Text)
		for _, tc := range msg.ToolCalls {
			total += m.chatter.EstimateTokens(tc.Name) + m.chatter.EstimateTokens(fmt.Sprint(tc.Args))
		}
		if msg.ToolResult != nil {
			total += m.chatter.EstimateTokens(msg.ToolResult.Content)
		}
	}
	m.estimatedTokens = total
}

// findSplitPoint finds a compaction boundary that never splits a tool
// call from its tool_result, scanning backward from the point that would
// leave exactly preserveRecent trailing messages.
func findSplitPoint(messages []domain.Message, preserveRecent int) int {
	idx := len(messages) - preserveRecent
	if idx <= 0 {
		return 0
	}
	for idx > 0 {
		msg := messages[idx]
		if msg.Role == domain.RoleToolResult {
			idx--
			continue
		}
		prev := messages[idx-1]
		if len(prev.ToolCalls) > 0 {
			idx--
			continue
		}
		break
	}
	return idx
}

const summarizerInstructions = "You are a precise context summarizer for an autonomous agent. Extract and preserve all actionable information."

func buildSummaryPrompt(goal string, messages []domain.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation history, preserving:\n\n")
	b.WriteString("1. ACTIVE GOAL: " + goal + "\n")
	b.WriteString("2. FILES CREATED: identities and paths of any files created or modified\n")
	b.WriteString("3. PENDING TODOS: what still needs to be done\n")
	b.WriteString("4. RECORDED FAILURES: what didn't work and why, to avoid repeating it\n")
	b.WriteString("5. KEY DECISIONS: important choices made and their rationale\n")
	b.WriteString("6. RECENT PROGRESS: what was just accomplished\n\n")
	b.WriteString("Be thorough but concise. This summary replaces the original messages below.\n\n")
	b.WriteString("CONVERSATION TO SUMMARIZE:\n")
	for _, msg := range messages {
		content := msg.Text
		if msg.ToolResult != nil {
			content = msg.ToolResult.Content
		}
		if content == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("[%s] %s\n", strings.ToUpper(string(msg.Role)), content))
	}
	return b.String()
}
