package contextmgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nstogner/agentrt/internal/domain"
)

type fakeChatter struct {
	summary string
	err     error
	calls   int
}

func (f *fakeChatter) Chat(ctx context.Context, instructions string, messages []domain.Message) (domain.Message, error) {
	f.calls++
	if f.err != nil {
		return domain.Message{}, f.err
	}
	return domain.Message{Role: domain.RoleAssistant, Text: f.summary}, nil
}

func (f *fakeChatter) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

func appendTurns(m *Manager, n int) {
	for i := 0; i < n; i++ {
		m.Append(domain.Message{Role: domain.RoleUser, Text: strings.Repeat("x", 20)})
		m.Append(domain.Message{Role: domain.RoleAssistant, Text: strings.Repeat("y", 20)})
	}
}

func TestTokenMonotonicityBetweenCompactions(t *testing.T) {
	m := New(&fakeChatter{}, "goal", 10000, 0.9)
	prev := m.EstimatedTokens()
	for i := 0; i < 5; i++ {
		m.Append(domain.Message{Role: domain.RoleUser, Text: "some text here"})
		cur := m.EstimatedTokens()
		if cur < prev {
			t.Fatalf("estimated tokens decreased without compaction: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestCompactReducesUsageBelowThreshold(t *testing.T) {
	chatter := &fakeChatter{summary: "SUMMARY containing the goal: reach the moon"}
	m := New(chatter, "reach the moon", 1000, 0.5)
	// 45 turns = 90 messages of 6 estimated tokens each = 540 of 1000.
	appendTurns(m, 45)
	if !m.ShouldCompact() {
		t.Fatalf("ShouldCompact() = false, want true after seeding enough turns")
	}
	if err := m.Compact(context.Background()); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if m.UsagePercent() >= 0.5 {
		t.Errorf("UsagePercent() = %v after Compact, want < 0.5", m.UsagePercent())
	}
	found := false
	for _, msg := range m.Messages() {
		if strings.Contains(msg.Text, "reach the moon") {
			found = true
		}
	}
	if !found {
		t.Errorf("compacted messages do not retain goal text")
	}
}

func TestCompactFailureLeavesContextByteIdentical(t *testing.T) {
	chatter := &fakeChatter{err: errors.New("boom")}
	m := New(chatter, "goal", 1000, 0.5)
	appendTurns(m, 10)
	before := m.Messages()

	err := m.Compact(context.Background())
	if !errors.Is(err, domain.ErrCompactionFailed) {
		t.Fatalf("Compact error = %v, want ErrCompactionFailed", err)
	}
	after := m.Messages()
	if len(before) != len(after) {
		t.Fatalf("message count changed after failed compaction: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Text != after[i].Text {
			t.Errorf("message %d changed after failed compaction", i)
		}
	}
}

func TestCompactNeverSplitsToolCallFromResult(t *testing.T) {
	chatter := &fakeChatter{summary: "summary"}
	m := New(chatter, "goal", 1000, 0.99)
	m.Append(domain.Message{Role: domain.RoleAssistant, Text: "calling", ToolCalls: []domain.ToolCall{{ID: "1", Name: "x"}}})
	m.Append(domain.Message{Role: domain.RoleToolResult, ToolResult: &domain.ToolResult{ToolCallID: "1", Content: "ok"}})
	appendTurns(m, 5)

	idx := findSplitPoint(m.messages, DefaultPreserveRecent)
	if idx > 0 {
		prev := m.messages[idx-1]
		cur := m.messages[idx]
		if len(prev.ToolCalls) > 0 && cur.Role == domain.RoleToolResult {
			t.Errorf("split point separates a tool call from its result")
		}
	}
}

func TestSetThresholdRejectsOutOfRange(t *testing.T) {
	m := New(&fakeChatter{}, "goal", 1000, 0.5)
	if err := m.SetThreshold(1.5); !errors.Is(err, domain.ErrRangeError) {
		t.Errorf("SetThreshold(1.5) = %v, want ErrRangeError", err)
	}
	if err := m.SetThreshold(0.6); err != nil {
		t.Errorf("SetThreshold(0.6) = %v, want nil", err)
	}
}
