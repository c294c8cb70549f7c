// Package logger implements an append-only, categorized event log for
// one agent. It keeps an in-memory ring buffer for fast recent-history
// reads and, optionally, forwards every entry to a durable Sink
// (logger/sqlite). Structured fields also go through log/slog for
// operator-facing output.
package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nstogner/agentrt/internal/domain"
)

// DefaultCapacity bounds the in-memory ring buffer.
const DefaultCapacity = 2000

// Sink durably persists log entries, e.g. logger/sqlite.Store.
type Sink interface {
	Append(ctx context.Context, entry domain.EnhancedLogEntry) error
}

// Logger is the EnhancedLogger.
type Logger struct {
	mu       sync.Mutex
	entries  []domain.EnhancedLogEntry
	capacity int
	nextID   int64
	sink     Sink
	slog     *slog.Logger
}

// New creates a Logger with the given capacity (<=0 uses DefaultCapacity)
// and optional durable sink. slog.Default() is used for structured
// stderr output alongside the in-memory/durable records.
func New(capacity int, sink Sink) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Logger{capacity: capacity, sink: sink, slog: slog.Default()}
}

// Log appends entry, assigning it an ID and trimming the ring buffer.
// Sink failures are logged via slog but never block or fail the call;
// the in-memory record is the source of truth for a running agent.
// If the raw argument map still carries a tool_description field, it is
// removed and surfaced as the entry's Description instead.
func (l *Logger) Log(ctx context.Context, entry domain.EnhancedLogEntry) domain.EnhancedLogEntry {
	if desc, ok := entry.ToolArgs["tool_description"]; ok {
		filtered := make(map[string]any, len(entry.ToolArgs)-1)
		for k, v := range entry.ToolArgs {
			if k != "tool_description" {
				filtered[k] = v
			}
		}
		entry.ToolArgs = filtered
		if entry.Description == "" {
			if s, ok := desc.(string); ok {
				entry.Description = s
			}
		}
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.nextID++
	entry.ID = l.nextID
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
	sink := l.sink
	l.mu.Unlock()

	switch entry.Category {
	case domain.LogError:
		l.slog.Error(entry.Message, "category", entry.Category, "description", entry.Description)
	default:
		l.slog.Info(entry.Message, "category", entry.Category, "description", entry.Description)
	}

	if sink != nil {
		if err := sink.Append(ctx, entry); err != nil {
			l.slog.Error("durable log sink append failed", "error", err)
		}
	}
	return entry
}

// LLM logs a category=llm entry for one model turn.
func (l *Logger) LLM(ctx context.Context, message string) domain.EnhancedLogEntry {
	return l.Log(ctx, domain.EnhancedLogEntry{Category: domain.LogLLM, Message: message})
}

// Tool logs a category=tool entry, carrying the tool's name, filtered
// args, and the model-supplied tool_description as Description.
func (l *Logger) Tool(ctx context.Context, toolName, description string, args map[string]any) domain.EnhancedLogEntry {
	return l.Log(ctx, domain.EnhancedLogEntry{
		Category:    domain.LogTool,
		Message:     "tool invoked: " + toolName,
		Description: description,
		ToolName:    toolName,
		ToolArgs:    args,
	})
}

// Lifecycle logs a category=lifecycle entry.
func (l *Logger) Lifecycle(ctx context.Context, message string) domain.EnhancedLogEntry {
	return l.Log(ctx, domain.EnhancedLogEntry{Category: domain.LogLifecycle, Message: message})
}

// Context logs a category=context entry (e.g. compaction events).
func (l *Logger) Context(ctx context.Context, message string) domain.EnhancedLogEntry {
	return l.Log(ctx, domain.EnhancedLogEntry{Category: domain.LogContext, Message: message})
}

// Tournament logs a category=tournament entry.
func (l *Logger) Tournament(ctx context.Context, message string) domain.EnhancedLogEntry {
	return l.Log(ctx, domain.EnhancedLogEntry{Category: domain.LogTournament, Message: message})
}

// Error logs a category=error entry.
func (l *Logger) Error(ctx context.Context, message string) domain.EnhancedLogEntry {
	return l.Log(ctx, domain.EnhancedLogEntry{Category: domain.LogError, Message: message})
}

// Tail returns up to limit most recent buffered entries, oldest first.
// Zero or negative limit means all buffered entries. If categories are
// given, only entries matching one of them are considered.
func (l *Logger) Tail(limit int, categories ...domain.LogCategory) []domain.EnhancedLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]domain.EnhancedLogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if len(categories) == 0 {
			matched = append(matched, e)
			continue
		}
		for _, c := range categories {
			if e.Category == c {
				matched = append(matched, e)
				break
			}
		}
	}
	if limit <= 0 || limit > len(matched) {
		limit = len(matched)
	}
	return matched[len(matched)-limit:]
}
