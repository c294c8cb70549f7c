// Package statusbus is a pub/sub broadcaster of AgentStatus snapshots.
// Each subscriber gets a buffered channel; publishes never block, so a
// slow subscriber drops intermediate snapshots but a late or lagging
// one always eventually sees the latest.
package statusbus

import (
	"sync"

	"github.com/nstogner/agentrt/internal/domain"
)

// subscriberBuffer bounds how many snapshots a slow subscriber can lag
// behind before its oldest ones are dropped to make room for new ones.
const subscriberBuffer = 16

// Bus is the StatusBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan domain.AgentStatus]struct{}
	last        domain.AgentStatus
	hasLast     bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[chan domain.AgentStatus]struct{})}
}

// Subscribe registers a new listener and returns its channel and an
// Unsubscribe function. The channel is never closed by Unsubscribe
// immediately to avoid a send-on-closed-channel race; it is garbage
// collected once both sides drop their reference.
func (b *Bus) Subscribe() (<-chan domain.AgentStatus, func()) {
	ch := make(chan domain.AgentStatus, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	last, hasLast := b.last, b.hasLast
	b.mu.Unlock()

	if hasLast {
		select {
		case ch <- last:
		default:
		}
	}

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish broadcasts status to all current subscribers. For a subscriber
// whose buffer is full, the oldest buffered snapshot is discarded to make
// room, so the newest one is always delivered.
func (b *Bus) Publish(status domain.AgentStatus) {
	b.mu.Lock()
	b.last = status
	b.hasLast = true
	subs := make([]chan domain.AgentStatus, 0, len(b.subscribers))
	for ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- status:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- status:
			default:
			}
		}
	}
}

// Last returns the most recently published status, if any.
func (b *Bus) Last() (domain.AgentStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.hasLast
}
