// Package promptqueue implements a priority FIFO of operator-injected
// prompts, drained only at agent turn boundaries. Items are ordered by
// priority first, then by enqueue sequence.
package promptqueue

import (
	"container/heap"
	"sync"

	"github.com/google/uuid"

	"github.com/nstogner/agentrt/internal/domain"
)

// Queue is the PromptQueue.
type Queue struct {
	mu   sync.Mutex
	heap itemHeap
	seq  uint64
}

// New creates an empty Queue.
func New() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// Enqueue adds text at the given priority and returns its new id.
func (q *Queue) Enqueue(text string, priority domain.Priority) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	item := domain.PromptQueueItem{
		ID:       uuid.New().String(),
		Text:     text,
		Priority: priority,
		Sequence: q.seq,
	}
	heap.Push(&q.heap, item)
	return item.ID
}

// Remove deletes the item with the given id, if present.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.heap {
		if it.ID == id {
			heap.Remove(&q.heap, i)
			return true
		}
	}
	return false
}

// Drain returns all queued items in priority order (priority desc,
// sequence asc) and empties the queue.
func (q *Queue) Drain() []domain.PromptQueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.PromptQueueItem, 0, len(q.heap))
	for q.heap.Len() > 0 {
		out = append(out, heap.Pop(&q.heap).(domain.PromptQueueItem))
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Peek returns the text of all queued items without draining, used by
// AgentStatus snapshots.
func (q *Queue) Peek() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := make(itemHeap, len(q.heap))
	copy(cp, q.heap)
	heap.Init(&cp)
	out := make([]string, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heap.Pop(&cp).(domain.PromptQueueItem).Text)
	}
	return out
}

type itemHeap []domain.PromptQueueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	pi, pj := priorityRank(h[i].Priority), priorityRank(h[j].Priority)
	if pi != pj {
		return pi > pj // higher rank (high priority) first
	}
	return h[i].Sequence < h[j].Sequence
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(domain.PromptQueueItem))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func priorityRank(p domain.Priority) int {
	if p == domain.PriorityHigh {
		return 1
	}
	return 0
}
