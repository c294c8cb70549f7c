package promptqueue

import (
	"testing"

	"github.com/nstogner/agentrt/internal/domain"
)

func TestPriorityPreservation(t *testing.T) {
	q := New()
	q.Enqueue("normal-1", domain.PriorityNormal)
	q.Enqueue("normal-2", domain.PriorityNormal)
	q.Enqueue("high-1", domain.PriorityHigh)

	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("Drain() returned %d items, want 3", len(drained))
	}
	if drained[0].Text != "high-1" {
		t.Errorf("drained[0] = %q, want high-1 before any normal item", drained[0].Text)
	}
	if drained[1].Text != "normal-1" || drained[2].Text != "normal-2" {
		t.Errorf("normal items out of FIFO order: %v", drained)
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	q := New()
	q.Enqueue("x", domain.PriorityNormal)
	q.Drain()
	if q.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", q.Len())
	}
}

func TestRemove(t *testing.T) {
	q := New()
	id := q.Enqueue("x", domain.PriorityNormal)
	if !q.Remove(id) {
		t.Fatalf("Remove(%q) = false, want true", id)
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Remove = %d, want 0", q.Len())
	}
	if q.Remove(id) {
		t.Errorf("Remove(%q) twice = true, want false", id)
	}
}

func TestPeekDoesNotDrain(t *testing.T) {
	q := New()
	q.Enqueue("x", domain.PriorityNormal)
	if got := q.Peek(); len(got) != 1 {
		t.Fatalf("Peek() = %v, want 1 item", got)
	}
	if q.Len() != 1 {
		t.Errorf("Len() after Peek = %d, want 1", q.Len())
	}
}
