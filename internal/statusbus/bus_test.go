package statusbus

import (
	"testing"
	"time"

	"github.com/nstogner/agentrt/internal/domain"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(domain.AgentStatus{State: domain.StateRunning})

	select {
	case got := <-ch:
		if got.State != domain.StateRunning {
			t.Errorf("got state %s, want running", got.State)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published status")
	}
}

func TestLateSubscriberReplaysLastStatus(t *testing.T) {
	b := New()
	b.Publish(domain.AgentStatus{State: domain.StatePaused})

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	select {
	case got := <-ch:
		if got.State != domain.StatePaused {
			t.Errorf("replayed state = %s, want paused", got.State)
		}
	case <-time.After(time.Second):
		t.Fatal("late subscriber did not receive last status immediately")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(domain.AgentStatus{LoopCount: i})
	}

	if len(ch) != subscriberBuffer {
		t.Errorf("channel buffered %d entries, want full at %d (excess dropped)", len(ch), subscriberBuffer)
	}
}

func TestUnsubscribeStopsFutureDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	unsubscribe()

	b.Publish(domain.AgentStatus{State: domain.StateStopped})

	select {
	case got, ok := <-ch:
		if ok {
			t.Errorf("unsubscribed channel received %+v", got)
		}
	case <-time.After(50 * time.Millisecond):
		// no delivery, as expected
	}
}

func TestLastReturnsMostRecentPublish(t *testing.T) {
	b := New()
	if _, ok := b.Last(); ok {
		t.Fatalf("Last() on empty bus reported a value")
	}
	b.Publish(domain.AgentStatus{LoopCount: 1})
	b.Publish(domain.AgentStatus{LoopCount: 2})
	last, ok := b.Last()
	if !ok || last.LoopCount != 2 {
		t.Errorf("Last() = %+v, want LoopCount=2", last)
	}
}
