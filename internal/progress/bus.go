// Package progress is the per-run_id fan-out of ProgressEvent to live
// subscribers. It never persists anything: the run store remains the
// durable source of truth, and progress is advisory, best-effort delivery
// on top of it.
package progress

import (
	"sync"
	"time"

	"dataflowguard/internal/model"
)

const (
	// subscriberBuffer bounds how far a slow subscriber may lag before the
	// bus starts dropping its oldest queued events rather than block the
	// orchestrator.
	subscriberBuffer = 64

	// HeartbeatInterval is how often an idle subscription receives a
	// heartbeat event.
	HeartbeatInterval = 30 * time.Second
)

// subscriber is one open stream for a single run_id.
type subscriber struct {
	ch     chan model.ProgressEvent
	cancel chan struct{}
}

// Bus fans ProgressEvent out to N subscribers per run_id. Publish never
// blocks on subscriber I/O: a full subscriber channel drops its oldest
// queued event to make room for the newest one.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]*subscriber
}

func NewBus() *Bus {
	return &Bus{subs: map[string][]*subscriber{}}
}

// Subscribe registers a new listener for run_id and immediately enqueues
// snapshot as its first event, per the subscribe-sends-current-state
// guarantee. The returned channel is closed when Unsubscribe is called or
// the bus itself emits run_completed for this subscriber.
func (b *Bus) Subscribe(runID string, snapshot model.ProgressEvent) (<-chan model.ProgressEvent, func()) {
	sub := &subscriber{
		ch:     make(chan model.ProgressEvent, subscriberBuffer),
		cancel: make(chan struct{}),
	}
	sub.ch <- snapshot

	b.mu.Lock()
	b.subs[runID] = append(b.subs[runID], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[runID]
		for i, s := range list {
			if s == sub {
				b.subs[runID] = append(list[:i], list[i+1:]...)
				close(s.ch)
				break
			}
		}
		if len(b.subs[runID]) == 0 {
			delete(b.subs, runID)
		}
	}
	return sub.ch, unsubscribe
}

// Publish delivers event to every current subscriber of event.RunID in
// FIFO order. A subscriber whose queue is full has its oldest event
// dropped to make room; the drop is not escalated to the orchestrator.
func (b *Bus) Publish(event model.ProgressEvent) {
	b.mu.Lock()
	subs := append([]*subscriber(nil), b.subs[event.RunID]...)
	terminal := event.Type == model.EventRunCompleted
	if terminal {
		delete(b.subs, event.RunID)
	}
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, event)
		if terminal {
			close(s.ch)
		}
	}
}

func (b *Bus) deliver(s *subscriber, event model.ProgressEvent) {
	select {
	case s.ch <- event:
		return
	default:
	}
	// Queue full: drop the oldest event and retry once.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- event:
	default:
	}
}

// ActiveSubscribers reports how many open streams exist for run_id, for
// heartbeat scheduling and tests.
func (b *Bus) ActiveSubscribers(runID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[runID])
}
