// Package events implements the Event Router (C1): a per-session
// broadcast of lifecycle events with bounded, drop-oldest queues.
//
// The teacher's own internal/observability/events.go is a poll-only
// ring buffer with no subscription model, so this package is written
// fresh from SPEC_FULL.md §4.1 and the design note that suggests
// modeling the router as a per-session broadcast channel.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/driftloop/agentrt/pkg/models"
)

// DefaultQueueSize bounds each subscriber's buffered channel. When a
// subscriber falls behind, the router drops the oldest queued event and
// emits a synthetic EventDropped marker in its place rather than
// blocking the publisher.
const DefaultQueueSize = 256

// Backend is the Event Router's persistence/fan-out contract
// (SPEC_FULL.md §4.1, "Backends (both required)"): an in-memory
// broadcast implementation and a durable append-only log.
type Backend interface {
	// Publish appends ev to sessionID's event stream. Router fans it out
	// to live subscribers; Log records it without sending it to existing
	// subscriptions.
	Publish(ctx context.Context, sessionID string, ev *models.Event) error

	// Subscribe returns a channel of events for sessionID plus an
	// unsubscribe func. A Router subscriber only observes events
	// published after Subscribe returns (no replay); a Log subscriber
	// receives the history recorded so far (see Log.Subscribe).
	Subscribe(ctx context.Context, sessionID string) (<-chan *models.Event, func(), error)
}

// Router is the Event Router component: it fans events out per session.
// IDs and timestamps are left to the caller (the ReAct engine and
// background runner stamp their own events); the router assigns an ID
// only to the EventDropped markers it creates.
type Router struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *models.Event
	queueSize   int
}

func NewRouter() *Router {
	return &Router{
		subscribers: map[string]map[string]chan *models.Event{},
		queueSize:   DefaultQueueSize,
	}
}

var _ Backend = (*Router)(nil)

func (r *Router) Publish(ctx context.Context, sessionID string, ev *models.Event) error {
	r.mu.RLock()
	subs := r.subscribers[sessionID]
	// Copy the channel list out before sending so a concurrent
	// Subscribe/unsubscribe cannot race with delivery under the lock.
	chans := make([]chan *models.Event, 0, len(subs))
	for _, ch := range subs {
		chans = append(chans, ch)
	}
	r.mu.RUnlock()

	for _, ch := range chans {
		r.deliver(ch, ev)
	}
	return nil
}

// deliver is a non-blocking send with drop-oldest backpressure: if the
// subscriber's queue is full, the oldest queued event is discarded and
// replaced by an EventDropped marker before the new event is enqueued.
func (r *Router) deliver(ch chan *models.Event, ev *models.Event) {
	select {
	case ch <- ev:
		return
	default:
	}

	select {
	case dropped := <-ch:
		marker := &models.Event{
			ID:        uuid.NewString(),
			Type:      models.EventDropped,
			SessionID: ev.SessionID,
			Timestamp: ev.Timestamp,
			Payload:   map[string]any{"dropped_event_id": dropped.ID, "dropped_event_type": string(dropped.Type)},
		}
		select {
		case ch <- marker:
		default:
		}
	default:
	}

	select {
	case ch <- ev:
	default:
		// Subscriber is gone or the channel filled again between the
		// drop and the retry; give up rather than block the publisher.
	}
}

func (r *Router) Subscribe(ctx context.Context, sessionID string) (<-chan *models.Event, func(), error) {
	id := uuid.NewString()
	ch := make(chan *models.Event, r.queueSize)

	r.mu.Lock()
	if r.subscribers[sessionID] == nil {
		r.subscribers[sessionID] = map[string]chan *models.Event{}
	}
	r.subscribers[sessionID][id] = ch
	r.mu.Unlock()

	// unsubscribe only removes the channel from the fan-out map; it does
	// not close it. A concurrent Publish may already hold a copy of the
	// channel snapshot taken before the removal, so closing here could
	// race a send on a closed channel. The channel is simply abandoned
	// and garbage collected once no goroutine still references it.
	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.subscribers[sessionID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(r.subscribers, sessionID)
			}
		}
	}

	return ch, unsubscribe, nil
}
