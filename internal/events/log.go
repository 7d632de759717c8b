package events

import (
	"context"
	"sync"

	"github.com/driftloop/agentrt/pkg/models"
)

// Log is the durable, append-only event backend required alongside the
// broadcast Router by SPEC_FULL.md §4.1 ("Backends (both required)"). It
// keeps every event ever published per session, in order, so a caller
// that needs history (an audit view, a replay-from-start consumer) can
// read it directly instead of subscribing to the live broadcast.
type Log struct {
	mu      sync.RWMutex
	history map[string][]*models.Event
}

func NewLog() *Log {
	return &Log{history: map[string][]*models.Event{}}
}

var _ Backend = (*Log)(nil)

func (l *Log) Publish(ctx context.Context, sessionID string, ev *models.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[sessionID] = append(l.history[sessionID], ev)
	return nil
}

// Subscribe replays the session's full recorded history onto the
// returned channel. Unlike Router.Subscribe, this backend answers
// SPEC_FULL.md's Open Question about replay affirmatively for callers
// that specifically chose the durable log instead of the live broadcast.
// Only the history recorded at the time of the call is sent: events
// published after Subscribe returns are recorded but not delivered on
// this channel, and the channel is never closed.
func (l *Log) Subscribe(ctx context.Context, sessionID string) (<-chan *models.Event, func(), error) {
	l.mu.RLock()
	snapshot := append([]*models.Event(nil), l.history[sessionID]...)
	l.mu.RUnlock()

	ch := make(chan *models.Event, len(snapshot)+1)
	for _, ev := range snapshot {
		ch <- ev
	}

	done := make(chan struct{})
	unsubscribe := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	return ch, unsubscribe, nil
}

// History returns every event recorded for sessionID, in publish order.
func (l *Log) History(ctx context.Context, sessionID string) []*models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*models.Event(nil), l.history[sessionID]...)
}
