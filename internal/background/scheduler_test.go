package background

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/driftloop/agentrt/pkg/models"
)

type countingEpisode struct {
	calls int32
}

func (e *countingEpisode) Run(ctx context.Context, sessionID string, cfg models.AgentConfig, query string) EpisodeOutcome {
	atomic.AddInt32(&e.calls, 1)
	return EpisodeOutcome{FinalAnswer: "ok"}
}

func TestSchedulerFiresDueAgentAndSkipsNotYetDue(t *testing.T) {
	m := NewManager(nil)
	due := makeImmediateAgent(t, m, newTestConfig("due"))
	m.recordFor(due.AgentID).NextFireAt = time.Now().Add(-time.Minute)

	notDue := newTestConfig("not-due")
	rec2, err := m.CreateAgent(notDue)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m.recordFor(rec2.AgentID).NextFireAt = time.Now().Add(time.Hour)

	ep := &countingEpisode{}
	runner := NewRunner(m, ep)
	sched := NewScheduler(m, runner, 10*time.Millisecond, nil)

	sched.tick(context.Background())
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&ep.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if atomic.LoadInt32(&ep.calls) != 1 {
		t.Fatalf("expected exactly one run dispatched, got %d", ep.calls)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	m := NewManager(nil)
	ep := &countingEpisode{}
	runner := NewRunner(m, ep)
	sched := NewScheduler(m, runner, 5*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		sched.Start(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	sched.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestSchedulerRespectsContextCancellation(t *testing.T) {
	m := NewManager(nil)
	ep := &countingEpisode{}
	runner := NewRunner(m, ep)
	sched := NewScheduler(m, runner, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
