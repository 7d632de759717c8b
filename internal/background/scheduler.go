package background

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler ticks on a fixed interval, asking the Manager which agents
// are due and handing each one to the Runner without blocking on any
// single agent — a run-lock miss is a skip, not a wait, matching
// SPEC_FULL.md §4.8 (a tick never waits on a running job).
type Scheduler struct {
	manager      *Manager
	runner       *Runner
	tickInterval time.Duration
	logger       *slog.Logger

	stop chan struct{}
	done chan struct{}
}

// DefaultTickInterval is how often the scheduler polls for due agents.
// Grounded on the teacher's tasks.DefaultSchedulerConfig.PollInterval,
// scaled down because this scheduler has no distributed lock table to
// amortize polling cost against.
const DefaultTickInterval = time.Second

func NewScheduler(manager *Manager, runner *Runner, tickInterval time.Duration, logger *slog.Logger) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		manager:      manager,
		runner:       runner,
		tickInterval: tickInterval,
		logger:       logger.With("component", "scheduler"),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx is cancelled.
// Each due agent is dispatched onto its own goroutine so a slow agent
// never delays the next tick's scan of the others.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due := s.manager.dueAgents(time.Now())
	for _, rec := range due {
		agentID := rec.AgentID
		go func() {
			s.runner.RunOnce(ctx, agentID)
		}()
	}
}

// Stop requests the tick loop to exit and waits for it to do so.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}
