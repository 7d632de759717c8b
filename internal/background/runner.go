package background

import (
	"context"
	"time"

	"github.com/driftloop/agentrt/internal/backoff"
	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// Episode is the subset of internal/react.Engine the Runner depends
// on: run one ReAct episode and report how it went.
type Episode interface {
	Run(ctx context.Context, sessionID string, cfg models.AgentConfig, query string) EpisodeOutcome
}

// EpisodeOutcome mirrors react.Outcome without importing that package
// directly, keeping internal/background free of a dependency on
// internal/react (the Runner only needs the shape, not the engine).
type EpisodeOutcome struct {
	FinalAnswer string
	Err         error
}

// Runner executes one due agent: up to MaxRetries+1 attempts with a
// fixed delay between them (SPEC_FULL.md §9: "a fixed delay between
// attempts is sufficient; exponential backoff is an optional
// enhancement"), cooperatively checking for a delete between attempts.
type Runner struct {
	manager *Manager
	episode Episode

	// backoffPolicy, when set, replaces the fixed RetryDelaySeconds wait
	// between attempts with an exponentially increasing one. Nil means
	// fixed-delay, the spec's default.
	backoffPolicy *backoff.BackoffPolicy
}

func NewRunner(manager *Manager, episode Episode) *Runner {
	return &Runner{manager: manager, episode: episode}
}

// WithBackoffPolicy opts a Runner into exponential-backoff retry delays
// instead of the default fixed delay.
func (r *Runner) WithBackoffPolicy(policy backoff.BackoffPolicy) *Runner {
	r.backoffPolicy = &policy
	return r
}

func (r *Runner) retryDelay(rec *models.AgentRecord, attempt int) time.Duration {
	if r.backoffPolicy != nil {
		return backoff.ComputeBackoff(*r.backoffPolicy, attempt)
	}
	return time.Duration(rec.RetryDelaySeconds) * time.Second
}

// RunOnce executes agentID's configured task once, retrying on failure
// up to rec.MaxRetries additional times. If the agent is unknown or its
// run-lock is already held it returns without running. Otherwise it
// calls endRun exactly once, recording only the final attempt as one
// entry in the bounded RunRecord history.
func (r *Runner) RunOnce(ctx context.Context, agentID string) {
	lock := r.manager.lockFor(agentID)
	if lock == nil {
		return
	}
	if !lock.tryLock() {
		r.manager.logger.Debug("skipping agent, run-lock held", "agent_id", agentID)
		return
	}
	defer lock.unlock()

	rec := r.manager.beginRun(agentID)
	if rec == nil {
		return
	}

	attempts := rec.MaxRetries + 1

	var last models.RunRecord
	for attempt := 1; attempt <= attempts; attempt++ {
		if r.manager.recordFor(agentID).State == models.AgentDeleted {
			last = models.RunRecord{Attempt: attempt, StartedAt: time.Now(), FinishedAt: time.Now(), OK: false, ErrorKind: models.ErrCancelled, Message: "agent deleted before attempt"}
			break
		}

		started := time.Now()
		outcome := r.episode.Run(ctx, rec.SessionID, models.AgentConfig{
			AgentID:           rec.AgentID,
			SystemInstruction: rec.SystemInstruction,
			ModelConfig:       rec.ModelConfig,
			TaskConfig:        rec.TaskConfig,
			Limits:            rec.Limits,
		}, rec.TaskConfig.Query)
		finished := time.Now()

		if outcome.Err == nil {
			last = models.RunRecord{Attempt: attempt, StartedAt: started, FinishedAt: finished, OK: true, Message: outcome.FinalAnswer}
			break
		}

		kind, _ := errs.KindOf(outcome.Err)
		last = models.RunRecord{Attempt: attempt, StartedAt: started, FinishedAt: finished, OK: false, ErrorKind: kind, Message: outcome.Err.Error()}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			last.Message = "context cancelled during retry delay"
			attempt = attempts
		case <-time.After(r.retryDelay(rec, attempt)):
		}
	}

	r.manager.endRun(agentID, last)
}
