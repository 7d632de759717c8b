// Package background implements the Background Agent Manager,
// Scheduler, and Runner (C7-C9): creation/control of long-lived agent
// records, a non-blocking tick loop that fires due agents, and a
// per-agent non-reentrant execution with fixed-delay retry.
//
// Grounded on the teacher's internal/tasks package (scheduler.go for
// the tick-loop/cron-parsing shape, executor.go for the
// logger-and-session wiring pattern), adapted from its distributed,
// SELECT-FOR-UPDATE multi-worker model down to SPEC_FULL.md §5's
// explicit single-process, multi-tasked model: there is no lock table,
// only an in-process per-agent mutex.
package background

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// cronParser mirrors the teacher's tasks.cronParser: standard 5-field
// expressions plus an optional leading seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// DefaultRunHistory bounds the supplemented RunRecord list kept per
// agent (SPEC_FULL.md Part C.2).
const DefaultRunHistory = 20

// runLock is the non-reentrant, try-lock guard: a RunOnce that finds the
// lock already held skips the agent rather than blocking. The skip is
// only logged at debug level; no SkippedBusy event is published, as the
// Manager holds no event backend.
type runLock struct {
	mu sync.Mutex
}

func (l *runLock) tryLock() bool { return l.mu.TryLock() }
func (l *runLock) unlock()       { l.mu.Unlock() }

// Manager owns every AgentRecord and its run-lock. It is the only
// component permitted to mutate a record; the Scheduler and Runner
// both go through its methods.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*models.AgentRecord
	locks  map[string]*runLock
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		agents: map[string]*models.AgentRecord{},
		locks:  map[string]*runLock{},
		logger: logger.With("component", "background-manager"),
	}
}

// CreateAgent registers a new agent record in the pending state and
// computes its first fire time.
func (m *Manager) CreateAgent(cfg models.AgentConfig) (*models.AgentRecord, error) {
	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}
	if cfg.IntervalSeconds > 0 && cfg.Schedule != "" {
		return nil, errs.New(models.ErrBadArguments, "interval_seconds and schedule are mutually exclusive")
	}
	if cfg.IntervalSeconds <= 0 && cfg.Schedule == "" {
		return nil, errs.New(models.ErrBadArguments, "one of interval_seconds or schedule is required")
	}
	if cfg.Schedule != "" {
		if _, err := cronParser.Parse(cfg.Schedule); err != nil {
			return nil, errs.Wrap(models.ErrBadArguments, fmt.Errorf("invalid schedule: %w", err))
		}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelaySeconds <= 0 {
		cfg.RetryDelaySeconds = 5
	}
	if cfg.Limits.MaxSteps <= 0 {
		cfg.Limits = models.DefaultLimits()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.agents[cfg.AgentID]; exists {
		return nil, errs.New(models.ErrDuplicateID, fmt.Sprintf("agent %q already exists", cfg.AgentID))
	}

	now := time.Now()
	rec := &models.AgentRecord{
		AgentID:           cfg.AgentID,
		SessionID:         "background:" + cfg.AgentID,
		SystemInstruction: cfg.SystemInstruction,
		ModelConfig:       cfg.ModelConfig,
		TaskConfig:        cfg.TaskConfig,
		Limits:            cfg.Limits,
		IntervalSeconds:   cfg.IntervalSeconds,
		Schedule:          cfg.Schedule,
		MaxRetries:        cfg.MaxRetries,
		RetryDelaySeconds: cfg.RetryDelaySeconds,
		State:             models.AgentPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	rec.NextFireAt = nextFireAt(rec, now)

	m.agents[rec.AgentID] = rec
	m.locks[rec.AgentID] = &runLock{}
	m.logger.Info("agent created", "agent_id", rec.AgentID, "next_fire_at", rec.NextFireAt)
	return cloneRecord(rec), nil
}

// UpdateConfig rewrites the mutable fields of an existing agent. Per
// DESIGN.md's open-question resolution, a change takes effect on the
// next scheduled fire, never on a tick already in flight: this method
// never touches NextFireAt for a record whose run-lock is currently
// held, and recomputes it from "now" only when the agent is idle.
func (m *Manager) UpdateConfig(agentID string, cfg models.AgentConfig) (*models.AgentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.agents[agentID]
	if !ok {
		return nil, errs.New(models.ErrNotFound, fmt.Sprintf("agent %q not found", agentID))
	}
	if cfg.IntervalSeconds > 0 && cfg.Schedule != "" {
		return nil, errs.New(models.ErrBadArguments, "interval_seconds and schedule are mutually exclusive")
	}

	if cfg.SystemInstruction != "" {
		rec.SystemInstruction = cfg.SystemInstruction
	}
	if cfg.ModelConfig.Model != "" {
		rec.ModelConfig = cfg.ModelConfig
	}
	if cfg.TaskConfig.Query != "" {
		rec.TaskConfig = cfg.TaskConfig
	}
	if cfg.Limits.MaxSteps > 0 {
		rec.Limits = cfg.Limits
	}
	if cfg.IntervalSeconds > 0 {
		rec.IntervalSeconds = cfg.IntervalSeconds
		rec.Schedule = ""
	}
	if cfg.Schedule != "" {
		if _, err := cronParser.Parse(cfg.Schedule); err != nil {
			return nil, errs.Wrap(models.ErrBadArguments, fmt.Errorf("invalid schedule: %w", err))
		}
		rec.Schedule = cfg.Schedule
		rec.IntervalSeconds = 0
	}
	if cfg.MaxRetries > 0 {
		rec.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelaySeconds > 0 {
		rec.RetryDelaySeconds = cfg.RetryDelaySeconds
	}
	rec.UpdatedAt = time.Now()

	if lock, ok := m.locks[agentID]; ok && lock.tryLock() {
		rec.NextFireAt = nextFireAt(rec, time.Now())
		lock.unlock()
	}

	return cloneRecord(rec), nil
}

// Pause requests that a running or pending agent stop firing. If the
// agent is mid-run, the pause takes effect when that run completes
// (PauseRequested), never interrupting work already in flight.
func (m *Manager) Pause(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return errs.New(models.ErrNotFound, fmt.Sprintf("agent %q not found", agentID))
	}
	if rec.State == models.AgentRunning {
		rec.PauseRequested = true
		return nil
	}
	rec.State = models.AgentPaused
	rec.UpdatedAt = time.Now()
	return nil
}

// Resume clears a paused agent back to pending and recomputes its next
// fire time from now.
func (m *Manager) Resume(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return errs.New(models.ErrNotFound, fmt.Sprintf("agent %q not found", agentID))
	}
	rec.PauseRequested = false
	rec.State = models.AgentPending
	rec.NextFireAt = nextFireAt(rec, time.Now())
	rec.UpdatedAt = time.Now()
	return nil
}

// DeleteAgent removes an agent's record. If it is currently running,
// the delete is cooperative: the record is marked Deleted so the
// running goroutine stops continuing retries, and endRun purges it
// from the manager once the run-lock is released. Otherwise the
// record (and its lock) are purged immediately, so a subsequent
// Status/List call reports ErrNotFound per §4.9/§8 S6.
func (m *Manager) DeleteAgent(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return errs.New(models.ErrNotFound, fmt.Sprintf("agent %q not found", agentID))
	}
	if rec.State == models.AgentRunning {
		rec.State = models.AgentDeleted
		rec.UpdatedAt = time.Now()
		return nil
	}
	delete(m.agents, agentID)
	delete(m.locks, agentID)
	return nil
}

func (m *Manager) Status(agentID string) (models.AgentStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return models.AgentStatus{}, errs.New(models.ErrNotFound, fmt.Sprintf("agent %q not found", agentID))
	}
	return statusFromRecord(rec), nil
}

func (m *Manager) List() []models.AgentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AgentStatus, 0, len(m.agents))
	for _, rec := range m.agents {
		out = append(out, statusFromRecord(rec))
	}
	return out
}

// dueAgents returns (and its caller's Scheduler relies on) every agent
// whose NextFireAt has arrived and whose state allows a run.
func (m *Manager) dueAgents(now time.Time) []*models.AgentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*models.AgentRecord
	for _, rec := range m.agents {
		if rec.State == models.AgentDeleted || rec.State == models.AgentPaused {
			continue
		}
		if rec.State == models.AgentRunning {
			continue
		}
		if !rec.NextFireAt.IsZero() && now.Before(rec.NextFireAt) {
			continue
		}
		due = append(due, rec)
	}
	return due
}

func (m *Manager) lockFor(agentID string) *runLock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locks[agentID]
}

func (m *Manager) recordFor(agentID string) *models.AgentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agents[agentID]
}

// beginRun transitions an agent to running and returns its live record
// for the Runner to read configuration from. Callers must already hold
// the agent's run-lock.
func (m *Manager) beginRun(agentID string) *models.AgentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return nil
	}
	rec.State = models.AgentRunning
	rec.UpdatedAt = time.Now()
	return rec
}

// endRun records one run's outcome, advances run_count/error_count,
// appends a bounded RunRecord, and transitions the agent out of
// running: to deleted if a delete arrived mid-run, to paused if a
// pause was requested mid-run, otherwise to idle with a recomputed
// NextFireAt.
func (m *Manager) endRun(agentID string, run models.RunRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return
	}

	rec.RunCount++
	if !run.OK {
		rec.ErrorCount++
		rec.LastError = run.Message
	} else {
		rec.LastError = ""
	}
	t := run.FinishedAt
	rec.LastRunAt = &t
	rec.History = append(rec.History, run)
	if len(rec.History) > DefaultRunHistory {
		rec.History = rec.History[len(rec.History)-DefaultRunHistory:]
	}

	switch {
	case rec.State == models.AgentDeleted:
		// A delete arrived mid-run; the run-lock is free now, so purge
		// the record per §4.9's "remove record after run-lock releases".
		delete(m.agents, agentID)
		delete(m.locks, agentID)
		return
	case rec.PauseRequested:
		rec.PauseRequested = false
		rec.State = models.AgentPaused
	default:
		rec.State = models.AgentIdle
		rec.NextFireAt = nextFireAt(rec, time.Now())
	}
	rec.UpdatedAt = time.Now()
}

func nextFireAt(rec *models.AgentRecord, from time.Time) time.Time {
	if rec.Schedule != "" {
		sched, err := cronParser.Parse(rec.Schedule)
		if err != nil {
			return from
		}
		return sched.Next(from)
	}
	interval := rec.IntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	return from.Add(time.Duration(interval) * time.Second)
}

func statusFromRecord(rec *models.AgentRecord) models.AgentStatus {
	return models.AgentStatus{
		AgentID:    rec.AgentID,
		State:      rec.State,
		RunCount:   rec.RunCount,
		ErrorCount: rec.ErrorCount,
		LastRunAt:  rec.LastRunAt,
		LastError:  rec.LastError,
		History:    append([]models.RunRecord(nil), rec.History...),
	}
}

func cloneRecord(rec *models.AgentRecord) *models.AgentRecord {
	clone := *rec
	clone.History = append([]models.RunRecord(nil), rec.History...)
	return &clone
}
