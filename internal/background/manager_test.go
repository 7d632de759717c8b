package background

import (
	"testing"
	"time"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

func newTestConfig(id string) models.AgentConfig {
	return models.AgentConfig{
		AgentID:           id,
		TaskConfig:        models.TaskConfig{Query: "check status"},
		IntervalSeconds:   60,
		MaxRetries:        1,
		RetryDelaySeconds: 1,
	}
}

func TestCreateAgentRejectsBothTriggers(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	cfg.Schedule = "*/5 * * * *"
	if _, err := m.CreateAgent(cfg); err == nil {
		t.Fatal("expected error when both interval_seconds and schedule are set")
	}
}

func TestCreateAgentRequiresATrigger(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	cfg.IntervalSeconds = 0
	if _, err := m.CreateAgent(cfg); err == nil {
		t.Fatal("expected error when no trigger is set")
	}
}

func TestCreateAgentDuplicateID(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	if _, err := m.CreateAgent(cfg); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateAgent(cfg); err == nil {
		t.Fatal("expected duplicate-id error")
	}
}

func TestPauseDuringRunDefersToAfterRun(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	rec, err := m.CreateAgent(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m.beginRun(rec.AgentID)
	if err := m.Pause(rec.AgentID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	status, err := m.Status(rec.AgentID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != models.AgentRunning {
		t.Fatalf("state should still be running mid-flight, got %s", status.State)
	}

	m.endRun(rec.AgentID, models.RunRecord{OK: true, FinishedAt: time.Now()})

	status, err = m.Status(rec.AgentID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != models.AgentPaused {
		t.Fatalf("expected paused after run ended, got %s", status.State)
	}
}

func TestDeleteDuringRunPurgesOnceLockReleases(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	rec, err := m.CreateAgent(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m.beginRun(rec.AgentID)
	if err := m.DeleteAgent(rec.AgentID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Still mid-run: the record is cooperatively marked deleted but not
	// yet purged, so it remains visible until the run-lock releases.
	status, err := m.Status(rec.AgentID)
	if err != nil {
		t.Fatalf("status during run: %v", err)
	}
	if status.State != models.AgentDeleted {
		t.Fatalf("expected deleted mid-run, got %s", status.State)
	}

	m.endRun(rec.AgentID, models.RunRecord{OK: true, FinishedAt: time.Now()})

	if _, err := m.Status(rec.AgentID); !errs.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not-found after run-lock released, got %v", err)
	}
}

func TestDeleteNotRunningPurgesImmediately(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	rec, err := m.CreateAgent(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.DeleteAgent(rec.AgentID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := m.Status(rec.AgentID); !errs.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := m.DeleteAgent(rec.AgentID); !errs.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not-found on double delete, got %v", err)
	}
}

func TestRunHistoryIsBounded(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	rec, err := m.CreateAgent(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < DefaultRunHistory+5; i++ {
		m.endRun(rec.AgentID, models.RunRecord{OK: true, FinishedAt: time.Now()})
	}

	status, err := m.Status(rec.AgentID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.History) != DefaultRunHistory {
		t.Fatalf("got %d history entries, want %d", len(status.History), DefaultRunHistory)
	}
	if status.RunCount != int64(DefaultRunHistory+5) {
		t.Fatalf("got run count %d", status.RunCount)
	}
}

func TestUpdateConfigDoesNotTouchInFlightNextFireAt(t *testing.T) {
	m := NewManager(nil)
	cfg := newTestConfig("a1")
	rec, err := m.CreateAgent(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	original := rec.NextFireAt

	lock := m.lockFor(rec.AgentID)
	lock.tryLock() // simulate a tick currently in flight

	updated, err := m.UpdateConfig(rec.AgentID, models.AgentConfig{IntervalSeconds: 5})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.NextFireAt.Equal(original) {
		t.Fatalf("NextFireAt should be untouched while the run-lock is held: got %v, want %v", updated.NextFireAt, original)
	}
	lock.unlock()
}
