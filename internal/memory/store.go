// Package memory implements the Memory Router (C2): a session-scoped
// ordered message log with token-budget truncation over a pluggable
// backend.
//
// Grounded on the teacher's internal/sessions.MemoryStore
// (internal/sessions/memory.go) for the in-process backend's shape
// (defensive cloning on every read/write, a byKey index, per-session
// message slices) and internal/sessions/compaction.go for the token
// estimator.
package memory

import (
	"context"
	"time"

	"github.com/driftloop/agentrt/pkg/models"
)

// Store is the Memory Router's backend contract (SPEC_FULL.md §6,
// "Memory backend (consumed)").
type Store interface {
	// StoreMessage appends a message, assigning its ID, timestamp, and
	// sequence number. Fails only on backend error.
	StoreMessage(ctx context.Context, sessionID string, role models.Role, content string, metadata map[string]any) (*models.Message, error)

	// GetMessages returns a session's messages in insertion order,
	// optionally filtered by metadata.agent_name, with token-budget
	// truncation applied per the session's MaxContextTokens ceiling (0
	// means unbounded).
	GetMessages(ctx context.Context, sessionID string, agentName string) ([]*models.Message, error)

	// Clear removes all messages for a session.
	Clear(ctx context.Context, sessionID string) error

	// EnsureSession creates the session record on first write if it does
	// not already exist, and returns it either way.
	EnsureSession(ctx context.Context, sessionID string, maxContextTokens int) (*models.Session, error)

	// GetSession returns a session's record, or (nil, false) if it was
	// never written to.
	GetSession(ctx context.Context, sessionID string) (*models.Session, bool)
}

// AsyncStore is the supplemented non-blocking append path (SPEC_FULL.md
// Part C.4): a fire-and-forget wrapper so a slow backend cannot stall a
// background agent's scheduler tick.
type AsyncStore interface {
	Store
	StoreMessageAsync(ctx context.Context, sessionID string, role models.Role, content string, metadata map[string]any) <-chan error
}

// storeMessageAsync is the shared AsyncStore.StoreMessageAsync
// implementation: it runs the synchronous append on its own goroutine and
// hands the caller a channel they are free to ignore. Because the
// synchronous path still takes the store's per-session lock, ordering is
// preserved even though the caller does not wait.
func storeMessageAsync(ctx context.Context, s Store, sessionID string, role models.Role, content string, metadata map[string]any) <-chan error {
	ch := make(chan error, 1)
	go func() {
		_, err := s.StoreMessage(ctx, sessionID, role, content, metadata)
		ch <- err
	}()
	return ch
}

func now() time.Time { return time.Now() }
