package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// InProcessStore is the in-memory Store backend, the default for the
// foreground ReAct engine and for tests. Adapted from the teacher's
// sessions.MemoryStore: a mutex-guarded map of sessions plus a map of
// per-session message slices, with defensive copies returned on every
// read so callers can never mutate shared state through a returned
// pointer.
type InProcessStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	messages map[string][]*models.Message
	nextSeq  uint64
}

// NewInProcessStore constructs an empty in-process store.
func NewInProcessStore() *InProcessStore {
	return &InProcessStore{
		sessions: map[string]*models.Session{},
		messages: map[string][]*models.Message{},
	}
}

var _ AsyncStore = (*InProcessStore)(nil)

func (s *InProcessStore) EnsureSession(ctx context.Context, sessionID string, maxContextTokens int) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureSessionLocked(sessionID, maxContextTokens)
}

func (s *InProcessStore) ensureSessionLocked(sessionID string, maxContextTokens int) (*models.Session, error) {
	if sess, ok := s.sessions[sessionID]; ok {
		return cloneSession(sess), nil
	}
	t := now()
	sess := &models.Session{
		ID:               sessionID,
		MaxContextTokens: maxContextTokens,
		CreatedAt:        t,
		UpdatedAt:        t,
	}
	s.sessions[sessionID] = sess
	return cloneSession(sess), nil
}

func (s *InProcessStore) GetSession(ctx context.Context, sessionID string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return cloneSession(sess), true
}

func (s *InProcessStore) StoreMessage(ctx context.Context, sessionID string, role models.Role, content string, metadata map[string]any) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(models.ErrCancelled, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ensureSessionLocked(sessionID, 0); err != nil {
		return nil, err
	}

	s.nextSeq++
	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  deepCloneMap(metadata),
		CreatedAt: now(),
	}
	msg.SetSeq(s.nextSeq)
	s.messages[sessionID] = append(s.messages[sessionID], msg)

	if sess := s.sessions[sessionID]; sess != nil {
		sess.UpdatedAt = msg.CreatedAt
	}

	return cloneMessage(msg), nil
}

func (s *InProcessStore) StoreMessageAsync(ctx context.Context, sessionID string, role models.Role, content string, metadata map[string]any) <-chan error {
	return storeMessageAsync(ctx, s, sessionID, role, content, metadata)
}

func (s *InProcessStore) GetMessages(ctx context.Context, sessionID string, agentName string) ([]*models.Message, error) {
	s.mu.RLock()
	all := s.messages[sessionID]
	sess := s.sessions[sessionID]
	out := make([]*models.Message, 0, len(all))
	for _, m := range all {
		if agentName != "" {
			if got, _ := m.Metadata["agent_name"].(string); got != agentName {
				continue
			}
		}
		out = append(out, cloneMessage(m))
	}
	ceiling := 0
	if sess != nil {
		ceiling = sess.MaxContextTokens
	}
	s.mu.RUnlock()

	return Truncate(out, ceiling), nil
}

func (s *InProcessStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}

func deepCloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSession(sess *models.Session) *models.Session {
	if sess == nil {
		return nil
	}
	clone := *sess
	clone.Metadata = deepCloneMap(sess.Metadata)
	return &clone
}

func cloneMessage(msg *models.Message) *models.Message {
	if msg == nil {
		return nil
	}
	clone := *msg
	clone.Metadata = deepCloneMap(msg.Metadata)
	clone.SetSeq(msg.Seq())
	return &clone
}
