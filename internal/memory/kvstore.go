package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// KV is the minimal remote key/value capability the Memory Router needs:
// a namespaced byte-slice store. A real deployment backs this with
// whatever remote KV the operator runs (Redis, etcd, a managed
// document store); this package only depends on the interface, matching
// SPEC_FULL.md §6's "memory backend (consumed)" contract and keeping the
// concrete remote client a pluggable concern exactly as §4.2 requires
// ("additional... backends are permitted but must preserve the
// ordered-log contract").
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KVStore is the remote-backend Store implementation: every session's
// message log and session record round-trip through JSON blobs under a
// key, rather than being held as live Go values. This is the seam where
// append is serialized per session (via a per-session lock map, the same
// pattern the teacher uses for sessionLocks in internal/agent's
// tool_registry.go) even though the underlying KV client itself may be a
// remote round trip.
type KVStore struct {
	kv KV

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKVStore wraps a KV client as a Memory Router backend.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv, locks: map[string]*sync.Mutex{}}
}

var _ AsyncStore = (*KVStore)(nil)

func (s *KVStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func sessionKey(id string) string  { return "session:" + id }
func messagesKey(id string) string { return "messages:" + id }

type kvEnvelope struct {
	Session  *models.Session   `json:"session"`
	Messages []*models.Message `json:"messages"`
	NextSeq  uint64            `json:"next_seq"`
}

func (s *KVStore) load(ctx context.Context, sessionID string) (*kvEnvelope, error) {
	raw, ok, err := s.kv.Get(ctx, messagesKey(sessionID))
	if err != nil {
		return nil, errs.Wrap(models.ErrBackendUnavail, err)
	}
	if !ok {
		return &kvEnvelope{}, nil
	}
	var env kvEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.Wrap(models.ErrBackendUnavail, fmt.Errorf("decode session %s: %w", sessionID, err))
	}
	return &env, nil
}

func (s *KVStore) save(ctx context.Context, sessionID string, env *kvEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(models.ErrBackendUnavail, err)
	}
	if err := s.kv.Put(ctx, messagesKey(sessionID), raw); err != nil {
		return errs.Wrap(models.ErrBackendUnavail, err)
	}
	return nil
}

func (s *KVStore) EnsureSession(ctx context.Context, sessionID string, maxContextTokens int) (*models.Session, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	env, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if env.Session != nil {
		return env.Session, nil
	}
	t := now()
	env.Session = &models.Session{ID: sessionID, MaxContextTokens: maxContextTokens, CreatedAt: t, UpdatedAt: t}
	if err := s.save(ctx, sessionID, env); err != nil {
		return nil, err
	}
	return env.Session, nil
}

func (s *KVStore) GetSession(ctx context.Context, sessionID string) (*models.Session, bool) {
	env, err := s.load(ctx, sessionID)
	if err != nil || env.Session == nil {
		return nil, false
	}
	return env.Session, true
}

func (s *KVStore) StoreMessage(ctx context.Context, sessionID string, role models.Role, content string, metadata map[string]any) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(models.ErrCancelled, err)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	env, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if env.Session == nil {
		t := now()
		env.Session = &models.Session{ID: sessionID, CreatedAt: t, UpdatedAt: t}
	}

	env.NextSeq++
	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now(),
	}
	msg.SetSeq(env.NextSeq)
	env.Messages = append(env.Messages, msg)
	env.Session.UpdatedAt = msg.CreatedAt

	if err := s.save(ctx, sessionID, env); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *KVStore) StoreMessageAsync(ctx context.Context, sessionID string, role models.Role, content string, metadata map[string]any) <-chan error {
	return storeMessageAsync(ctx, s, sessionID, role, content, metadata)
}

func (s *KVStore) GetMessages(ctx context.Context, sessionID string, agentName string) ([]*models.Message, error) {
	env, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(env.Messages, func(i, j int) bool { return env.Messages[i].Seq() < env.Messages[j].Seq() })

	out := make([]*models.Message, 0, len(env.Messages))
	for _, m := range env.Messages {
		if agentName != "" {
			if got, _ := m.Metadata["agent_name"].(string); got != agentName {
				continue
			}
		}
		out = append(out, m)
	}
	ceiling := 0
	if env.Session != nil {
		ceiling = env.Session.MaxContextTokens
	}
	return Truncate(out, ceiling), nil
}

func (s *KVStore) Clear(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	if err := s.kv.Delete(ctx, messagesKey(sessionID)); err != nil {
		return errs.Wrap(models.ErrBackendUnavail, err)
	}
	return nil
}

// InProcessKV is a trivial KV implementation used in tests and for local
// runs that want the KVStore code path exercised without a real remote
// dependency.
type InProcessKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInProcessKV() *InProcessKV { return &InProcessKV{data: map[string][]byte{}} }

func (k *InProcessKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	return v, ok, nil
}

func (k *InProcessKV) Put(ctx context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *InProcessKV) Delete(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

var _ KV = (*InProcessKV)(nil)
