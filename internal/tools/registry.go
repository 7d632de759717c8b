// Package tools implements the Local Tool Registry (C3): a fixed,
// process-local set of callables with JSON-schema argument validation.
//
// The schema-compile-and-cache pattern is grounded on the teacher's
// pkg/pluginsdk/validation.go (a sync.Map keyed by schema text, lazily
// compiled via santhosh-tekuri/jsonschema/v5); the teacher's own
// internal/agent/tool_registry.go has no schema validation at all, so
// that file contributed only the registry's map-and-mutex shape.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// Func is a registered tool's implementation. It receives already
// schema-validated arguments and returns the textual content that goes
// into the ToolResultEnvelope on success.
type Func func(ctx context.Context, args json.RawMessage) (string, error)

type entry struct {
	descriptor models.ToolDescriptor
	fn         Func
	schema     *jsonschema.Schema
}

// Registry is the C3 component: register/lookup/list/execute over an
// in-process map, with per-call timeout enforcement and JSON-schema
// validation of arguments before a tool body ever runs.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	schemaCache sync.Map // schema text -> *jsonschema.Schema

	// DefaultTimeout bounds a call when the caller supplies none.
	DefaultTimeout time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		entries:        map[string]*entry{},
		DefaultTimeout: 30 * time.Second,
	}
}

// Register adds a tool. It eagerly compiles the schema so a bad schema
// fails at startup rather than on first call.
func (r *Registry) Register(desc models.ToolDescriptor, fn Func) error {
	desc.ProviderKind = models.ProviderLocal

	schema, err := r.compileSchema(desc.ParametersSchema)
	if err != nil {
		return errs.Wrap(models.ErrBadArguments, fmt.Errorf("tool %s: invalid parameters schema: %w", desc.Name, err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[desc.Name]; exists {
		return errs.New(models.ErrDuplicateID, fmt.Sprintf("tool %q already registered", desc.Name))
	}
	r.entries[desc.Name] = &entry{descriptor: desc, fn: fn, schema: schema}
	return nil
}

func (r *Registry) compileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	key := string(raw)
	if cached, ok := r.schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	r.schemaCache.Store(key, compiled)
	return compiled, nil
}

// Lookup reports whether name is a registered local tool.
func (r *Registry) Lookup(name string) (models.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return models.ToolDescriptor{}, false
	}
	return e.descriptor, true
}

// List returns every registered tool's descriptor, sorted by name for
// deterministic output.
func (r *Registry) List() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDescriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute validates call.Arguments against the tool's schema, then runs
// the tool body with a timeout. It never returns a Go error: every
// failure, including a cancelled context (reported as Timeout), goes
// through the envelope's OK/ErrorKind fields so the ReAct engine can
// treat every outcome uniformly.
func (r *Registry) Execute(ctx context.Context, call models.ToolCall, timeout time.Duration) models.ToolResultEnvelope {
	start := time.Now()

	r.mu.RLock()
	e, ok := r.entries[call.Name]
	r.mu.RUnlock()
	if !ok {
		return errorEnvelope(call.ID, models.ErrUnknownTool, fmt.Sprintf("unknown tool %q", call.Name), start)
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return errorEnvelope(call.ID, models.ErrBadArguments, fmt.Sprintf("decode arguments: %v", err), start)
	}
	if err := e.schema.Validate(decoded); err != nil {
		return errorEnvelope(call.ID, models.ErrBadArguments, fmt.Sprintf("arguments invalid: %v", err), start)
	}

	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		content string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		content, err := e.fn(callCtx, args)
		done <- result{content: content, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return errorEnvelope(call.ID, models.ErrToolFailure, res.err.Error(), start)
		}
		return models.ToolResultEnvelope{
			CallID:       call.ID,
			OK:           true,
			Content:      res.content,
			DurationMS:   time.Since(start).Milliseconds(),
			ProviderKind: models.ProviderLocal,
		}
	case <-callCtx.Done():
		return errorEnvelope(call.ID, models.ErrTimeout, fmt.Sprintf("tool %q timed out after %s", call.Name, timeout), start)
	}
}

func errorEnvelope(callID string, kind models.ErrorKind, msg string, start time.Time) models.ToolResultEnvelope {
	return models.ToolResultEnvelope{
		CallID:       callID,
		OK:           false,
		Content:      msg,
		ErrorKind:    kind,
		DurationMS:   time.Since(start).Milliseconds(),
		ProviderKind: models.ProviderLocal,
	}
}
