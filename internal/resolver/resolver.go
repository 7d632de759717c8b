// Package resolver implements the Tool Call Resolver (C5): the single
// entry point the ReAct engine calls to execute a tool call, regardless
// of whether it resolves to a local registry entry or a remote
// provider.
//
// Grounded on the teacher's internal/agent.Executor for the
// "try-local-then-remote, normalize the result" shape, but deliberately
// without its retry/backoff: SPEC_FULL.md §4.5 states the resolver is
// stateless beyond the two catalogs it consults, and all retry belongs
// to the background agent layer (internal/background).
package resolver

import (
	"context"
	"time"

	"github.com/driftloop/agentrt/pkg/models"
)

// LocalCatalog is the subset of internal/tools.Registry the resolver
// depends on.
type LocalCatalog interface {
	Lookup(name string) (models.ToolDescriptor, bool)
	Execute(ctx context.Context, call models.ToolCall, timeout time.Duration) models.ToolResultEnvelope
}

// RemoteCatalog is the subset of internal/remotetool.Facade the
// resolver depends on.
type RemoteCatalog interface {
	Lookup(name string) (models.ToolDescriptor, bool)
	Execute(ctx context.Context, call models.ToolCall, timeout time.Duration) models.ToolResultEnvelope
}

// ResultGuard is the supplemented redaction hook (SPEC_FULL.md Part
// C.3): it runs after a tool result is produced and before it is
// returned to the caller, and may rewrite the envelope's content (e.g.
// to redact a secret a tool echoed back). Adapted from the teacher's
// tool_result_guard.go pattern.
type ResultGuard func(call models.ToolCall, env models.ToolResultEnvelope) models.ToolResultEnvelope

// Resolver combines a local and a remote catalog behind one Execute
// call. It holds no per-call state of its own.
type Resolver struct {
	local   LocalCatalog
	remote  RemoteCatalog
	guard   ResultGuard
	timeout time.Duration
}

func New(local LocalCatalog, remote RemoteCatalog) *Resolver {
	return &Resolver{local: local, remote: remote, timeout: 30 * time.Second}
}

// WithTimeout sets the per-call timeout passed to whichever catalog
// resolves the call.
func (r *Resolver) WithTimeout(d time.Duration) *Resolver {
	r.timeout = d
	return r
}

// WithResultGuard installs a redaction hook applied to every result
// before it is returned.
func (r *Resolver) WithResultGuard(g ResultGuard) *Resolver {
	r.guard = g
	return r
}

// Execute tries the local registry first, then the remote facade, and
// returns UnknownTool if neither recognizes the call's name.
func (r *Resolver) Execute(ctx context.Context, call models.ToolCall) models.ToolResultEnvelope {
	var env models.ToolResultEnvelope

	if r.local != nil {
		if _, ok := r.local.Lookup(call.Name); ok {
			env = r.local.Execute(ctx, call, r.timeout)
			return r.applyGuard(call, env)
		}
	}

	if r.remote != nil {
		if _, ok := r.remote.Lookup(call.Name); ok {
			env = r.remote.Execute(ctx, call, r.timeout)
			return r.applyGuard(call, env)
		}
	}

	env = models.ToolResultEnvelope{
		CallID:    call.ID,
		OK:        false,
		Content:   "no local or remote tool named " + call.Name,
		ErrorKind: models.ErrUnknownTool,
	}
	return r.applyGuard(call, env)
}

// Describe returns every tool the resolver can currently reach, local
// tools first, for presentation to the LLM client as the tools hint.
func (r *Resolver) Describe() []models.ToolDescriptor {
	var out []models.ToolDescriptor
	if lister, ok := r.local.(interface{ List() []models.ToolDescriptor }); ok {
		out = append(out, lister.List()...)
	}
	if lister, ok := r.remote.(interface{ List() []models.ToolDescriptor }); ok {
		out = append(out, lister.List()...)
	}
	return out
}

func (r *Resolver) applyGuard(call models.ToolCall, env models.ToolResultEnvelope) models.ToolResultEnvelope {
	if r.guard == nil {
		return env
	}
	return r.guard(call, env)
}
