// Package remotetool implements the Remote Tool Facade (C4): discovery
// and dispatch across one or more already-established remote tool
// providers, aggregated behind a single name space.
//
// Grounded on the teacher's internal/mcp.Manager for the
// multi-provider aggregation shape (a map of providers, a FindTool
// that scans each one), generalized because the teacher's FindTool
// returns the first match on a name collision rather than
// disambiguating, and because the teacher's Manager is wired directly
// to the MCP/JSON-RPC wire protocol, which this package deliberately
// does not speak — a Provider here represents any already-connected
// remote tool source, and how that connection was established is out
// of this package's scope.
package remotetool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// Provider is a single remote tool source, already connected. CallTool
// is expected to apply its own transport-level timeout; the facade adds
// no retry on top of it, matching SPEC_FULL.md §4.4/§4.5's
// stateless-resolver requirement.
type Provider interface {
	ID() string
	ListTools(ctx context.Context) ([]models.ToolDescriptor, error)
	CallTool(ctx context.Context, call models.ToolCall) (string, error)
}

// Facade aggregates providers behind one discover/list/execute surface.
type Facade struct {
	mu        sync.RWMutex
	providers map[string]Provider

	// catalog holds the most recent ListTools results keyed by tool
	// name: every tool under "name@providerID", plus its bare name for
	// the first provider that lists it. Rebuilt on Discover.
	catalog    map[string]catalogEntry
	collisions map[string]bool
}

type catalogEntry struct {
	descriptor models.ToolDescriptor
	providerID string
}

func NewFacade() *Facade {
	return &Facade{
		providers: map[string]Provider{},
		catalog:   map[string]catalogEntry{},
	}
}

func (f *Facade) AddProvider(p Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[p.ID()] = p
}

func (f *Facade) RemoveProvider(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.providers, id)
}

// Discover refreshes the aggregated catalog by listing every provider's
// tools. When two providers expose the same tool name, both entries are
// kept under disambiguated names of the form "name@providerID"; the
// bare name then resolves to the provider whose ID sorts first, since
// providers are listed in provider-ID order.
func (f *Facade) Discover(ctx context.Context) error {
	f.mu.RLock()
	providers := make([]Provider, 0, len(f.providers))
	for _, p := range f.providers {
		providers = append(providers, p)
	}
	f.mu.RUnlock()

	sort.Slice(providers, func(i, j int) bool { return providers[i].ID() < providers[j].ID() })

	seen := map[string]string{} // bare name -> first provider ID
	catalog := map[string]catalogEntry{}
	collisions := map[string]bool{}

	for _, p := range providers {
		descs, err := p.ListTools(ctx)
		if err != nil {
			return errs.Wrap(models.ErrProviderError, fmt.Errorf("provider %s: %w", p.ID(), err))
		}
		for _, d := range descs {
			d.ProviderKind = models.ProviderRemote
			d.RemoteProviderID = p.ID()
			d.RemoteToolName = d.Name

			qualified := fmt.Sprintf("%s@%s", d.Name, p.ID())
			catalog[qualified] = catalogEntry{descriptor: d, providerID: p.ID()}

			if first, ok := seen[d.Name]; ok && first != p.ID() {
				collisions[d.Name] = true
			} else if !ok {
				seen[d.Name] = p.ID()
				catalog[d.Name] = catalogEntry{descriptor: d, providerID: p.ID()}
			}
		}
	}

	f.mu.Lock()
	f.catalog = catalog
	f.collisions = collisions
	f.mu.Unlock()
	return nil
}

// List returns the aggregated, disambiguated tool catalog.
func (f *Facade) List() []models.ToolDescriptor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.ToolDescriptor, 0, len(f.catalog))
	for _, e := range f.catalog {
		out = append(out, e.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup reports whether name (bare or "name@providerID") resolves in
// the current catalog.
func (f *Facade) Lookup(name string) (models.ToolDescriptor, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.catalog[name]
	if !ok {
		return models.ToolDescriptor{}, false
	}
	return e.descriptor, true
}

// Execute dispatches call.Name to whichever provider the catalog routes
// it to, rewriting the call's Name to the provider's own tool name
// before sending. The facade adds no retry; a provider error surfaces
// as ErrProviderError.
func (f *Facade) Execute(ctx context.Context, call models.ToolCall, timeout time.Duration) models.ToolResultEnvelope {
	start := time.Now()

	f.mu.RLock()
	entry, ok := f.catalog[call.Name]
	var provider Provider
	if ok {
		provider = f.providers[entry.providerID]
	}
	f.mu.RUnlock()

	if !ok || provider == nil {
		return models.ToolResultEnvelope{
			CallID:       call.ID,
			OK:           false,
			Content:      fmt.Sprintf("unknown remote tool %q", call.Name),
			ErrorKind:    models.ErrUnknownTool,
			DurationMS:   time.Since(start).Milliseconds(),
			ProviderKind: models.ProviderRemote,
		}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dispatched := call
	dispatched.Name = entry.descriptor.RemoteToolName

	content, err := provider.CallTool(callCtx, dispatched)
	if err != nil {
		kind := models.ErrProviderError
		if callCtx.Err() != nil {
			kind = models.ErrTimeout
		}
		return models.ToolResultEnvelope{
			CallID:       call.ID,
			OK:           false,
			Content:      err.Error(),
			ErrorKind:    kind,
			DurationMS:   time.Since(start).Milliseconds(),
			ProviderKind: models.ProviderRemote,
		}
	}

	return models.ToolResultEnvelope{
		CallID:       call.ID,
		OK:           true,
		Content:      content,
		DurationMS:   time.Since(start).Milliseconds(),
		ProviderKind: models.ProviderRemote,
	}
}
