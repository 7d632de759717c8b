package react

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/internal/events"
	"github.com/driftloop/agentrt/internal/memory"
	"github.com/driftloop/agentrt/internal/metrics"
	"github.com/driftloop/agentrt/internal/tracing"
	"github.com/driftloop/agentrt/pkg/models"
)

// LLM is the subset of internal/llm.Client the engine depends on.
type LLM interface {
	Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error)
}

// Resolver is the subset of internal/resolver.Resolver the engine
// depends on.
type Resolver interface {
	Execute(ctx context.Context, call models.ToolCall) models.ToolResultEnvelope
	Describe() []models.ToolDescriptor
}

// Outcome is what one episode produces.
type Outcome struct {
	FinalAnswer string
	Steps       int
	Requests    int
	TokensUsed  int
	Err         error
}

// Engine drives one ReAct episode per Run call: it is stateless across
// calls and safe for concurrent use as long as the Store/Resolver/LLM
// it wraps are.
type Engine struct {
	llm      LLM
	resolver Resolver
	store    memory.Store
	bus      events.Backend

	metrics *metrics.Metrics
	tracer  *tracing.Tracer
}

func New(llm LLM, resolver Resolver, store memory.Store, bus events.Backend) *Engine {
	return &Engine{llm: llm, resolver: resolver, store: store, bus: bus}
}

// WithMetrics reports episode counts/steps/duration to m. Nil (the
// default) disables reporting.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// WithTracer wraps the episode and each of its steps in a span.
// Nil (the default) disables tracing.
func (e *Engine) WithTracer(t *tracing.Tracer) *Engine {
	e.tracer = t
	return e
}

// Run executes Init -> Reasoning -> Acting -> Observing -> ... ->
// Terminal for a single user query against sessionID's memory, honoring
// cfg.Limits. It appends every message it produces (including tool
// observations) to the Memory Router so the transcript persists beyond
// the call, and publishes an Event at each phase transition.
func (e *Engine) Run(ctx context.Context, sessionID string, cfg models.AgentConfig, query string) Outcome {
	started := time.Now()

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.TraceEpisode(ctx, sessionID)
		defer span.End()
	}

	outcome := e.runEpisode(ctx, sessionID, cfg, query)

	if e.metrics != nil {
		result := "final_answer"
		if outcome.Err != nil {
			result = "error"
		}
		e.metrics.RecordEpisode(result, outcome.Steps, time.Since(started).Seconds())
	}
	return outcome
}

func (e *Engine) runEpisode(ctx context.Context, sessionID string, cfg models.AgentConfig, query string) Outcome {
	limits := cfg.Limits
	if limits.MaxSteps <= 0 {
		limits = models.DefaultLimits()
	}

	if _, err := e.store.EnsureSession(ctx, sessionID, limits.MaxContextTokens); err != nil {
		return Outcome{Err: err}
	}

	if cfg.SystemInstruction != "" {
		if _, err := e.store.StoreMessage(ctx, sessionID, models.RoleSystem, cfg.SystemInstruction, nil); err != nil {
			return Outcome{Err: err}
		}
	}
	if _, err := e.store.StoreMessage(ctx, sessionID, models.RoleUser, query, nil); err != nil {
		return Outcome{Err: err}
	}
	e.emit(ctx, sessionID, models.EventUserMessage, map[string]any{"query": query})

	tools := e.resolver.Describe()

	requests, totalTokens, steps := 0, 0, 0
	parseRetries := 0

	for steps < limits.MaxSteps {
		if requests >= limits.RequestLimit {
			return e.terminal(ctx, sessionID, steps, requests, totalTokens, errs.New(models.ErrLimitExceeded, "request limit exceeded"))
		}
		if limits.TotalTokensLimit > 0 && totalTokens >= limits.TotalTokensLimit {
			return e.terminal(ctx, sessionID, steps, requests, totalTokens, errs.New(models.ErrLimitExceeded, "token budget exceeded"))
		}

		// MaxSteps bounds how many of these accumulate; every one of
		// these deferred ends still runs when Run returns.
		stepCtx := ctx
		if e.tracer != nil {
			var stepSpan trace.Span
			stepCtx, stepSpan = e.tracer.TraceStep(ctx, sessionID, steps)
			defer stepSpan.End()
		}

		history, err := e.store.GetMessages(stepCtx, sessionID, "")
		if err != nil {
			return e.terminal(ctx, sessionID, steps, requests, totalTokens, err)
		}

		text, usage, err := e.llm.Complete(stepCtx, cfg.ModelConfig, history, tools)
		requests++
		totalTokens += usage.TotalTokens
		if err != nil {
			return e.terminal(ctx, sessionID, steps, requests, totalTokens, err)
		}

		step, ok := ParseStep(text)
		if !ok {
			parseRetries++
			if parseRetries > limits.ParseRetryBudget {
				return e.terminal(ctx, sessionID, steps, requests, totalTokens, errs.New(models.ErrParseFailure, "could not parse a Final Answer or Action from model output"))
			}
			e.emit(ctx, sessionID, models.EventParseError, map[string]any{"raw": text})
			if _, serr := e.store.StoreMessage(ctx, sessionID, models.RoleAssistant, text, map[string]any{"parse_error": true}); serr != nil {
				return e.terminal(ctx, sessionID, steps, requests, totalTokens, serr)
			}
			continue
		}

		if _, serr := e.store.StoreMessage(ctx, sessionID, models.RoleAssistant, text, nil); serr != nil {
			return e.terminal(ctx, sessionID, steps, requests, totalTokens, serr)
		}

		if step.HasFinalAnswer {
			e.emit(ctx, sessionID, models.EventFinalAnswer, map[string]any{"answer": step.FinalAnswer})
			return Outcome{FinalAnswer: step.FinalAnswer, Steps: steps + 1, Requests: requests, TokensUsed: totalTokens}
		}

		steps++
		callID := uuid.NewString()
		call := toolCallFromStep(callID, step)
		e.emit(ctx, sessionID, models.EventToolCall, map[string]any{"name": call.Name, "arguments": string(call.Arguments)})

		callCtx := ctx
		var cancel context.CancelFunc
		if limits.ToolCallTimeoutMS > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(limits.ToolCallTimeoutMS)*time.Millisecond)
		}
		result := e.resolver.Execute(callCtx, call)
		if cancel != nil {
			cancel()
		}

		e.emit(ctx, sessionID, models.EventToolResult, map[string]any{"call_id": result.CallID, "ok": result.OK, "error_kind": string(result.ErrorKind)})

		observation := result.Content
		if !result.OK {
			observation = fmt.Sprintf("tool error (%s): %s", result.ErrorKind, result.Content)
		}
		if _, serr := e.store.StoreMessage(ctx, sessionID, models.RoleTool, observation, map[string]any{"tool_call_id": call.ID, "tool": call.Name}); serr != nil {
			return e.terminal(ctx, sessionID, steps, requests, totalTokens, serr)
		}
		e.emit(ctx, sessionID, models.EventObservation, map[string]any{"content": observation})
		// Tool failure does not end the episode: the engine continues
		// into another Reasoning phase with the failure recorded as an
		// observation, per SPEC_FULL.md §4.6's continue-on-tool-error
		// rule.
	}

	return e.terminal(ctx, sessionID, steps, requests, totalTokens, errs.New(models.ErrLimitExceeded, "step limit exceeded"))
}

func (e *Engine) terminal(ctx context.Context, sessionID string, steps, requests, tokens int, err error) Outcome {
	return Outcome{Steps: steps, Requests: requests, TokensUsed: tokens, Err: err}
}

func (e *Engine) emit(ctx context.Context, sessionID string, typ models.EventType, payload map[string]any) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(ctx, sessionID, &models.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
