package react

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/driftloop/agentrt/internal/events"
	"github.com/driftloop/agentrt/internal/memory"
	"github.com/driftloop/agentrt/internal/metrics"
	"github.com/driftloop/agentrt/internal/tracing"
	"github.com/driftloop/agentrt/pkg/models"
)

type scriptedLLM struct {
	turns []string
	n     int
}

func (s *scriptedLLM) Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error) {
	if s.n >= len(s.turns) {
		return "Thought: done\nFinal Answer: fallback", models.TokenUsage{TotalTokens: 1}, nil
	}
	text := s.turns[s.n]
	s.n++
	return text, models.TokenUsage{TotalTokens: 10}, nil
}

type stubResolver struct {
	result models.ToolResultEnvelope
}

func (s *stubResolver) Execute(ctx context.Context, call models.ToolCall) models.ToolResultEnvelope {
	env := s.result
	env.CallID = call.ID
	return env
}

func (s *stubResolver) Describe() []models.ToolDescriptor { return nil }

func TestEngineRunsToFinalAnswer(t *testing.T) {
	llm := &scriptedLLM{turns: []string{
		"Thought: I should search.\nAction: search\nAction Input: {\"q\":\"go\"}",
		"Thought: got it.\nFinal Answer: the answer is go",
	}}
	resolver := &stubResolver{result: models.ToolResultEnvelope{OK: true, Content: "search results"}}
	store := memory.NewInProcessStore()
	bus := events.NewRouter()

	eng := New(llm, resolver, store, bus)
	outcome := eng.Run(context.Background(), "s1", models.AgentConfig{Limits: models.DefaultLimits()}, "what is go?")

	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if outcome.FinalAnswer != "the answer is go" {
		t.Fatalf("got %q", outcome.FinalAnswer)
	}
	if outcome.Requests != 2 {
		t.Fatalf("got %d requests, want 2", outcome.Requests)
	}

	msgs, err := store.GetMessages(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	foundTool := false
	for _, m := range msgs {
		if m.Role == models.RoleTool && m.Content == "search results" {
			foundTool = true
		}
	}
	if !foundTool {
		t.Fatal("expected a tool observation message in the transcript")
	}
}

func TestEngineContinuesOnToolError(t *testing.T) {
	llm := &scriptedLLM{turns: []string{
		"Thought: try tool.\nAction: broken\nAction Input: {}",
		"Thought: tool failed, answering anyway.\nFinal Answer: done despite error",
	}}
	resolver := &stubResolver{result: models.ToolResultEnvelope{OK: false, ErrorKind: models.ErrToolFailure, Content: "boom"}}
	store := memory.NewInProcessStore()

	eng := New(llm, resolver, store, nil)
	outcome := eng.Run(context.Background(), "s1", models.AgentConfig{Limits: models.DefaultLimits()}, "q")

	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if outcome.FinalAnswer != "done despite error" {
		t.Fatalf("got %q", outcome.FinalAnswer)
	}
}

type loopingLLM struct{}

func (loopingLLM) Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error) {
	return "Thought: loop.\nAction: noop\nAction Input: {}", models.TokenUsage{TotalTokens: 1}, nil
}

func TestEngineStepLimitExceeded(t *testing.T) {
	llm := loopingLLM{}
	resolver := &stubResolver{result: models.ToolResultEnvelope{OK: true, Content: "ok"}}
	store := memory.NewInProcessStore()

	limits := models.DefaultLimits()
	limits.MaxSteps = 2
	limits.RequestLimit = 100

	eng := New(llm, resolver, store, nil)
	outcome := eng.Run(context.Background(), "s1", models.AgentConfig{Limits: limits}, "q")

	if outcome.Err == nil {
		t.Fatal("expected a limit-exceeded error")
	}
}

func TestEngineParseFailureExhaustsRetryBudget(t *testing.T) {
	llm := &scriptedLLM{turns: []string{
		"no grammar here",
		"still no grammar",
		"and again no grammar",
	}}
	resolver := &stubResolver{}
	store := memory.NewInProcessStore()

	limits := models.DefaultLimits()
	limits.ParseRetryBudget = 1

	eng := New(llm, resolver, store, nil)
	outcome := eng.Run(context.Background(), "s1", models.AgentConfig{Limits: limits}, "q")

	if outcome.Err == nil {
		t.Fatal("expected a parse-failure error")
	}
}

func TestEngineWithMetricsRecordsEpisodeOutcome(t *testing.T) {
	llm := &scriptedLLM{turns: []string{
		"Thought: done.\nFinal Answer: ok",
	}}
	resolver := &stubResolver{}
	store := memory.NewInProcessStore()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tracer, _ := tracing.New(tracing.Config{})

	eng := New(llm, resolver, store, nil).WithMetrics(m).WithTracer(tracer)
	outcome := eng.Run(context.Background(), "s1", models.AgentConfig{Limits: models.DefaultLimits()}, "q")

	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if got := testutil.ToFloat64(m.EpisodesStarted.WithLabelValues("final_answer")); got != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestEngineWithMetricsRecordsErrorOutcome(t *testing.T) {
	llm := loopingLLM{}
	resolver := &stubResolver{result: models.ToolResultEnvelope{OK: true, Content: "ok"}}
	store := memory.NewInProcessStore()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	limits := models.DefaultLimits()
	limits.MaxSteps = 1
	limits.RequestLimit = 100

	eng := New(llm, resolver, store, nil).WithMetrics(m)
	outcome := eng.Run(context.Background(), "s1", models.AgentConfig{Limits: limits}, "q")

	if outcome.Err == nil {
		t.Fatal("expected a limit-exceeded error")
	}
	if got := testutil.ToFloat64(m.EpisodesStarted.WithLabelValues("error")); got != 1 {
		t.Fatalf("got %v", got)
	}
}
