// Package llm implements the LLM Client abstraction SPEC_FULL.md §6
// names as a consumed external interface: complete(model_config,
// messages, tools_hint?) -> (text, token_usage).
//
// Grounded on the teacher's internal/agent/providers package (notably
// anthropic.go and openai.go) for the retry-with-backoff and
// message/tool conversion shape, but reduced from the teacher's
// streaming chunk-channel interface to a single synchronous call: the
// ReAct engine (§4.6) only ever needs a complete turn, never partial
// tokens, so nothing in SPEC_FULL.md exercises streaming.
package llm

import (
	"context"

	"github.com/driftloop/agentrt/pkg/models"
)

// Client is the abstraction the ReAct engine depends on.
type Client interface {
	// Complete sends the conversation to the model and returns its raw
	// text output along with token usage. toolsHint, when non-empty, is
	// rendered into the prompt/tool-config so the model knows which
	// tools it may request via the textual action grammar; this
	// package never parses structured tool_use blocks back out, since
	// C6 does that parsing itself from plain text.
	Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error)
}
