package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// AnthropicClient implements Client against the Anthropic Messages API.
// Retry shape (exponential backoff, bounded attempts) is grounded on
// the teacher's providers.AnthropicProvider.Complete, reduced to a
// single non-streaming call.
type AnthropicClient struct {
	client     anthropic.Client
	maxRetries int
	retryDelay time.Duration
}

type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(models.ErrProviderError, "anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:     anthropic.NewClient(opts...),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

var _ Client = (*AnthropicClient)(nil)

func (c *AnthropicClient) Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error) {
	params := c.buildParams(cfg, messages, toolsHint)

	var resp *anthropic.Message
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err = c.client.Messages.New(ctx, params)
		if err == nil {
			break
		}
		if !isRetryableAnthropicError(err) || attempt == c.maxRetries {
			return "", models.TokenUsage{}, errs.Wrap(models.ErrProviderError, err)
		}
		backoff := c.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return "", models.TokenUsage{}, errs.Wrap(models.ErrCancelled, ctx.Err())
		case <-time.After(backoff):
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	usage := models.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return text.String(), usage, nil
}

func (c *AnthropicClient) buildParams(cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) anthropic.MessageNewParams {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(maxTokens),
	}

	var system strings.Builder
	var msgs []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(m.Content)
			continue
		}
		role := anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
		if m.Role == models.RoleAssistant {
			role = anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
		}
		msgs = append(msgs, role)
	}
	if system.Len() > 0 {
		system.WriteString("\n\n")
	}
	if len(toolsHint) > 0 {
		system.WriteString(renderToolsHint(toolsHint))
	}
	if system.Len() > 0 {
		params.System = []anthropic.TextBlockParam{{Text: system.String()}}
	}
	params.Messages = msgs
	return params
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"429", "500", "502", "503", "504", "timeout", "deadline exceeded", "connection reset", "connection refused"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// renderToolsHint renders the tool catalog into the textual action
// grammar documentation the model needs to produce parseable
// Action:/Action Input: lines (SPEC_FULL.md §4.6). This is shared
// verbatim phrasing between providers so the ReAct parser behaves
// identically regardless of which LLM produced the text.
func renderToolsHint(tools []models.ToolDescriptor) string {
	var b strings.Builder
	b.WriteString("You may call the following tools. Respond using exactly this format:\n")
	b.WriteString("Thought: <your reasoning>\n")
	b.WriteString("Action: <tool name>\n")
	b.WriteString("Action Input: <JSON object>\n")
	b.WriteString("or, when you have the final answer:\n")
	b.WriteString("Thought: <your reasoning>\n")
	b.WriteString("Final Answer: <answer>\n\n")
	b.WriteString("Available tools:\n")
	for _, t := range tools {
		b.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
	}
	return b.String()
}
