package llm

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// OpenAIClient implements Client against the Chat Completions API.
// Grounded on the teacher's providers.OpenAIProvider, reduced from its
// streaming interface to a single CreateChatCompletion call.
type OpenAIClient struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client:     openai.NewClient(apiKey),
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

var _ Client = (*OpenAIClient)(nil)

func (c *OpenAIClient) Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error) {
	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    c.convertMessages(messages, toolsHint),
		Temperature: float32(cfg.Temperature),
		TopP:        float32(cfg.TopP),
	}
	if cfg.MaxTokens > 0 {
		req.MaxTokens = cfg.MaxTokens
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if !isRetryableOpenAIError(err) || attempt == c.maxRetries {
			return "", models.TokenUsage{}, errs.Wrap(models.ErrProviderError, err)
		}
		select {
		case <-ctx.Done():
			return "", models.TokenUsage{}, errs.Wrap(models.ErrCancelled, ctx.Err())
		case <-time.After(c.retryDelay * time.Duration(attempt+1)):
		}
	}

	if len(resp.Choices) == 0 {
		return "", models.TokenUsage{}, errs.New(models.ErrProviderError, "openai: empty response")
	}

	usage := models.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func (c *OpenAIClient) convertMessages(messages []*models.Message, toolsHint []models.ToolDescriptor) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	var systemParts []string
	var rest []*models.Message
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	if len(toolsHint) > 0 {
		systemParts = append(systemParts, renderToolsHint(toolsHint))
	}
	if len(systemParts) > 0 {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: strings.Join(systemParts, "\n\n")})
	}

	for _, m := range rest {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case models.RoleTool:
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func isRetryableOpenAIError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"429", "500", "502", "503", "504", "timeout", "rate_limit"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
