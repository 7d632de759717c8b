package llm

import (
	"context"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// FallbackClient tries a primary Client and, on a retryable failure,
// falls through a configured chain of alternates in order. It carries
// no retry loop of its own beyond that chain walk; each underlying
// Client still owns its own request-level retries.
type FallbackClient struct {
	primary   Client
	providers []Client
}

// NewFallbackClient builds a Client that tries primary first, then each
// of chain in order, stopping at the first success or non-retryable
// error.
func NewFallbackClient(primary Client, chain ...Client) *FallbackClient {
	return &FallbackClient{primary: primary, providers: chain}
}

var _ Client = (*FallbackClient)(nil)

func (c *FallbackClient) Complete(ctx context.Context, cfg models.ModelConfig, messages []*models.Message, toolsHint []models.ToolDescriptor) (string, models.TokenUsage, error) {
	text, usage, err := c.primary.Complete(ctx, cfg, messages, toolsHint)
	if err == nil || !retryableProviderError(err) {
		return text, usage, err
	}

	lastErr := err
	for _, next := range c.providers {
		text, usage, err = next.Complete(ctx, cfg, messages, toolsHint)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err
		if !retryableProviderError(err) {
			break
		}
	}
	return "", models.TokenUsage{}, lastErr
}

func retryableProviderError(err error) bool {
	kind, ok := errs.KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case models.ErrProviderError, models.ErrTimeout, models.ErrBackendUnavail:
		return true
	default:
		return false
	}
}
