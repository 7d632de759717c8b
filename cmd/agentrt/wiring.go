package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/driftloop/agentrt/internal/config"
	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/internal/events"
	"github.com/driftloop/agentrt/internal/llm"
	"github.com/driftloop/agentrt/internal/memory"
	"github.com/driftloop/agentrt/internal/remotetool"
	"github.com/driftloop/agentrt/internal/tools"
	"github.com/driftloop/agentrt/pkg/models"
)

func buildMemoryStore(cfg config.MemoryConfig) (memory.Store, error) {
	switch cfg.Backend {
	case "", "inprocess":
		return memory.NewInProcessStore(), nil
	case "kv":
		return memory.NewKVStore(memory.NewInProcessKV()), nil
	default:
		return nil, errs.New(models.ErrBadArguments, "unknown memory backend: "+cfg.Backend)
	}
}

func buildEventsBackend(cfg config.EventsConfig) events.Backend {
	switch cfg.Backend {
	case "log":
		return events.NewLog()
	default:
		return events.NewRouter()
	}
}

func buildRemoteFacade(cfg config.RemoteConfig) *remotetool.Facade {
	facade := remotetool.NewFacade()
	signer := config.NewRemoteAuthSigner(cfg.Auth)
	for _, p := range cfg.Providers {
		var tokens remotetool.TokenSource
		if signer != nil {
			tokens = signer
		}
		facade.AddProvider(remotetool.NewHTTPProvider(p.ID, p.BaseURL, p.Timeout, tokens))
	}
	return facade
}

func buildLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	defaultClient, err := buildProviderClient(cfg.DefaultProvider, cfg.Providers[cfg.DefaultProvider])
	if err != nil {
		return nil, err
	}
	if len(cfg.FallbackChain) == 0 {
		return defaultClient, nil
	}

	chain := make([]llm.Client, 0, len(cfg.FallbackChain))
	for _, id := range cfg.FallbackChain {
		c, err := buildProviderClient(id, cfg.Providers[id])
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
	}
	return llm.NewFallbackClient(defaultClient, chain...), nil
}

func buildProviderClient(id string, pc config.LLMProviderConfig) (llm.Client, error) {
	switch id {
	case "openai":
		return llm.NewOpenAIClient(pc.APIKey), nil
	case "anthropic", "":
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			MaxRetries: pc.MaxRetries,
			RetryDelay: pc.RetryDelay,
		})
	default:
		return nil, errs.New(models.ErrBadArguments, "unknown llm provider: "+id)
	}
}

// registerBuiltinTools registers the process's fixed set of local
// tools. current_time is the only one built in; real deployments add
// domain tools here before calling react.New.
func registerBuiltinTools(r *tools.Registry) error {
	return r.Register(models.ToolDescriptor{
		Name:             "current_time",
		Description:      "Returns the current UTC time in RFC3339 form.",
		ParametersSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
}
