package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftloop/agentrt/internal/background"
	"github.com/driftloop/agentrt/internal/config"
	"github.com/driftloop/agentrt/internal/httpapi"
	"github.com/driftloop/agentrt/internal/metrics"
	"github.com/driftloop/agentrt/internal/observability"
	"github.com/driftloop/agentrt/internal/react"
	"github.com/driftloop/agentrt/internal/resolver"
	"github.com/driftloop/agentrt/internal/tools"
	"github.com/driftloop/agentrt/internal/tracing"
)

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewRootLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"http_port", cfg.Server.HTTPPort,
		"llm_provider", cfg.LLM.DefaultProvider,
		"memory_backend", cfg.Memory.Backend,
		"events_backend", cfg.Events.Backend,
	)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tracer, shutdownTracer := tracing.New(tracing.Config{ServiceName: "agentrt"})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	store, err := buildMemoryStore(cfg.Memory)
	if err != nil {
		return fmt.Errorf("build memory store: %w", err)
	}

	bus := buildEventsBackend(cfg.Events)

	toolRegistry := tools.NewRegistry()
	if err := registerBuiltinTools(toolRegistry); err != nil {
		return fmt.Errorf("register builtin tools: %w", err)
	}

	remoteFacade := buildRemoteFacade(cfg.Remote)
	if len(cfg.Remote.Providers) > 0 {
		if err := remoteFacade.Discover(ctx); err != nil {
			logger.Warn("remote tool discovery failed, continuing with whatever was reachable", "error", err)
		}
	}

	res := resolver.New(toolRegistry, remoteFacade)

	llmClient, err := buildLLMClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	engine := react.New(llmClient, res, store, bus).WithMetrics(m).WithTracer(tracer)

	manager := background.NewManager(logger)
	runner := background.NewRunner(manager, &reactEpisode{engine: engine})
	scheduler := background.NewScheduler(manager, runner, cfg.Scheduler.TickInterval, logger)

	api := httpapi.New(httpapi.Config{
		Manager:  manager,
		Registry: toolRegistry,
		Gatherer: registry,
		Logger:   logger,
	})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Start(ctx)
		close(schedulerDone)
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	if err := api.Start(addr); err != nil {
		cancel()
		<-schedulerDone
		return fmt.Errorf("start http api: %w", err)
	}

	logger.Info("agentrt server started", "http_addr", addr)

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		logger.Warn("http api shutdown error", "error", err)
	}
	scheduler.Stop()
	<-schedulerDone

	logger.Info("agentrt server stopped")
	return nil
}

