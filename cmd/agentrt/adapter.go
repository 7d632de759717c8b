package main

import (
	"context"

	"github.com/driftloop/agentrt/internal/background"
	"github.com/driftloop/agentrt/internal/react"
	"github.com/driftloop/agentrt/pkg/models"
)

// reactEpisode adapts internal/react.Engine to internal/background.Episode.
// background deliberately does not import react (a scheduler has no
// business knowing how an episode reasons), so the wiring layer supplies
// this small shim instead.
type reactEpisode struct {
	engine *react.Engine
}

func (e *reactEpisode) Run(ctx context.Context, sessionID string, cfg models.AgentConfig, query string) background.EpisodeOutcome {
	outcome := e.engine.Run(ctx, sessionID, cfg, query)
	return background.EpisodeOutcome{FinalAnswer: outcome.FinalAnswer, Err: outcome.Err}
}
