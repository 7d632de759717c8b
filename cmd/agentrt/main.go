// Command agentrt runs the background agent runtime: a ReAct reasoning
// loop over a local tool registry and remote tool providers, with a
// scheduler that drives long-lived background agents on an interval or
// cron schedule.
//
// Start the server:
//
//	agentrt serve --config agentrt.yaml
//
// Manage background agents against a running server:
//
//	agentrt agent create --file agent.json
//	agentrt agent list
//	agentrt agent status <agent-id>
//
// List the tools the local registry exposes:
//
//	agentrt tool list
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agentrt",
		Short:        "agentrt - ReAct agent runtime with scheduled background agents",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildAgentCmd(),
		buildToolCmd(),
	)

	return rootCmd
}
