package main

import (
	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentrt server",
		Long: `Start the agentrt server.

The server will:
1. Load configuration (LLM providers, memory/events backends, limits, scheduler)
2. Build the local tool registry and the remote tool facade
3. Wire the tool call resolver, the LLM client, and the ReAct engine
4. Start the background agent scheduler
5. Start the HTTP API (agent management, tool listing, Prometheus /metrics)

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML or JSON5 configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
