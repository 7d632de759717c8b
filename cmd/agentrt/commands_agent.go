package main

import (
	"github.com/spf13/cobra"
)

func buildAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage background agents on a running agentrt server",
	}
	cmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the agentrt HTTP API")
	cmd.AddCommand(
		buildAgentCreateCmd(),
		buildAgentUpdateCmd(),
		buildAgentPauseCmd(),
		buildAgentResumeCmd(),
		buildAgentDeleteCmd(),
		buildAgentListCmd(),
		buildAgentStatusCmd(),
	)
	return cmd
}

func buildAgentCreateCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a background agent from a JSON agent config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentCreate(cmd, server, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to a JSON file holding an AgentConfig (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func buildAgentUpdateCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "update <agent-id>",
		Short: "Update a background agent's config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentUpdate(cmd, server, args[0], configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to a JSON file holding the fields to update (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func buildAgentPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <agent-id>",
		Short: "Pause a background agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentPause(cmd, server, args[0])
		},
	}
}

func buildAgentResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <agent-id>",
		Short: "Resume a paused background agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentResume(cmd, server, args[0])
		},
	}
}

func buildAgentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Delete a background agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentDelete(cmd, server, args[0])
		},
	}
}

func buildAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all background agents and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentList(cmd, server)
		},
	}
}

func buildAgentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <agent-id>",
		Short: "Show one background agent's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runAgentStatus(cmd, server, args[0])
		},
	}
}

func buildToolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Inspect the local tool registry on a running agentrt server",
	}
	cmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the agentrt HTTP API")
	cmd.AddCommand(buildToolListCmd())
	return cmd
}

func buildToolListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tools the local registry exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			return runToolList(cmd, server)
		},
	}
}
