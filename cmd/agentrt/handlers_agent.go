package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftloop/agentrt/pkg/models"
)

func loadAgentConfig(path string) (models.AgentConfig, error) {
	var cfg models.AgentConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAgentCreate(cmd *cobra.Command, server, configFile string) error {
	cfg, err := loadAgentConfig(configFile)
	if err != nil {
		return err
	}
	client := newAPIClient(server)
	rec, err := client.createAgent(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return printJSON(rec)
}

func runAgentUpdate(cmd *cobra.Command, server, agentID, configFile string) error {
	cfg, err := loadAgentConfig(configFile)
	if err != nil {
		return err
	}
	cfg.AgentID = agentID
	client := newAPIClient(server)
	rec, err := client.updateAgent(cmd.Context(), agentID, cfg)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return printJSON(rec)
}

func runAgentPause(cmd *cobra.Command, server, agentID string) error {
	client := newAPIClient(server)
	if err := client.pauseAgent(cmd.Context(), agentID); err != nil {
		return fmt.Errorf("pause agent: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent %s paused\n", agentID)
	return nil
}

func runAgentResume(cmd *cobra.Command, server, agentID string) error {
	client := newAPIClient(server)
	if err := client.resumeAgent(cmd.Context(), agentID); err != nil {
		return fmt.Errorf("resume agent: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent %s resumed\n", agentID)
	return nil
}

func runAgentDelete(cmd *cobra.Command, server, agentID string) error {
	client := newAPIClient(server)
	if err := client.deleteAgent(cmd.Context(), agentID); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent %s deleted\n", agentID)
	return nil
}

func runAgentList(cmd *cobra.Command, server string) error {
	client := newAPIClient(server)
	statuses, err := client.listAgents(cmd.Context())
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	return printJSON(statuses)
}

func runAgentStatus(cmd *cobra.Command, server, agentID string) error {
	client := newAPIClient(server)
	status, err := client.agentStatus(cmd.Context(), agentID)
	if err != nil {
		return fmt.Errorf("get agent status: %w", err)
	}
	return printJSON(status)
}

func runToolList(cmd *cobra.Command, server string) error {
	client := newAPIClient(server)
	toolList, err := client.listTools(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	return printJSON(toolList)
}
