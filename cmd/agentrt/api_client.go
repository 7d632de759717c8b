package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftloop/agentrt/pkg/models"
)

// apiClient talks to a running agentrt server's HTTP API (internal/httpapi).
// Grounded on the teacher's cmd/nexus/api_client.go: a thin JSON wrapper
// over net/http with a shared error-on-non-2xx helper.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(respBody)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) createAgent(ctx context.Context, cfg models.AgentConfig) (*models.AgentRecord, error) {
	var rec models.AgentRecord
	if err := c.do(ctx, http.MethodPost, "/agents", cfg, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *apiClient) updateAgent(ctx context.Context, agentID string, cfg models.AgentConfig) (*models.AgentRecord, error) {
	var rec models.AgentRecord
	if err := c.do(ctx, http.MethodPut, "/agents/"+agentID, cfg, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *apiClient) pauseAgent(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodPost, "/agents/"+agentID+"/pause", nil, nil)
}

func (c *apiClient) resumeAgent(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodPost, "/agents/"+agentID+"/resume", nil, nil)
}

func (c *apiClient) deleteAgent(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodDelete, "/agents/"+agentID, nil, nil)
}

func (c *apiClient) agentStatus(ctx context.Context, agentID string) (*models.AgentStatus, error) {
	var status models.AgentStatus
	if err := c.do(ctx, http.MethodGet, "/agents/"+agentID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) listAgents(ctx context.Context) ([]models.AgentStatus, error) {
	var statuses []models.AgentStatus
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *apiClient) listTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	var tools []models.ToolDescriptor
	if err := c.do(ctx, http.MethodGet, "/tools", nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}
