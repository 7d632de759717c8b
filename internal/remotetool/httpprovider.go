package remotetool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/pkg/models"
)

// TokenSource mints a bearer token scoped to a provider ID. Satisfied by
// *internal/config.RemoteAuthSigner; kept as a small interface here so
// this package never needs to import internal/config.
type TokenSource interface {
	Sign(providerID string) (string, error)
}

// HTTPProvider is a Provider backed by a remote tool server speaking a
// minimal JSON-over-HTTP protocol: GET {baseURL}/tools returns a
// []models.ToolDescriptor, POST {baseURL}/call with a models.ToolCall
// body returns {"content": "..."}.
//
// This is deliberately the simplest transport that satisfies Provider,
// not a specific wire protocol: connection establishment and protocol
// negotiation with any richer remote tool server are out of this
// package's scope, same as the rest of the Remote Tool Facade.
type HTTPProvider struct {
	id      string
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewHTTPProvider builds an HTTPProvider. tokens may be nil, in which
// case requests carry no Authorization header.
func NewHTTPProvider(id, baseURL string, timeout time.Duration, tokens TokenSource) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (p *HTTPProvider) ID() string { return p.id }

func (p *HTTPProvider) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/tools", nil)
	if err != nil {
		return nil, err
	}
	if err := p.authorize(req); err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(models.ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errs.New(models.ErrProviderError, fmt.Sprintf("list tools: %s: %s", resp.Status, string(body)))
	}

	var tools []models.ToolDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		return nil, errs.Wrap(models.ErrProviderError, err)
	}
	return tools, nil
}

func (p *HTTPProvider) CallTool(ctx context.Context, call models.ToolCall) (string, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return "", errs.Wrap(models.ErrBadArguments, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := p.authorize(req); err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errs.Wrap(models.ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errs.New(models.ErrProviderError, fmt.Sprintf("call tool %s: %s: %s", call.Name, resp.Status, string(respBody)))
	}

	var out struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errs.Wrap(models.ErrProviderError, err)
	}
	return out.Content, nil
}

func (p *HTTPProvider) authorize(req *http.Request) error {
	if p.tokens == nil {
		return nil
	}
	token, err := p.tokens.Sign(p.id)
	if err != nil {
		return errs.Wrap(models.ErrProviderError, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

var _ Provider = (*HTTPProvider)(nil)
