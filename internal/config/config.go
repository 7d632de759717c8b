// Package config loads the agentrt process configuration: LLM provider
// credentials, backend selectors, per-call limits, and the remote tool
// provider registry.
//
// Grounded on the teacher's internal/config package: one struct per
// concern, a YAML file with environment variable expansion, defaults
// applied after parse, and the $include-merging/json5 loader kept from
// loader.go.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/driftloop/agentrt/pkg/models"
)

// Config is the top-level process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Memory    MemoryConfig    `yaml:"memory"`
	Events    EventsConfig    `yaml:"events"`
	Limits    models.Limits   `yaml:"limits"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Remote    RemoteConfig    `yaml:"remote"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// LLMConfig selects and configures the llm.Client backend (C6's dependency).
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`

	// FallbackChain lists provider IDs to try, in order, if the default
	// provider's Complete call fails with a retryable error kind.
	FallbackChain []string `yaml:"fallback_chain"`
}

type LLMProviderConfig struct {
	APIKey       string        `yaml:"api_key"`
	DefaultModel string        `yaml:"default_model"`
	BaseURL      string        `yaml:"base_url"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// MemoryConfig selects the memory.Store/memory.AsyncStore backend.
type MemoryConfig struct {
	// Backend is "inprocess" (default, memory.NewInProcessStore) or "kv"
	// (memory.NewKVStore over memory.NewInProcessKV, an in-process KV;
	// no remote KV client is configurable).
	Backend string `yaml:"backend"`

	BudgetMaxMessages int `yaml:"budget_max_messages"`
	BudgetMaxTokens   int `yaml:"budget_max_tokens"`
}

// EventsConfig selects the events.Backend implementation.
type EventsConfig struct {
	// Backend is "router" (events.NewRouter, no replay) or "log"
	// (events.NewLog, full-history replay on subscribe).
	Backend   string `yaml:"backend"`
	QueueSize int    `yaml:"queue_size"`
}

type SchedulerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// RemoteConfig configures the remote tool providers aggregated by the
// Remote Tool Facade (C4), plus optional JWT bearer auth for talking to
// them.
type RemoteConfig struct {
	Providers []RemoteProviderConfig `yaml:"providers"`
	Auth      RemoteAuthConfig       `yaml:"auth"`
}

type RemoteProviderConfig struct {
	ID      string        `yaml:"id"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RemoteAuthConfig signs/verifies bearer tokens presented to remote tool
// providers. Authentication is a transport concern kept out of
// internal/remotetool's own logic; the signer lives here, next to the
// rest of the remote-provider connection parameters.
type RemoteAuthConfig struct {
	Enabled     bool          `yaml:"enabled"`
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

// ErrRemoteAuthDisabled is returned by Sign/Verify when
// Remote.Auth.Enabled is false.
var ErrRemoteAuthDisabled = errors.New("remote tool auth is disabled")

// ErrInvalidRemoteToken is returned by Verify for a token that fails
// signature or claim validation.
var ErrInvalidRemoteToken = errors.New("invalid remote tool bearer token")

// remoteClaims carries the calling provider's ID so a remote tool
// provider can attribute a call back to the facade that made it.
type remoteClaims struct {
	ProviderID string `json:"provider_id,omitempty"`
	jwt.RegisteredClaims
}

// RemoteAuthSigner mints and verifies the bearer tokens the Remote Tool
// Facade's HTTP transport presents to a configured provider. It lives
// here, next to RemoteAuthConfig, rather than in internal/remotetool,
// since authentication is a transport concern the facade's own
// dispatch logic never inspects.
type RemoteAuthSigner struct {
	secret []byte
	expiry time.Duration
}

// NewRemoteAuthSigner builds a signer from cfg. It returns nil when
// auth is disabled; every method on a nil *RemoteAuthSigner reports
// ErrRemoteAuthDisabled.
func NewRemoteAuthSigner(cfg RemoteAuthConfig) *RemoteAuthSigner {
	if !cfg.Enabled {
		return nil
	}
	return &RemoteAuthSigner{secret: []byte(cfg.JWTSecret), expiry: cfg.TokenExpiry}
}

// Sign issues a token scoped to providerID for the configured expiry.
func (s *RemoteAuthSigner) Sign(providerID string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrRemoteAuthDisabled
	}
	now := time.Now()
	claims := remoteClaims{
		ProviderID: providerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   providerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a bearer token previously issued by
// Sign, returning the provider ID it was scoped to.
func (s *RemoteAuthSigner) Verify(token string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrRemoteAuthDisabled
	}
	parsed, err := jwt.ParseWithClaims(token, &remoteClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidRemoteToken
	}
	claims, ok := parsed.Claims.(*remoteClaims)
	if !ok || !parsed.Valid || claims.ProviderID == "" {
		return "", ErrInvalidRemoteToken
	}
	return claims.ProviderID, nil
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (resolving $include directives and accepting YAML or
// JSON5), expands environment variables, decodes into a Config, and
// applies defaults.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "inprocess"
	}
	if cfg.Memory.BudgetMaxMessages == 0 {
		cfg.Memory.BudgetMaxMessages = 200
	}
	if cfg.Memory.BudgetMaxTokens == 0 {
		cfg.Memory.BudgetMaxTokens = 32000
	}
	if cfg.Events.Backend == "" {
		cfg.Events.Backend = "router"
	}
	if cfg.Events.QueueSize == 0 {
		cfg.Events.QueueSize = 256
	}
	if cfg.Limits.MaxSteps == 0 {
		cfg.Limits = models.DefaultLimits()
	}
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = time.Second
	}
	if cfg.Remote.Auth.TokenExpiry == 0 {
		cfg.Remote.Auth.TokenExpiry = time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
