package models

import "time"

// AgentState is the lifecycle state of a background agent record.
type AgentState string

const (
	AgentPending AgentState = "pending"
	AgentRunning AgentState = "running"
	AgentIdle    AgentState = "idle"
	AgentPaused  AgentState = "paused"
	AgentError   AgentState = "error"
	AgentDeleted AgentState = "deleted"
)

// ModelConfig names a model and its sampling parameters for one LLM call.
type ModelConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// TaskConfig is the query and metadata a background agent replays on
// every trigger.
type TaskConfig struct {
	Query    string         `json:"query"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Limits bounds one ReAct episode.
type Limits struct {
	MaxSteps         int `json:"max_steps" yaml:"max_steps"`
	RequestLimit     int `json:"request_limit" yaml:"request_limit"`
	TotalTokensLimit int `json:"total_tokens_limit" yaml:"total_tokens_limit"`
	ParseRetryBudget int `json:"parse_retry_budget" yaml:"parse_retry_budget"`
	// ToolCallTimeoutMS bounds a single tool dispatch.
	ToolCallTimeoutMS int `json:"tool_call_timeout_ms" yaml:"tool_call_timeout_ms"`
	// MaxContextTokens bounds a memory read for this episode.
	MaxContextTokens int `json:"max_context_tokens" yaml:"max_context_tokens"`
}

// DefaultLimits mirrors the teacher's DefaultLoopConfig defaults, adapted
// to this spec's named limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:          10,
		RequestLimit:      10,
		TotalTokensLimit:  4096,
		ParseRetryBudget:  2,
		ToolCallTimeoutMS: 30_000,
		MaxContextTokens:  8192,
	}
}

// RunRecord is one supplemented (non-durable) execution outcome kept for
// introspection by the Background Agent Manager. See SPEC_FULL.md Part C.
type RunRecord struct {
	Attempt    int       `json:"attempt"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	OK         bool      `json:"ok"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// AgentConfig is the caller-supplied configuration for create_agent /
// update_config.
type AgentConfig struct {
	AgentID            string      `json:"agent_id"`
	SystemInstruction  string      `json:"system_instruction"`
	ModelConfig        ModelConfig `json:"model_config"`
	TaskConfig         TaskConfig  `json:"task_config"`
	Limits             Limits      `json:"limits"`
	IntervalSeconds    int         `json:"interval_seconds,omitempty"`
	Schedule           string      `json:"schedule,omitempty"` // cron expression; mutually exclusive with IntervalSeconds
	MaxRetries         int         `json:"max_retries"`
	RetryDelaySeconds  int         `json:"retry_delay_seconds"`
}

// AgentRecord is the Manager's durable-in-memory representation of one
// background agent.
type AgentRecord struct {
	AgentID           string      `json:"agent_id"`
	SessionID         string      `json:"session_id"`
	SystemInstruction string      `json:"system_instruction"`
	ModelConfig       ModelConfig `json:"model_config"`
	TaskConfig        TaskConfig  `json:"task_config"`
	Limits            Limits      `json:"limits"`
	IntervalSeconds   int         `json:"interval_seconds,omitempty"`
	Schedule          string      `json:"schedule,omitempty"`
	MaxRetries        int         `json:"max_retries"`
	RetryDelaySeconds int         `json:"retry_delay_seconds"`

	State      AgentState  `json:"state"`
	RunCount   int64       `json:"run_count"`
	ErrorCount int64       `json:"error_count"`
	LastRunAt  *time.Time  `json:"last_run_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	History    []RunRecord `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// NextFireAt is maintained by the scheduler; not part of the public
	// AgentStatus snapshot.
	NextFireAt time.Time `json:"-"`
	// pauseRequested records a pause() issued while running=true, so the
	// transition at run end goes to paused instead of idle.
	PauseRequested bool `json:"-"`
}

// AgentStatus is the read-only snapshot returned by status()/list().
type AgentStatus struct {
	AgentID    string     `json:"agent_id"`
	State      AgentState `json:"state"`
	RunCount   int64      `json:"run_count"`
	ErrorCount int64      `json:"error_count"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	History    []RunRecord `json:"history,omitempty"`
}
