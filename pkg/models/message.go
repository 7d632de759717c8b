// Package models holds the wire-level data types shared across the
// memory, event, tool, and background-agent subsystems.
package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a session's ordered log.
//
// Metadata conventionally carries "agent_name" and, for tool messages,
// "tool_call_id".
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	// seq breaks ties when two messages share a CreatedAt value; it is
	// assigned by the store at append time and is never set by callers.
	seq uint64
}

// Seq returns the store-assigned insertion sequence used to break ties
// between messages with identical timestamps.
func (m *Message) Seq() uint64 { return m.seq }

// SetSeq is used only by Store implementations when appending a message.
func (m *Message) SetSeq(n uint64) { m.seq = n }

// Session is an opaque conversation thread. It owns an ordered sequence of
// Messages and is created lazily on first write.
type Session struct {
	ID               string         `json:"id"`
	AgentName        string         `json:"agent_name,omitempty"`
	MaxContextTokens int            `json:"max_context_tokens,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ToolDescriptor describes one tool, local or remote.
type ToolDescriptor struct {
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	ParametersSchema json.RawMessage `json:"parameters_schema"`
	ProviderKind     ProviderKind    `json:"provider_kind"`

	// Routing data for remote descriptors; empty for local ones.
	RemoteProviderID string `json:"remote_provider_id,omitempty"`
	RemoteToolName   string `json:"remote_tool_name,omitempty"`
}

// ProviderKind classifies where a tool's callable lives.
type ProviderKind string

const (
	ProviderLocal  ProviderKind = "local"
	ProviderRemote ProviderKind = "remote"
)

// ToolCall is one invocation request parsed from LLM output.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ErrorKind enumerates the error taxonomy propagated to callers and
// reified into tool messages. See SPEC_FULL.md §7.
type ErrorKind string

const (
	ErrBadArguments      ErrorKind = "BadArguments"
	ErrUnknownTool       ErrorKind = "UnknownTool"
	ErrTimeout           ErrorKind = "Timeout"
	ErrToolFailure       ErrorKind = "ToolFailure"
	ErrProviderError     ErrorKind = "ProviderError"
	ErrParseFailure      ErrorKind = "ParseFailure"
	ErrLimitExceeded     ErrorKind = "LimitExceeded"
	ErrBackendUnavail    ErrorKind = "BackendUnavailable"
	ErrDuplicateID       ErrorKind = "DuplicateId"
	ErrNotFound          ErrorKind = "NotFound"
	ErrCancelled         ErrorKind = "Cancelled"
)

// ToolResultEnvelope is the normalized result of any tool call, regardless
// of which provider served it.
type ToolResultEnvelope struct {
	CallID       string       `json:"call_id"`
	OK           bool         `json:"ok"`
	Content      string       `json:"content"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	DurationMS   int64        `json:"duration_ms"`
	ProviderKind ProviderKind `json:"provider_kind"`
}

// TokenUsage reports the token cost of one LLM call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
