package models

import "time"

// EventType enumerates the taxonomy produced by the core. See
// SPEC_FULL.md §6.
type EventType string

const (
	EventUserMessage            EventType = "UserMessage"
	EventAgentCall              EventType = "AgentCall"
	EventToolCall               EventType = "ToolCall"
	EventToolResult             EventType = "ToolResult"
	EventObservation            EventType = "Observation"
	EventFinalAnswer            EventType = "FinalAnswer"
	EventParseError             EventType = "ParseError"
	EventBackgroundTaskStarted  EventType = "BackgroundTaskStarted"
	EventBackgroundTaskComplete EventType = "BackgroundTaskCompleted"
	EventBackgroundTaskError    EventType = "BackgroundTaskError"
	EventBackgroundAgentStatus  EventType = "BackgroundAgentStatus"
	EventSkippedBusy            EventType = "SkippedBusy"
	EventDropped                EventType = "EventDropped"
)

// Event is one append-only, typed record on a session's event stream.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	AgentName string         `json:"agent_name,omitempty"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
