// Package react implements the ReAct Engine (C6): the
// Init -> Reasoning -> Acting -> Observing -> ... -> Terminal state
// machine that drives one episode, and the textual action grammar
// parser that recovers structured actions from free-form LLM output.
//
// Neither the teacher's internal/agent/loop.go nor the non-teacher
// reference agentframe/agentreact/react_loop.go parses a textual
// grammar — both assume the LLM provider already returns structured
// tool_use blocks. This parser is therefore original, built directly
// from SPEC_FULL.md §4.6's grammar description; only the surrounding
// control-flow shape (continue on tool error, final-answer-wins on a
// tie, step/request/token limit checks) is grounded on those two
// files.
package react

import (
	"encoding/json"
	"strings"

	"github.com/driftloop/agentrt/pkg/models"
)

// Step is one parsed unit of model output.
type Step struct {
	Thought string

	// Exactly one of HasAction or HasFinalAnswer is true for a
	// successfully parsed step.
	HasAction      bool
	Action         string
	ActionInput    json.RawMessage
	HasFinalAnswer bool
	FinalAnswer    string
}

const (
	prefixThought     = "Thought:"
	prefixAction      = "Action:"
	prefixActionInput = "Action Input:"
	prefixFinalAnswer = "Final Answer:"
)

type section int

const (
	sectionNone section = iota
	sectionThought
	sectionAction
	sectionActionInput
	sectionFinalAnswer
)

// ParseStep recovers a Step from one model turn's raw text.
//
// Grammar (SPEC_FULL.md §4.6):
//
//	Thought: <reasoning>
//	Action: <tool name>
//	Action Input: <JSON object>
//
// or
//
//	Thought: <reasoning>
//	Final Answer: <answer text>
//
// Lines are matched by prefix, each on its own line; content after a
// prefix may continue on following unprefixed lines until the next
// recognized prefix. If both an Action and a Final Answer are present
// in the same turn (a model that second-guesses itself mid-response),
// Final Answer wins — SPEC_FULL.md's documented tie-break. If more
// than one Action (or Final Answer) block is present, the first one
// wins; later duplicates are ignored.
func ParseStep(text string) (Step, bool) {
	var thought, action, actionInput, finalAnswer strings.Builder
	actionSeen, finalSeen, actionInputLocked := false, false, false
	cur := sectionNone

	appendLine := func(b *strings.Builder, rest string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(rest)
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, prefixActionInput):
			rest := strings.TrimSpace(strings.TrimPrefix(line, prefixActionInput))
			if !finalSeen && !actionInputLocked {
				appendLine(&actionInput, rest)
				cur = sectionActionInput
			}

		case strings.HasPrefix(line, prefixAction):
			rest := strings.TrimSpace(strings.TrimPrefix(line, prefixAction))
			if !actionSeen {
				action.WriteString(rest)
				actionSeen = true
				cur = sectionAction
			} else {
				// A duplicate Action line: the first action's name and
				// input are already final, so lock the input builder
				// against anything that follows.
				actionInputLocked = true
				cur = sectionNone
			}

		case strings.HasPrefix(line, prefixFinalAnswer):
			rest := strings.TrimSpace(strings.TrimPrefix(line, prefixFinalAnswer))
			if !finalSeen {
				finalAnswer.WriteString(rest)
				finalSeen = true
				cur = sectionFinalAnswer
			} else {
				cur = sectionNone
			}

		case strings.HasPrefix(line, prefixThought):
			rest := strings.TrimSpace(strings.TrimPrefix(line, prefixThought))
			appendLine(&thought, rest)
			cur = sectionThought

		default:
			if strings.TrimSpace(line) == "" {
				continue
			}
			switch cur {
			case sectionThought:
				appendLine(&thought, line)
			case sectionAction:
				action.WriteString(strings.TrimSpace(line))
			case sectionActionInput:
				appendLine(&actionInput, line)
			case sectionFinalAnswer:
				appendLine(&finalAnswer, line)
			}
		}
	}

	step := Step{Thought: strings.TrimSpace(thought.String())}

	if finalSeen {
		step.HasFinalAnswer = true
		step.FinalAnswer = strings.TrimSpace(finalAnswer.String())
		return step, true
	}

	if actionSeen {
		name := strings.TrimSpace(action.String())
		if name == "" {
			return step, false
		}
		raw := strings.TrimSpace(actionInput.String())
		if raw == "" {
			raw = "{}"
		}
		step.HasAction = true
		step.Action = name
		step.ActionInput = json.RawMessage(raw)
		return step, true
	}

	return step, false
}

// toolCallFromStep builds the resolver-facing ToolCall for an action
// step. The ID is a correlation token scoped to this one episode (see
// DESIGN.md's tool-call-ID-uniqueness resolution).
func toolCallFromStep(id string, step Step) models.ToolCall {
	return models.ToolCall{ID: id, Name: step.Action, Arguments: step.ActionInput}
}
