package memory

import "github.com/driftloop/agentrt/pkg/models"

// Truncate applies the token-budget truncation policy from SPEC_FULL.md
// §3: when the cumulative estimate of messages exceeds ceiling, the oldest
// non-system messages are dropped from the returned view until it fits (or
// until only a leading system message remains). A leading system message
// is never dropped. Storage itself is untouched; this operates on an
// already-materialized slice taken from a read.
func Truncate(messages []*models.Message, ceiling int) []*models.Message {
	if ceiling <= 0 || len(messages) == 0 {
		return messages
	}
	if EstimateMessages(messages) <= ceiling {
		return messages
	}

	var leadingSystem *models.Message
	rest := messages
	if messages[0].Role == models.RoleSystem {
		leadingSystem = messages[0]
		rest = messages[1:]
	}

	// Drop from the front of rest until the remainder fits, or nothing is
	// left to drop.
	start := 0
	for start < len(rest) {
		window := rest[start:]
		total := EstimateMessages(window)
		if leadingSystem != nil {
			total += EstimateTokens(leadingSystem.Content)
		}
		if total <= ceiling {
			break
		}
		start++
	}

	out := make([]*models.Message, 0, len(rest)-start+1)
	if leadingSystem != nil {
		out = append(out, leadingSystem)
	}
	out = append(out, rest[start:]...)
	return out
}
