// Package observability builds the root *slog.Logger shared across
// agentrt's components. The Prometheus metrics and the OpenTelemetry
// tracer provider live in internal/metrics and internal/tracing.
//
// Grounded on the teacher's internal/observability package: the same
// logging/metrics/tracing split (here as three packages), the same JSON-vs-text
// handler selection and secret-redaction approach, generalized from a
// bespoke Logger facade into a plain *slog.Logger wrapped in a
// redacting slog.Handler, since every other package in this module
// already accepts a *slog.Logger directly (per the ambient stack's
// "no component constructs its own root logger" rule).
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/driftloop/agentrt/internal/config"
)

// DefaultRedactPatterns matches common secret shapes so they never reach
// a log sink verbatim: API keys, bearer tokens, passwords, provider-
// specific key prefixes, and JWTs.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
}

// NewRootLogger builds the process's single root logger from config. It
// is the only call in the process that should construct one; every
// other component receives this logger (or a `.With(...)`-narrowed
// child of it) by injection.
func NewRootLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stdout
	}
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	return slog.New(newRedactingHandler(base, DefaultRedactPatterns))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactingHandler wraps a slog.Handler and scrubs secret-shaped
// substrings out of the record message and every string-valued
// attribute before delegating.
type redactingHandler struct {
	next     slog.Handler
	patterns []*regexp.Regexp
}

func newRedactingHandler(next slog.Handler, patterns []string) *redactingHandler {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return &redactingHandler{next: next, patterns: compiled}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = h.redact(r.Message)
	redacted := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		redacted = append(redacted, h.redactAttr(a))
		return true
	})
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	nr.AddAttrs(redacted...)
	return h.next.Handle(ctx, nr)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.redactAttr(a)
	}
	return &redactingHandler{next: h.next.WithAttrs(out), patterns: h.patterns}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{next: h.next.WithGroup(name), patterns: h.patterns}
}

func (h *redactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, h.redact(a.Value.String()))
	}
	return a
}

func (h *redactingHandler) redact(s string) string {
	for _, re := range h.patterns {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

var _ slog.Handler = (*redactingHandler)(nil)
