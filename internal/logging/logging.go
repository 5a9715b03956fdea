// Package logging provides the structured logger interface shared by every
// correlator component. Implementations are nil-safe: a component that
// receives a nil Logger must fall back to NoOpLogger rather than panic.
package logging

import (
	"context"
)

// Logger is the minimal structured-logging contract used throughout the
// correlator. Fields are passed as a map rather than variadic key/value
// pairs so call sites read the same whether they log zero or a dozen
// fields.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger extends Logger with a component tag, so logs from
// the window store, evaluator, and alert generator can be filtered
// independently (e.g. `jq 'select(.component == "correlator/evaluator")'`).
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// NoOpLogger discards everything. Used as the zero-value default so every
// component can log unconditionally without nil checks at every call site.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

func (NoOpLogger) WithComponent(string) Logger { return NoOpLogger{} }
