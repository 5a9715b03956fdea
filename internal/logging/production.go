package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Level gates which messages reach the sink.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ProductionLogger is a structured logger writing JSON or text lines,
// matching the format the host deployment expects (JSON for aggregation,
// text for local development).
type ProductionLogger struct {
	level     Level
	format    string // "json" or "text"
	component string
	output    io.Writer
	fields    map[string]interface{}
}

// NewProductionLogger creates a ProductionLogger writing to stdout.
func NewProductionLogger(levelName, format string) *ProductionLogger {
	return &ProductionLogger{
		level:  parseLevel(levelName),
		format: format,
		output: os.Stdout,
	}
}

func (p *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		level:     p.level,
		format:    p.format,
		component: component,
		output:    p.output,
		fields:    p.fields,
	}
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.log(LevelInfo, "INFO", msg, fields, nil)
}
func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.log(LevelWarn, "WARN", msg, fields, nil)
}
func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.log(LevelError, "ERROR", msg, fields, nil)
}
func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.log(LevelDebug, "DEBUG", msg, fields, nil)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(LevelInfo, "INFO", msg, fields, ctx)
}
func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(LevelWarn, "WARN", msg, fields, ctx)
}
func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(LevelError, "ERROR", msg, fields, ctx)
}
func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(LevelDebug, "DEBUG", msg, fields, ctx)
}

func (p *ProductionLogger) log(level Level, levelName, msg string, fields map[string]interface{}, ctx context.Context) {
	if level < p.level {
		return
	}

	traceID := ""
	if ctx != nil {
		if id, ok := ctx.Value(traceIDKey{}).(string); ok {
			traceID = id
		}
	}

	if p.format == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339Nano),
			"level":     levelName,
			"component": p.component,
			"message":   msg,
		}
		if traceID != "" {
			entry["trace_id"] = traceID
		}
		for k, v := range p.fields {
			entry[k] = v
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s]", time.Now().Format(time.RFC3339), levelName, p.component)
	if traceID != "" {
		fmt.Fprintf(&b, " trace=%s", traceID)
	}
	fmt.Fprintf(&b, " %s", msg)
	for k, v := range p.fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintln(p.output, b.String())
}

type traceIDKey struct{}

// ContextWithTraceID attaches a trace id so *WithContext log calls carry it.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}
