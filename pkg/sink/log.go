// Package sink provides ready-to-register alert.Sink implementations: a
// structured-log sink, a channel sink for embedding the correlator in a
// larger process, and a Redis Streams sink for durable external egress.
package sink

import (
	"context"

	"github.com/sec-correlate/correlator/internal/alert"
	"github.com/sec-correlate/correlator/internal/logging"
)

// LogSink writes every alert as a structured log line. Grounded on the
// teacher's convention of treating the Logger as the default, always-on
// observability surface (pkg/logger.SimpleLogger).
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a LogSink. A nil logger falls back to NoOpLogger,
// which makes the sink a harmless default for hosts that don't care
// about alert egress at all.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Emit(_ context.Context, a alert.Alert) error {
	s.logger.Warn("alert", map[string]interface{}{
		"alert_id":    a.ID,
		"rule_id":     a.RuleID,
		"rule_name":   a.RuleName,
		"severity":    string(a.Severity),
		"confidence":  a.Confidence,
		"message":     a.Message,
		"decision_id": a.DecisionGraphRef,
	})
	return nil
}
