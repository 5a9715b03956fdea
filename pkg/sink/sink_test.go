package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sec-correlate/correlator/internal/alert"
	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/logging"
	"github.com/sec-correlate/correlator/internal/rule"
)

type capturingLogger struct {
	logging.NoOpLogger
	warnMsg    string
	warnFields map[string]interface{}
}

func (c *capturingLogger) Warn(msg string, fields map[string]interface{}) {
	c.warnMsg = msg
	c.warnFields = fields
}

func mkAlert() alert.Alert {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := event.New(event.TypeAuthFail, now, "test", nil, now)
	r := rule.Rule{ID: "r1", Name: "Rule One", Severity: rule.SeverityHigh}
	return alert.Build(r, nil, trigger, "graph-1", now, alert.DefaultConfidence)
}

func TestLogSink_EmitsStructuredWarning(t *testing.T) {
	logger := &capturingLogger{}
	s := NewLogSink(logger)
	assert.Equal(t, "log", s.Name())

	a := mkAlert()
	require.NoError(t, s.Emit(context.Background(), a))

	assert.Equal(t, "alert", logger.warnMsg)
	assert.Equal(t, a.ID, logger.warnFields["alert_id"])
	assert.Equal(t, "r1", logger.warnFields["rule_id"])
	assert.Equal(t, "HIGH", logger.warnFields["severity"])
}

func TestLogSink_NilLoggerFallsBackToNoOp(t *testing.T) {
	s := NewLogSink(nil)
	assert.NoError(t, s.Emit(context.Background(), mkAlert()))
}

func TestChannelSink_DeliversAlertToReader(t *testing.T) {
	s := NewChannelSink(1)
	assert.Equal(t, "channel", s.Name())

	a := mkAlert()
	require.NoError(t, s.Emit(context.Background(), a))

	select {
	case got := <-s.Alerts():
		assert.Equal(t, a.ID, got.ID)
	default:
		t.Fatal("expected alert to be buffered")
	}
}

func TestChannelSink_ReturnsErrChannelFullWhenUnbuffered(t *testing.T) {
	s := NewChannelSink(0)
	err := s.Emit(context.Background(), mkAlert())
	assert.ErrorIs(t, err, ErrChannelFull)
}

func TestChannelSink_RespectsContextCancellation(t *testing.T) {
	s := NewChannelSink(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Emit(ctx, mkAlert())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannelSink_NegativeBufferClampsToZero(t *testing.T) {
	s := NewChannelSink(-5)
	err := s.Emit(context.Background(), mkAlert())
	assert.ErrorIs(t, err, ErrChannelFull)
}
