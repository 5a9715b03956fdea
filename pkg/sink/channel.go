package sink

import (
	"context"
	"errors"

	"github.com/sec-correlate/correlator/internal/alert"
)

// ErrChannelFull is returned by Emit when a ChannelSink's buffer has no
// room; Emit never blocks waiting for a reader.
var ErrChannelFull = errors.New("sink: channel buffer full")

// ChannelSink forwards alerts onto a Go channel, for embedding the
// correlator inside a larger process (e.g. a dashboard backend, out of
// this module's scope per spec §1 Non-goals, but free to consume this
// channel).
type ChannelSink struct {
	ch chan alert.Alert
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{ch: make(chan alert.Alert, buffer)}
}

func (s *ChannelSink) Name() string { return "channel" }

// Alerts returns the read side of the channel for the host to consume.
func (s *ChannelSink) Alerts() <-chan alert.Alert { return s.ch }

func (s *ChannelSink) Emit(ctx context.Context, a alert.Alert) error {
	select {
	case s.ch <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrChannelFull
	}
}
