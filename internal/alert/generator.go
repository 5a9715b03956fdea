package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sec-correlate/correlator/internal/logging"
)

// registeredSink pairs a Sink with its own circuit breaker so one
// misbehaving sink cannot affect another's delivery (spec §4.5: "sink
// failure is logged and does not block emission to other sinks").
type registeredSink struct {
	sink    Sink
	circuit *sinkCircuit
}

// Generator fans out alerts to registered sinks synchronously and keeps a
// bounded in-memory ring for the host's query API (spec §4.5).
type Generator struct {
	mu    sync.RWMutex
	sinks []*registeredSink

	ringMu sync.RWMutex
	ring   []Alert
	cap    int
	next   int
	full   bool

	logger logging.Logger

	onDropped func(sinkName string)
}

// NewGenerator creates a Generator with the given ring capacity (spec
// §6 max_alerts_in_memory, default 500).
func NewGenerator(capacity int, logger logging.Logger) *Generator {
	if capacity <= 0 {
		capacity = 500
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Generator{
		ring:   make([]Alert, capacity),
		cap:    capacity,
		logger: logger,
	}
}

// OnDropped registers a callback invoked whenever a sink drops an alert,
// wired by the correlator core to the stats collector's alerts_dropped
// counter.
func (g *Generator) OnDropped(fn func(sinkName string)) {
	g.onDropped = fn
}

// RegisterSink adds a sink to the fan-out set.
func (g *Generator) RegisterSink(s Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sinks = append(g.sinks, &registeredSink{sink: s, circuit: newSinkCircuit(5, 30*time.Second)})
}

// Emit records the alert into the ring and fans it out to every
// registered sink. Sink failures are logged and counted; they never
// abort delivery to the remaining sinks (spec §4.5).
func (g *Generator) Emit(ctx context.Context, a Alert) {
	g.appendRing(a)

	g.mu.RLock()
	sinks := make([]*registeredSink, len(g.sinks))
	copy(sinks, g.sinks)
	g.mu.RUnlock()

	now := time.Now()
	for _, rs := range sinks {
		if !rs.circuit.allow(now) {
			g.logger.Warn("sink degraded, dropping alert", map[string]interface{}{
				"sink":    rs.sink.Name(),
				"rule_id": a.RuleID,
			})
			if g.onDropped != nil {
				g.onDropped(rs.sink.Name())
			}
			continue
		}

		if err := rs.sink.Emit(ctx, a); err != nil {
			rs.circuit.recordFailure(now)
			g.logger.Error("sink rejected alert", map[string]interface{}{
				"sink":    rs.sink.Name(),
				"rule_id": a.RuleID,
				"error":   err.Error(),
			})
			if g.onDropped != nil {
				g.onDropped(rs.sink.Name())
			}
			continue
		}
		rs.circuit.recordSuccess()
	}
}

func (g *Generator) appendRing(a Alert) {
	g.ringMu.Lock()
	defer g.ringMu.Unlock()

	g.ring[g.next] = a
	g.next = (g.next + 1) % g.cap
	if g.next == 0 {
		g.full = true
	}
}

// All returns a snapshot of retained alerts, oldest first.
func (g *Generator) All() []Alert {
	g.ringMu.RLock()
	defer g.ringMu.RUnlock()

	if !g.full {
		out := make([]Alert, g.next)
		copy(out, g.ring[:g.next])
		return out
	}

	out := make([]Alert, g.cap)
	copy(out, g.ring[g.next:])
	copy(out[g.cap-g.next:], g.ring[:g.next])
	return out
}

// Len reports the number of retained alerts.
func (g *Generator) Len() int {
	g.ringMu.RLock()
	defer g.ringMu.RUnlock()
	if g.full {
		return g.cap
	}
	return g.next
}
