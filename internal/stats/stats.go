// Package stats implements the process-wide counters of spec §4.6:
// monotonic counters readable at any time by the host, plus a gauge for
// current total retained events.
package stats

import "sync/atomic"

// Collector holds the correlator's observability counters. It is a value
// type owning its own state — no package-level singleton, consistent with
// spec §9's guidance against process-wide singletons.
type Collector struct {
	eventsProcessed    int64
	eventsRejected     int64
	rulesEvaluated     int64
	correlationsFound  int64
	alertsGenerated    int64
	alertsDropped      int64

	totalEventsGauge func() int64
}

// New creates a Collector. gauge reports the current total retained
// events across all window-store buffers (spec §4.6); it is called
// lazily from Snapshot so the gauge never drifts between reads.
func New(gauge func() int64) *Collector {
	return &Collector{totalEventsGauge: gauge}
}

func (c *Collector) IncEventsProcessed()   { atomic.AddInt64(&c.eventsProcessed, 1) }
func (c *Collector) IncEventsRejected()    { atomic.AddInt64(&c.eventsRejected, 1) }
func (c *Collector) IncRulesEvaluated(n int64) { atomic.AddInt64(&c.rulesEvaluated, n) }
func (c *Collector) IncCorrelationsFound() { atomic.AddInt64(&c.correlationsFound, 1) }
func (c *Collector) IncAlertsGenerated()   { atomic.AddInt64(&c.alertsGenerated, 1) }
func (c *Collector) IncAlertsDropped()     { atomic.AddInt64(&c.alertsDropped, 1) }

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	EventsProcessed   int64
	EventsRejected    int64
	RulesEvaluated    int64
	CorrelationsFound int64
	AlertsGenerated   int64
	AlertsDropped     int64
	TotalEvents       int64
}

// Snapshot reads all counters and the current gauge value. Safe for
// concurrent use alongside the writer methods above.
func (c *Collector) Snapshot() Snapshot {
	var total int64
	if c.totalEventsGauge != nil {
		total = c.totalEventsGauge()
	}
	return Snapshot{
		EventsProcessed:   atomic.LoadInt64(&c.eventsProcessed),
		EventsRejected:    atomic.LoadInt64(&c.eventsRejected),
		RulesEvaluated:    atomic.LoadInt64(&c.rulesEvaluated),
		CorrelationsFound: atomic.LoadInt64(&c.correlationsFound),
		AlertsGenerated:   atomic.LoadInt64(&c.alertsGenerated),
		AlertsDropped:     atomic.LoadInt64(&c.alertsDropped),
		TotalEvents:       total,
	}
}

// Reset zeroes every monotonic counter. The gauge is unaffected since it
// reflects live window-store state, not accumulated history.
func (c *Collector) Reset() {
	atomic.StoreInt64(&c.eventsProcessed, 0)
	atomic.StoreInt64(&c.eventsRejected, 0)
	atomic.StoreInt64(&c.rulesEvaluated, 0)
	atomic.StoreInt64(&c.correlationsFound, 0)
	atomic.StoreInt64(&c.alertsGenerated, 0)
	atomic.StoreInt64(&c.alertsDropped, 0)
}
