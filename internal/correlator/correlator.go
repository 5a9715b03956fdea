// Package correlator wires every component — window store, rule set,
// evaluator, decision recorder, alert generator, stats, telemetry — into
// the single-writer event loop of spec §5: one goroutine reads the input
// queue, admits the event, evaluates every enabled rule against it,
// records a decision graph per rule, emits alerts for matches, then
// expires stale entries.
package correlator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sec-correlate/correlator/internal/alert"
	"github.com/sec-correlate/correlator/internal/config"
	"github.com/sec-correlate/correlator/internal/decision"
	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/evaluator"
	"github.com/sec-correlate/correlator/internal/logging"
	"github.com/sec-correlate/correlator/internal/rule"
	"github.com/sec-correlate/correlator/internal/stats"
	"github.com/sec-correlate/correlator/internal/window"
)

// Telemetry is the subset of telemetry.Provider the core calls, kept as
// an interface so the core package never imports the OTel SDK directly
// and tests can substitute a no-op.
type Telemetry interface {
	StartEvaluation(ctx context.Context, ruleID string) (context.Context, func())
	RecordEventProcessed(ctx context.Context)
	RecordRulesEvaluated(ctx context.Context, n int64)
	RecordCorrelationFound(ctx context.Context)
	RecordAlertGenerated(ctx context.Context)
	RecordAlertDropped(ctx context.Context)
}

type noOpTelemetry struct{}

func (noOpTelemetry) StartEvaluation(ctx context.Context, _ string) (context.Context, func()) {
	return ctx, func() {}
}
func (noOpTelemetry) RecordEventProcessed(context.Context)    {}
func (noOpTelemetry) RecordRulesEvaluated(context.Context, int64) {}
func (noOpTelemetry) RecordCorrelationFound(context.Context)  {}
func (noOpTelemetry) RecordAlertGenerated(context.Context)    {}
func (noOpTelemetry) RecordAlertDropped(context.Context)      {}

// Core is the correlator's running instance: a single-writer loop reading
// from a buffered input queue of cfg.InputQueueSize events (spec §5).
type Core struct {
	cfg    *config.Config
	clock  clockwork.Clock
	logger logging.ComponentAwareLogger

	store     *window.Store
	evalr     *evaluator.Evaluator
	recorder  *decision.Recorder
	generator *alert.Generator
	stats     *stats.Collector
	telemetry Telemetry

	rulesMu sync.RWMutex
	rules   []rule.Rule

	queue chan event.Event
	done  chan struct{}
	wg    sync.WaitGroup

	stopOnce sync.Once
}

// New builds a Core. logger may be a plain logging.Logger (it will be
// wrapped so WithComponent is a no-op) or a ComponentAwareLogger for
// per-component tagging.
func New(cfg *config.Config, clock clockwork.Clock, logger logging.Logger, telemetry Telemetry) *Core {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cal := asComponentAware(logger)

	store := window.New(cal.WithComponent("correlator/window"))
	statsCollector := stats.New(func() int64 { return int64(store.TotalEvents()) })

	if telemetry == nil {
		telemetry = noOpTelemetry{}
	}

	return &Core{
		cfg:       cfg,
		clock:     clock,
		logger:    cal,
		store:     store,
		evalr:     evaluator.New(store, clock, cal.WithComponent("correlator/evaluator")),
		recorder:  decision.NewRecorder(cfg.MaxDecisionGraphs),
		generator: alert.NewGenerator(cfg.MaxAlertsInMemory, cal.WithComponent("correlator/alert")),
		stats:     statsCollector,
		telemetry: telemetry,
		queue:     make(chan event.Event, cfg.InputQueueSize),
		done:      make(chan struct{}),
	}
}

func asComponentAware(l logging.Logger) logging.ComponentAwareLogger {
	if l == nil {
		return logging.NoOpLogger{}
	}
	if ca, ok := l.(logging.ComponentAwareLogger); ok {
		return ca
	}
	return wrappedLogger{l}
}

// wrappedLogger adapts a plain Logger to ComponentAwareLogger by ignoring
// component tagging, for hosts that supply a minimal logger.
type wrappedLogger struct{ logging.Logger }

func (w wrappedLogger) WithComponent(string) logging.Logger { return w.Logger }

// LoadRules replaces the active rule set. Safe to call while Run is
// active — spec §6's reload_rules — the evaluator always reads a
// consistent snapshot under rulesMu.
func (c *Core) LoadRules(doc *rule.Document) {
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()
	c.rules = doc.Rules
	c.logger.Info("rules loaded", map[string]interface{}{"count": len(doc.Rules)})
}

// RegisterSink adds an alert sink to the fan-out set.
func (c *Core) RegisterSink(s alert.Sink) {
	c.generator.RegisterSink(s)
}

// Submit enqueues ev for evaluation. Returns false if the input queue is
// full and ctx is done before room becomes available (spec §5 backpressure:
// the core never silently drops under load, it blocks the submitter).
func (c *Core) Submit(ctx context.Context, ev event.Event) bool {
	select {
	case c.queue <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

// Run is the single-writer loop. It blocks until ctx is cancelled or
// Stop is called, then drains the remaining queue up to cfg.DrainDeadline
// before returning (spec §5 stop() semantics).
func (c *Core) Run(ctx context.Context) {
	c.wg.Add(1)
	defer c.wg.Done()

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.queue:
			c.process(ctx, ev)
		case <-ticker.Chan():
			c.store.Expire(c.clock.Now(), c.cfg.RetentionWindow)
		case <-c.done:
			c.drain(ctx)
			return
		case <-ctx.Done():
			c.drain(ctx)
			return
		}
	}
}

// drain processes whatever remains in the queue for up to
// cfg.DrainDeadline, then returns regardless of backlog (spec §5: "stop()
// waits up to drain_deadline for in-flight events; anything still queued
// past the deadline is abandoned, counted as events_rejected").
func (c *Core) drain(ctx context.Context) {
	deadline := c.clock.After(c.cfg.DrainDeadline)
	for {
		select {
		case ev := <-c.queue:
			c.process(ctx, ev)
		case <-deadline:
			remaining := len(c.queue)
			for i := 0; i < remaining; i++ {
				c.stats.IncEventsRejected()
			}
			if remaining > 0 {
				c.logger.Warn("drain deadline exceeded, abandoning queued events", map[string]interface{}{
					"abandoned": remaining,
				})
			}
			return
		}
	}
}

// Stop signals the loop to stop accepting new work and drain. It blocks
// until Run has returned.
func (c *Core) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// process implements one pass of admit -> evaluate -> emit -> expire, using a
// single `now` for the whole pass (SPEC_FULL.md §2 / spec §9: no
// component re-reads the clock mid-evaluation).
func (c *Core) process(ctx context.Context, ev event.Event) {
	now := c.clock.Now()

	c.store.Admit(ev, now)
	c.stats.IncEventsProcessed()
	c.telemetry.RecordEventProcessed(ctx)

	c.rulesMu.RLock()
	rules := c.rules
	c.rulesMu.RUnlock()

	c.stats.IncRulesEvaluated(int64(len(rules)))
	c.telemetry.RecordRulesEvaluated(ctx, int64(len(rules)))

	for _, r := range rules {
		evalCtx, end := c.telemetry.StartEvaluation(ctx, r.ID)
		result := c.evalr.Evaluate(r, ev, now)
		end()

		c.recorder.Record(result.Graph)

		if !result.Matched {
			continue
		}

		c.stats.IncCorrelationsFound()
		c.telemetry.RecordCorrelationFound(evalCtx)

		a := alert.Build(r, result.Bound, ev, result.Graph.ID, now, c.cfg.DefaultConfidence)
		c.stats.IncAlertsGenerated()
		c.telemetry.RecordAlertGenerated(evalCtx)

		c.generator.OnDropped(func(string) {
			c.stats.IncAlertsDropped()
			c.telemetry.RecordAlertDropped(evalCtx)
		})
		c.generator.Emit(evalCtx, a)
	}

	c.store.Expire(now, c.cfg.RetentionWindow)
}

// Stats returns a point-in-time snapshot of the process counters (spec
// §4.6 / §6 get_stats()).
func (c *Core) Stats() stats.Snapshot {
	return c.stats.Snapshot()
}

// Alerts returns every alert currently retained in memory.
func (c *Core) Alerts() []alert.Alert {
	return c.generator.All()
}

// DecisionGraph returns the decision graph at the given index into the
// oldest-first retained sequence (spec §6 export_graph(index)).
func (c *Core) DecisionGraph(index int) (*decision.Graph, error) {
	g, ok := c.recorder.At(index)
	if !ok {
		return nil, fmt.Errorf("correlator: no decision graph at index %d", index)
	}
	return g, nil
}

// DecisionGraphs returns every retained decision graph, oldest first.
func (c *Core) DecisionGraphs() []*decision.Graph {
	return c.recorder.All()
}
