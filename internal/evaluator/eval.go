// Package evaluator implements Algorithm EVAL of spec §4.3: for one
// admitted event, test every enabled rule's ordered condition sequence
// against the window store, producing a DecisionGraph and — on a full
// match — the bound-event groups an Alert is built from.
package evaluator

import (
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sec-correlate/correlator/internal/decision"
	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/logging"
	"github.com/sec-correlate/correlator/internal/predicate"
	"github.com/sec-correlate/correlator/internal/rule"
	"github.com/sec-correlate/correlator/internal/window"
)

// groupSeparator joins group_by field values into one partition key.
// Chosen to be unlikely to appear in a field value, and ordered
// lexicographically the same as the joined tuple for the tie-break rule
// of spec §4.3.
const groupSeparator = "\x1f"

// Evaluator runs Algorithm EVAL against a window store. It holds no event
// state of its own — the Store is the single source of truth — so one
// Evaluator can be shared across every rule in a rule set.
type Evaluator struct {
	store  *window.Store
	clock  clockwork.Clock
	logger logging.Logger
}

// New creates an Evaluator over the given window store.
func New(store *window.Store, clock clockwork.Clock, logger logging.Logger) *Evaluator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Evaluator{store: store, clock: clock, logger: logger}
}

// Result is the outcome of evaluating one rule against one trigger event.
type Result struct {
	Graph  *decision.Graph
	Bound  [][]event.Event // per-condition bound events, only valid when Matched
	Matched bool
}

// Evaluate runs Algorithm EVAL for rule r at time now, triggered by
// trigger. now is read once by the caller and threaded through here —
// the evaluator itself never calls the clock mid-pass (spec §9).
func (e *Evaluator) Evaluate(r rule.Rule, trigger event.Event, now time.Time) Result {
	graph := decision.NewGraph(r.ID, r.Name, trigger, now)

	bound := make([][]event.Event, 0, len(r.Conditions))

	for i, cond := range r.Conditions {
		candidates := e.store.Slice(cond.Type, now, cond.Window)
		candidates = applyFieldFilter(candidates, cond.FieldFilter)

		partitions := partition(candidates, cond.GroupBy)

		var firstUser string
		var hasFirstUser bool
		if len(bound) > 0 && len(bound[0]) > 0 {
			firstUser, hasFirstUser = bound[0][0].User()
		}

		var prevMax time.Time
		var hasPrevMax bool
		if cond.AfterPrevious && len(bound) > 0 {
			prevGroup := bound[len(bound)-1]
			for _, ev := range prevGroup {
				if !hasPrevMax || ev.Timestamp.After(prevMax) {
					prevMax = ev.Timestamp
					hasPrevMax = true
				}
			}
		}

		winner, winnerEvents, matched := selectPartition(partitions, cond, firstUser, hasFirstUser, prevMax, hasPrevMax)

		graph.ConditionsEvaluated = append(graph.ConditionsEvaluated, decision.ConditionResult{
			Index:       i,
			Type:        string(cond.Type),
			Matched:     matched,
			BoundEvents: cloneAll(winnerEvents),
		})

		if !matched {
			idx := i
			graph.FailedAtCondition = &idx
			graph.Matched = false
			return Result{Graph: graph, Matched: false}
		}

		_ = winner
		bound = append(bound, winnerEvents)
	}

	graph.Matched = true
	return Result{Graph: graph, Bound: bound, Matched: true}
}

func applyFieldFilter(events []event.Event, filters []predicate.Predicate) []event.Event {
	if len(filters) == 0 {
		return events
	}
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if matchesAll(e, filters) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAll(e event.Event, filters []predicate.Predicate) bool {
	for _, p := range filters {
		if !p.Match(e) {
			return false
		}
	}
	return true
}

// partitionKey and partition are kept in this file (rather than a
// separate type) since they only exist during one condition's
// evaluation.
type partitionKey = string

func partition(events []event.Event, groupBy []string) map[partitionKey][]event.Event {
	if len(groupBy) == 0 {
		return map[partitionKey][]event.Event{"": events}
	}

	out := make(map[partitionKey][]event.Event)
	for _, e := range events {
		parts := make([]string, len(groupBy))
		for i, field := range groupBy {
			v, _ := e.String(field)
			parts[i] = v
		}
		key := strings.Join(parts, groupSeparator)
		out[key] = append(out[key], e)
	}
	return out
}

// selectPartition applies same_user / after_previous restrictions to each
// partition, tests the count predicate, and — among satisfying partitions
// — picks the one with the latest maximum timestamp, ties broken by
// lexicographic group key (spec §4.3 Tie-breaks).
func selectPartition(
	partitions map[partitionKey][]event.Event,
	cond rule.Condition,
	firstUser string, hasFirstUser bool,
	prevMax time.Time, hasPrevMax bool,
) (partitionKey, []event.Event, bool) {
	type candidate struct {
		key     partitionKey
		events  []event.Event
		maxTime time.Time
	}

	var winners []candidate

	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		evs := partitions[key]
		restricted := make([]event.Event, 0, len(evs))
		for _, e := range evs {
			if cond.SameUser && hasFirstUser {
				u, ok := e.User()
				if !ok || u != firstUser {
					continue
				}
			}
			if cond.AfterPrevious && hasPrevMax {
				if !(e.Timestamp.After(prevMax) && !e.Timestamp.After(prevMax.Add(time.Duration(cond.Within)*time.Second))) {
					continue
				}
			}
			restricted = append(restricted, e)
		}

		if !cond.Count.Satisfied(len(restricted)) {
			continue
		}

		var maxTime time.Time
		for _, e := range restricted {
			if e.Timestamp.After(maxTime) {
				maxTime = e.Timestamp
			}
		}

		winners = append(winners, candidate{key: key, events: restricted, maxTime: maxTime})
	}

	if len(winners) == 0 {
		return "", nil, false
	}

	best := winners[0]
	for _, c := range winners[1:] {
		if c.maxTime.After(best.maxTime) {
			best = c
		} else if c.maxTime.Equal(best.maxTime) && c.key < best.key {
			best = c
		}
	}

	return best.key, best.events, true
}

func cloneAll(events []event.Event) []event.Event {
	if events == nil {
		return nil
	}
	out := make([]event.Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}
