// Package decision implements the per-evaluation trace of spec §4.4: one
// DecisionGraph per rule evaluation pass, recording which conditions
// matched, which events were bound, and where evaluation stopped. The
// node/edge shape is grounded on the teacher's workflow DAG
// (orchestration/workflow_dag.go) — a rule's conditions form a strictly
// linear chain rather than a general graph, so the DAG collapses to
// rule -> cond1 -> cond2 -> ... -> terminal.
package decision

import (
	"time"

	"github.com/google/uuid"

	"github.com/sec-correlate/correlator/internal/event"
)

// ConditionResult is one evaluated condition's outcome, bound into the
// graph regardless of whether it matched (spec §3 DecisionGraph).
type ConditionResult struct {
	Index       int
	Type        string
	Matched     bool
	BoundEvents []event.Event
}

// Graph is the immutable trace of one rule evaluation pass.
type Graph struct {
	ID                  string
	RuleID              string
	RuleName            string
	TriggerEvent        event.Event
	Timestamp           time.Time
	ConditionsEvaluated []ConditionResult
	Matched             bool
	FailedAtCondition   *int // nil when Matched
}

// NewGraph stamps a fresh UUID, grounded on the teacher's use of
// uuid.New() for entity identifiers (core/redis_registry.go ServiceInfo).
func NewGraph(ruleID, ruleName string, trigger event.Event, now time.Time) *Graph {
	return &Graph{
		ID:           uuid.NewString(),
		RuleID:       ruleID,
		RuleName:     ruleName,
		TriggerEvent: trigger.Clone(),
		Timestamp:    now,
	}
}
