// Package alert implements the alert generator of spec §4.5: constructs
// Alert records from matched rules, fans them out to host-registered
// sinks, and retains a bounded in-memory ring for query.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/rule"
)

// Alert is a record derived from a matched rule (spec §3).
type Alert struct {
	ID               string
	Timestamp        time.Time
	RuleID           string
	RuleName         string
	Message          string
	Severity         rule.Severity
	Confidence       float64
	MitreTechniques  []string
	TriggerEvent     event.Event
	BoundEvents      [][]event.Event
	Tags             []string
	DecisionGraphRef string
}

// DefaultConfidence is the alert-template fallback of spec §4.3 Algorithm
// EVAL step 3 and spec §6's Configuration section.
const DefaultConfidence = 0.75

// Build constructs an Alert from a matched rule's first action template,
// per spec §4.3 step 3: message falls back to rule description then rule
// name; severity falls back to the rule's severity; confidence falls back
// to the rule's confidence, then DefaultConfidence.
func Build(r rule.Rule, bound [][]event.Event, trigger event.Event, graphID string, now time.Time, defaultConfidence float64) Alert {
	message := r.Action.Message
	if message == "" {
		message = r.Description
	}
	if message == "" {
		message = r.Name
	}

	severity := r.Action.Severity
	if severity == "" {
		severity = r.Severity
	}

	confidence := defaultConfidence
	if r.Action.Confidence != nil {
		confidence = *r.Action.Confidence
	} else if r.Confidence != nil {
		confidence = *r.Confidence
	}

	var tags []string
	if r.Action.Tag != "" {
		tags = []string{r.Action.Tag}
	}

	boundCopy := make([][]event.Event, len(bound))
	for i, group := range bound {
		g := make([]event.Event, len(group))
		for j, e := range group {
			g[j] = e.Clone()
		}
		boundCopy[i] = g
	}

	return Alert{
		ID:               uuid.NewString(),
		Timestamp:        now,
		RuleID:           r.ID,
		RuleName:         r.Name,
		Message:          message,
		Severity:         severity,
		Confidence:       confidence,
		MitreTechniques:  r.MitreTechniques,
		TriggerEvent:     trigger.Clone(),
		BoundEvents:      boundCopy,
		Tags:             tags,
		DecisionGraphRef: graphID,
	}
}
