package alert

import "encoding/json"

// alertWire mirrors the egress JSON shape of spec §6 exactly.
type alertWire struct {
	Timestamp       int64             `json:"timestamp"`
	RuleID          string            `json:"rule_id"`
	RuleName        string            `json:"rule_name"`
	Message         string            `json:"message"`
	Severity        string            `json:"severity"`
	Confidence      float64           `json:"confidence"`
	MitreTechniques []string          `json:"mitre_techniques"`
	TriggerEvent    json.RawMessage   `json:"trigger_event"`
	BoundEvents     []json.RawMessage `json:"bound_events"`
	Tags            []string          `json:"tags"`
}

// MarshalJSON implements the egress format of spec §6 ("Egress — alerts").
func (a Alert) MarshalJSON() ([]byte, error) {
	trigger, err := json.Marshal(a.TriggerEvent)
	if err != nil {
		return nil, err
	}

	groups := make([]json.RawMessage, len(a.BoundEvents))
	for i, g := range a.BoundEvents {
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		groups[i] = raw
	}

	wire := alertWire{
		Timestamp:       a.Timestamp.Unix(),
		RuleID:          a.RuleID,
		RuleName:        a.RuleName,
		Message:         a.Message,
		Severity:        string(a.Severity),
		Confidence:      a.Confidence,
		MitreTechniques: a.MitreTechniques,
		TriggerEvent:    trigger,
		BoundEvents:     groups,
		Tags:            a.Tags,
	}
	return json.Marshal(wire)
}
