package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sec-correlate/correlator/internal/event"
)

func TestGraph_DOT_RendersMatchedResult(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := event.New(event.TypeAuthSuccess, base, "test", nil, base)
	g := NewGraph("cred-stuffing", "Credential Stuffing", trigger, base)
	g.Matched = true
	g.ConditionsEvaluated = []ConditionResult{
		{Index: 0, Type: "auth_fail", Matched: true},
		{Index: 1, Type: "auth_success", Matched: true},
	}

	out := string(g.DOT())
	assert.Contains(t, out, "digraph CorrelationGraph")
	assert.Contains(t, out, "cond1")
	assert.Contains(t, out, "cond2")
	assert.Contains(t, out, "MATCHED")
	assert.Contains(t, out, "lightgreen")
	assert.Contains(t, out, "rule -> cond1")
	assert.Contains(t, out, "cond1 -> cond2")
	assert.Contains(t, out, "cond2 -> result")
}

func TestGraph_DOT_RendersFailureAtCondition(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := event.New(event.TypeAuthFail, base, "test", nil, base)
	g := NewGraph("rule", "Rule", trigger, base)
	failedAt := 0
	g.FailedAtCondition = &failedAt
	g.ConditionsEvaluated = []ConditionResult{
		{Index: 0, Type: "auth_fail", Matched: false},
	}

	out := string(g.DOT())
	assert.Contains(t, out, "NO MATCH")
	assert.Contains(t, out, "lightcoral")
	assert.NotContains(t, out, "MATCHED\\nAlert")
}
