package correlator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sec-correlate/correlator/internal/config"
	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/logging"
	"github.com/sec-correlate/correlator/internal/rule"
	"github.com/sec-correlate/correlator/pkg/sink"
)

const credStuffingYAML = `
rules:
  - id: cred-stuffing
    name: Credential Stuffing
    severity: HIGH
    conditions:
      - type: auth_fail
        window: 300
        count: ">=5"
      - type: auth_success
        window: 60
        count: ">=1"
        same_user: true
        after_previous: true
        within: 60
    actions:
      - message: "Possible credential stuffing"
`

func newTestCore(t *testing.T) *Core {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DrainDeadline = 200 * time.Millisecond
	return New(cfg, nil, logging.NoOpLogger{}, nil)
}

func loadRules(t *testing.T, core *Core, yamlDoc string) {
	t.Helper()
	doc, errs := rule.ParseDocument(strings.NewReader(yamlDoc), config.DefaultConfig().RuleDefaults())
	require.Empty(t, errs)
	core.LoadRules(doc)
}

func TestCore_EmitsAlertOnMatch(t *testing.T) {
	core := newTestCore(t)
	loadRules(t, core, credStuffingYAML)

	ch := sink.NewChannelSink(4)
	core.RegisterSink(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go core.Run(ctx)
	defer core.Stop()

	now := time.Now()
	for i := 0; i < 5; i++ {
		ev := event.New(event.TypeAuthFail, now.Add(time.Duration(i)*time.Millisecond), "ingress", map[string]interface{}{"user": "alice"}, now)
		require.True(t, core.Submit(ctx, ev))
	}
	success := event.New(event.TypeAuthSuccess, now.Add(10*time.Millisecond), "ingress", map[string]interface{}{"user": "alice"}, now)
	require.True(t, core.Submit(ctx, success))

	select {
	case a := <-ch.Alerts():
		assert.Equal(t, "cred-stuffing", a.RuleID)
		assert.Equal(t, rule.SeverityHigh, a.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert")
	}

	// Give the loop a moment to update stats after the alert send.
	time.Sleep(20 * time.Millisecond)
	snap := core.Stats()
	assert.Equal(t, int64(6), snap.EventsProcessed)
	assert.GreaterOrEqual(t, snap.CorrelationsFound, int64(1))
	assert.GreaterOrEqual(t, snap.AlertsGenerated, int64(1))
}

func TestCore_NoMatchProducesNoAlert(t *testing.T) {
	core := newTestCore(t)
	loadRules(t, core, credStuffingYAML)

	ch := sink.NewChannelSink(4)
	core.RegisterSink(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go core.Run(ctx)
	defer core.Stop()

	now := time.Now()
	for i := 0; i < 2; i++ {
		ev := event.New(event.TypeAuthFail, now.Add(time.Duration(i)*time.Millisecond), "ingress", map[string]interface{}{"user": "alice"}, now)
		require.True(t, core.Submit(ctx, ev))
	}

	select {
	case a := <-ch.Alerts():
		t.Fatalf("unexpected alert: %+v", a)
	case <-time.After(200 * time.Millisecond):
	}

	snap := core.Stats()
	assert.Equal(t, int64(2), snap.EventsProcessed)
	assert.Equal(t, int64(0), snap.CorrelationsFound)
}

func TestCore_DecisionGraphRecordedForEveryEvaluation(t *testing.T) {
	core := newTestCore(t)
	loadRules(t, core, credStuffingYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go core.Run(ctx)
	defer core.Stop()

	now := time.Now()
	ev := event.New(event.TypeAuthFail, now, "ingress", map[string]interface{}{"user": "alice"}, now)
	require.True(t, core.Submit(ctx, ev))

	require.Eventually(t, func() bool {
		return len(core.DecisionGraphs()) >= 1
	}, time.Second, 10*time.Millisecond)

	graphs := core.DecisionGraphs()
	g := graphs[len(graphs)-1]
	assert.Equal(t, "cred-stuffing", g.RuleID)
	assert.False(t, g.Matched)
	require.NotNil(t, g.FailedAtCondition)
	assert.Equal(t, 0, *g.FailedAtCondition)
}

func TestCore_StopDrainsQueueWithinDeadline(t *testing.T) {
	core := newTestCore(t)
	loadRules(t, core, credStuffingYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go core.Run(ctx)

	now := time.Now()
	ev := event.New(event.TypeAuthFail, now, "ingress", map[string]interface{}{"user": "alice"}, now)
	require.True(t, core.Submit(ctx, ev))

	stopped := make(chan struct{})
	go func() {
		core.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return within the drain deadline")
	}
}
