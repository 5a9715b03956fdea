package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sec-correlate/correlator/internal/event"
)

func mkGraph(ruleID string, at time.Time) *Graph {
	trigger := event.New(event.TypeAuthFail, at, "test", nil, at)
	return NewGraph(ruleID, ruleID, trigger, at)
}

func TestRecorder_RetainsUpToCapacity(t *testing.T) {
	r := NewRecorder(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r.Record(mkGraph("rule", base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, r.Len())
}

func TestRecorder_EvictsOldestWhenFull(t *testing.T) {
	r := NewRecorder(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r.Record(mkGraph("first", base))
	r.Record(mkGraph("second", base.Add(time.Second)))
	r.Record(mkGraph("third", base.Add(2*time.Second)))

	assert.Equal(t, 2, r.Len())
	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].RuleID)
	assert.Equal(t, "third", all[1].RuleID)
}

func TestRecorder_AllReturnsOldestFirst(t *testing.T) {
	r := NewRecorder(4)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		r.Record(mkGraph(string(rune('a'+i)), base.Add(time.Duration(i)*time.Second)))
	}

	all := r.All()
	require.Len(t, all, 4)
	for i, want := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, all[i].RuleID)
	}
}

func TestRecorder_AtIndexesIntoOldestFirstOrder(t *testing.T) {
	r := NewRecorder(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Record(mkGraph("first", base))
	r.Record(mkGraph("second", base.Add(time.Second)))

	g, ok := r.At(0)
	require.True(t, ok)
	assert.Equal(t, "first", g.RuleID)

	g, ok = r.At(1)
	require.True(t, ok)
	assert.Equal(t, "second", g.RuleID)

	_, ok = r.At(2)
	assert.False(t, ok)

	_, ok = r.At(-1)
	assert.False(t, ok)
}

func TestRecorder_ZeroOrNegativeCapacityDefaults(t *testing.T) {
	r := NewRecorder(0)
	assert.Equal(t, 512, r.cap)

	r = NewRecorder(-5)
	assert.Equal(t, 512, r.cap)
}

func TestNewGraph_StampsUniqueID(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g1 := mkGraph("rule", base)
	g2 := mkGraph("rule", base)
	assert.NotEmpty(t, g1.ID)
	assert.NotEqual(t, g1.ID, g2.ID)
}
