package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSinkCircuit_OpensAfterThreshold(t *testing.T) {
	c := newSinkCircuit(3, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, c.allow(now))
		c.recordFailure(now)
	}

	assert.False(t, c.allow(now), "circuit should be open after hitting threshold")
}

func TestSinkCircuit_HalfOpensAfterTimeout(t *testing.T) {
	c := newSinkCircuit(1, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.recordFailure(now)
	assert.False(t, c.allow(now))

	later := now.Add(2 * time.Second)
	assert.True(t, c.allow(later), "circuit should probe again after the cooldown elapses")
}

func TestSinkCircuit_SuccessResetsFailureCount(t *testing.T) {
	c := newSinkCircuit(3, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.recordFailure(now)
	c.recordFailure(now)
	c.recordSuccess()
	c.recordFailure(now)

	assert.True(t, c.allow(now), "a single failure after reset must not reopen the circuit")
	assert.False(t, c.Degraded())
}

func TestSinkCircuit_HalfOpenProbeFailureReopens(t *testing.T) {
	c := newSinkCircuit(1, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.recordFailure(now)
	later := now.Add(2 * time.Second)
	assert.True(t, c.allow(later))

	c.recordFailure(later)
	assert.True(t, c.Degraded())
	assert.False(t, c.allow(later))
}
