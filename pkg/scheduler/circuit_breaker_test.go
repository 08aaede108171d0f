package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestBreaker(config CircuitBreakerConfig) (*RestartCircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rcb := NewRestartCircuitBreaker(config, &TestLogger{})
	rcb.now = clock.Now
	return rcb, clock
}

func TestRestartCircuitBreaker_OpensAtLimit(t *testing.T) {
	rcb, clock := newTestBreaker(CircuitBreakerConfig{MaxRestarts: 3, Window: time.Minute})

	assert.False(t, rcb.RecordRestart("/bin/a"))
	clock.Advance(time.Second)
	assert.False(t, rcb.RecordRestart("/bin/a"))
	assert.False(t, rcb.IsOpen("/bin/a"))
	clock.Advance(time.Second)
	assert.True(t, rcb.RecordRestart("/bin/a"))
	assert.True(t, rcb.IsOpen("/bin/a"))

	// Opening is reported once
	assert.False(t, rcb.RecordRestart("/bin/a"))

	state := rcb.State("/bin/a")
	assert.True(t, state.IsOpen)
	assert.Equal(t, 4, state.RestartAttempts)
	assert.Equal(t, clock.now, state.LastRestartTime)

	assert.False(t, rcb.IsOpen("/bin/b"))
}

func TestRestartCircuitBreaker_SlidingWindow(t *testing.T) {
	rcb, clock := newTestBreaker(CircuitBreakerConfig{MaxRestarts: 2, Window: time.Minute})

	assert.False(t, rcb.RecordRestart("/bin/a"))
	clock.Advance(2 * time.Minute)
	// The first restart fell out of the window
	assert.False(t, rcb.RecordRestart("/bin/a"))
	assert.Equal(t, 1, rcb.State("/bin/a").RestartAttempts)
}

func TestRestartCircuitBreaker_ClosesAfterWindow(t *testing.T) {
	rcb, clock := newTestBreaker(CircuitBreakerConfig{MaxRestarts: 1, Window: time.Minute})

	assert.True(t, rcb.RecordRestart("/bin/a"))
	clock.Advance(30 * time.Second)
	assert.True(t, rcb.IsOpen("/bin/a"))
	clock.Advance(30 * time.Second)
	assert.False(t, rcb.IsOpen("/bin/a"))
	assert.Equal(t, 0, rcb.State("/bin/a").RestartAttempts)
}

func TestRestartCircuitBreaker_DisabledAndReset(t *testing.T) {
	disabled, _ := newTestBreaker(CircuitBreakerConfig{})
	for i := 0; i < 10; i++ {
		assert.False(t, disabled.RecordRestart("/bin/a"))
	}
	assert.False(t, disabled.IsOpen("/bin/a"))

	rcb, _ := newTestBreaker(CircuitBreakerConfig{MaxRestarts: 1, Window: time.Hour})
	assert.True(t, rcb.RecordRestart("/bin/a"))
	rcb.Reset("/bin/a")
	assert.False(t, rcb.IsOpen("/bin/a"))
	assert.Equal(t, CircuitBreakerState{}, rcb.State("/bin/a"))
}
