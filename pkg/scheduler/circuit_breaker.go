package scheduler

import (
	"sync"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// CircuitBreakerConfig limits automatic restarts per path
type CircuitBreakerConfig struct {
	// MaxRestarts inside Window opens the breaker; 0 disables it
	MaxRestarts int           `yaml:"max_restarts"`
	Window      time.Duration `yaml:"window"`
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRestarts: 5,
		Window:      10 * time.Minute,
	}
}

// CircuitBreakerState provides insight into a path's breaker
type CircuitBreakerState struct {
	IsOpen          bool      `json:"is_open"`
	RestartAttempts int       `json:"restart_attempts"`
	LastRestartTime time.Time `json:"last_restart_time"`
	OpenedAt        time.Time `json:"opened_at,omitempty"`
}

type pathBreaker struct {
	restarts []time.Time
	open     bool
	openedAt time.Time
}

// RestartCircuitBreaker counts restarts per path in a sliding window.
// An open breaker closes again once Window has passed since it opened.
type RestartCircuitBreaker struct {
	config CircuitBreakerConfig
	logger logging.Logger
	now    func() time.Time

	paths map[string]*pathBreaker
	mutex sync.Mutex
}

func NewRestartCircuitBreaker(config CircuitBreakerConfig, logger logging.Logger) *RestartCircuitBreaker {
	return &RestartCircuitBreaker{
		config: config,
		logger: logger,
		now:    time.Now,
		paths:  make(map[string]*pathBreaker),
	}
}

func (rcb *RestartCircuitBreaker) enabled() bool {
	return rcb.config.MaxRestarts > 0 && rcb.config.Window > 0
}

// IsOpen reports whether restarts of path are currently paused
func (rcb *RestartCircuitBreaker) IsOpen(path string) bool {
	rcb.mutex.Lock()
	defer rcb.mutex.Unlock()

	state, ok := rcb.paths[path]
	if !ok || !state.open {
		return false
	}
	if rcb.now().Sub(state.openedAt) >= rcb.config.Window {
		rcb.logger.Infof("Closing circuit breaker, path: %s, open for: %v", path, rcb.now().Sub(state.openedAt))
		state.open = false
		state.restarts = nil
		return false
	}
	return true
}

// RecordRestart counts a restart of path and reports whether this opened the breaker
func (rcb *RestartCircuitBreaker) RecordRestart(path string) bool {
	if !rcb.enabled() {
		return false
	}

	rcb.mutex.Lock()
	defer rcb.mutex.Unlock()

	state, ok := rcb.paths[path]
	if !ok {
		state = &pathBreaker{}
		rcb.paths[path] = state
	}

	now := rcb.now()
	state.restarts = append(pruneBefore(state.restarts, now.Add(-rcb.config.Window)), now)

	if state.open || len(state.restarts) < rcb.config.MaxRestarts {
		return false
	}

	rcb.logger.Errorf("Max restarts reached, opening circuit breaker, path: %s, restarts: %d, window: %v",
		path, len(state.restarts), rcb.config.Window)
	state.open = true
	state.openedAt = now
	return true
}

// State returns a snapshot of the breaker for path
func (rcb *RestartCircuitBreaker) State(path string) CircuitBreakerState {
	rcb.mutex.Lock()
	defer rcb.mutex.Unlock()

	state, ok := rcb.paths[path]
	if !ok {
		return CircuitBreakerState{}
	}
	snapshot := CircuitBreakerState{
		IsOpen:          state.open,
		RestartAttempts: len(state.restarts),
		OpenedAt:        state.openedAt,
	}
	if n := len(state.restarts); n > 0 {
		snapshot.LastRestartTime = state.restarts[n-1]
	}
	return snapshot
}

func (rcb *RestartCircuitBreaker) Reset(path string) {
	rcb.mutex.Lock()
	defer rcb.mutex.Unlock()

	if state, ok := rcb.paths[path]; ok && (state.open || len(state.restarts) > 0) {
		rcb.logger.Infof("Resetting circuit breaker, path: %s, previous restarts: %d", path, len(state.restarts))
		delete(rcb.paths, path)
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
