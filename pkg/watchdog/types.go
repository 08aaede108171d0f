package watchdog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/process"
)

// Outcome is the action taken for one tracked path in one cycle
type Outcome string

const (
	OutcomeLaunched            Outcome = "launched"
	OutcomeNoAction            Outcome = "no_action"
	OutcomeAlertedAndRestarted Outcome = "alerted_and_restarted"
	OutcomeError               Outcome = "error"
)

// State is what the controller observed for a tracked path
type State string

const (
	StateUnknown    State = "UNKNOWN"
	StateNotRunning State = "NOT_RUNNING"
	StateHealthy    State = "HEALTHY"
	StateSuspended  State = "SUSPENDED"
)

// AlertTitle is the notification title used for suspension alerts
const AlertTitle = "Alert"

// Notifier delivers operator alerts. Delivery failures never stop a restart.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// PathResult is the outcome of evaluating one tracked path
type PathResult struct {
	Path        string
	Outcome     Outcome
	State       State
	DryRun      bool
	Matches     []process.Handle
	Suspended   []process.Handle
	Termination *process.TerminationReport
	Launched    *process.Handle

	// ThreadErrors holds thread query failures; the affected handles count as healthy
	ThreadErrors []error
	NotifyErr    error
	Err          error
	Duration     time.Duration
}

// CycleReport lists per-path results in input order
type CycleReport struct {
	// CycleID correlates log lines of one cycle; set by the driver
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration
	Results   []PathResult
}

// Failed returns the results with an Error outcome
func (r CycleReport) Failed() []PathResult {
	var failed []PathResult
	for _, result := range r.Results {
		if result.Outcome == OutcomeError {
			failed = append(failed, result)
		}
	}
	return failed
}

// Succeeded returns the results without an Error outcome
func (r CycleReport) Succeeded() []PathResult {
	var succeeded []PathResult
	for _, result := range r.Results {
		if result.Outcome != OutcomeError {
			succeeded = append(succeeded, result)
		}
	}
	return succeeded
}

// Counts returns how many paths ended with each outcome
func (r CycleReport) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, result := range r.Results {
		counts[result.Outcome]++
	}
	return counts
}

// AlertMessage renders one alert line per suspended process
func AlertMessage(suspended []process.Handle) string {
	lines := make([]string, 0, len(suspended))
	for _, handle := range suspended {
		lines = append(lines, fmt.Sprintf("The process %s (pid %d) is being suspended! DO NOT SUSPEND THIS PROCESS!", handle.Name, handle.PID))
	}
	return strings.Join(lines, "\n")
}
