package process

import (
	"fmt"
	"strings"
)

// Handle is a point-in-time view of a running OS process.
// It goes stale as soon as the process exits and must not be cached across cycles.
type Handle struct {
	PID            int32  `json:"pid"`
	Name           string `json:"name"`
	ExecutablePath string `json:"executable_path"`
	Host           string `json:"host,omitempty"`
}

func (h Handle) String() string {
	if h.Host != "" {
		return fmt.Sprintf("%s (pid %d on %s)", h.Name, h.PID, h.Host)
	}
	return fmt.Sprintf("%s (pid %d)", h.Name, h.PID)
}

// ThreadDescriptor describes one thread of a process.
// OwnerPID refers back to the owning Handle by PID.
type ThreadDescriptor struct {
	ThreadID   int32      `json:"thread_id"`
	OwnerPID   int32      `json:"owner_pid"`
	WaitReason WaitReason `json:"wait_reason"`
}

// WaitReason explains why a thread is not running.
// Values follow the Windows KWAIT_REASON numbering.
type WaitReason int

const (
	WaitReasonRunning     WaitReason = -1 // thread is not waiting
	WaitReasonExecutive   WaitReason = 0
	WaitReasonFreePage    WaitReason = 1
	WaitReasonPageIn      WaitReason = 2
	WaitReasonPoolAlloc   WaitReason = 3
	WaitReasonDelay       WaitReason = 4
	WaitReasonSuspended   WaitReason = 5
	WaitReasonUserRequest WaitReason = 6
	WaitReasonEventPair   WaitReason = 7
	WaitReasonQueue       WaitReason = 8
	WaitReasonUnknown     WaitReason = 20
)

// DefaultSuspendedWaitReason is the wait reason that marks a thread as suspended
const DefaultSuspendedWaitReason = WaitReasonSuspended

var waitReasonNames = map[WaitReason]string{
	WaitReasonRunning:     "running",
	WaitReasonExecutive:   "executive",
	WaitReasonFreePage:    "free_page",
	WaitReasonPageIn:      "page_in",
	WaitReasonPoolAlloc:   "pool_allocation",
	WaitReasonDelay:       "delay_execution",
	WaitReasonSuspended:   "suspended",
	WaitReasonUserRequest: "user_request",
	WaitReasonEventPair:   "event_pair",
	WaitReasonQueue:       "queue",
	WaitReasonUnknown:     "unknown",
}

func (w WaitReason) String() string {
	if name, ok := waitReasonNames[w]; ok {
		return name
	}
	return fmt.Sprintf("wait_reason(%d)", int(w))
}

// Filter selects processes by exactly one criterion.
// Backends compare values structurally; raw filter values are never spliced into query text.
type Filter struct {
	ExecutablePath string
	Name           string
}

func (f Filter) String() string {
	if f.ExecutablePath != "" {
		return "executable_path=" + f.ExecutablePath
	}
	return "name=" + f.Name
}

// Target identifies the host whose process table is queried
type Target struct {
	Host      string `yaml:"host"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Namespace string `yaml:"namespace,omitempty"`
}

// IsLocal reports whether the target is the local machine
func (t Target) IsLocal() bool {
	switch strings.ToLower(strings.TrimSpace(t.Host)) {
	case "", "localhost", "127.0.0.1", "::1", ".":
		return true
	}
	return false
}

// TerminationOutcomeKind tags a per-handle termination outcome
type TerminationOutcomeKind string

const (
	Terminated        TerminationOutcomeKind = "terminated"
	TerminationFailed TerminationOutcomeKind = "failed"
)

// TerminationOutcome records what happened to one handle
type TerminationOutcome struct {
	Kind   TerminationOutcomeKind `json:"kind"`
	Handle Handle                 `json:"handle"`
	Cause  error                  `json:"-"`
}

// TerminationReport enumerates per-handle outcomes of TerminateAll
type TerminationReport struct {
	Path     string               `json:"path"`
	Outcomes []TerminationOutcome `json:"outcomes"`
}

// Failed returns the outcomes that did not terminate
func (r TerminationReport) Failed() []TerminationOutcome {
	var failed []TerminationOutcome
	for _, outcome := range r.Outcomes {
		if outcome.Kind == TerminationFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// TerminatedCount returns how many handles were terminated
func (r TerminationReport) TerminatedCount() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Kind == Terminated {
			count++
		}
	}
	return count
}

// PartialTerminationError lists the handles that could not be terminated
type PartialTerminationError struct {
	Path   string
	Failed []TerminationOutcome
}

func (e *PartialTerminationError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, outcome := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", outcome.Handle, outcome.Cause))
	}
	return fmt.Sprintf("failed to terminate %d process(es) for %s: %s", len(e.Failed), e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes every per-handle cause
func (e *PartialTerminationError) Unwrap() []error {
	causes := make([]error, 0, len(e.Failed))
	for _, outcome := range e.Failed {
		if outcome.Cause != nil {
			causes = append(causes, outcome.Cause)
		}
	}
	return causes
}
