package watchdog

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/process"
)

// Options configures the controller
type Options struct {
	// SuspendedWaitReason is the wait reason every thread must report for a process to count as suspended
	SuspendedWaitReason process.WaitReason

	// Concurrency bounds parallel path evaluation; 0 or 1 evaluates sequentially
	Concurrency int

	// Arguments maps a tracked path to the argument string used when launching it
	Arguments map[string]string

	// DryRun queries and classifies without notifying, terminating or launching
	DryRun bool
}

func DefaultOptions() Options {
	return Options{
		SuspendedWaitReason: process.DefaultSuspendedWaitReason,
		Concurrency:         1,
	}
}

// Controller evaluates tracked paths: launch what is missing, restart what is suspended.
// It holds no state between calls.
type Controller struct {
	backend  process.Backend
	notifier Notifier
	options  Options
	logger   logging.Logger
}

func NewController(backend process.Backend, notifier Notifier, options Options, logger logging.Logger) (*Controller, error) {
	if backend == nil {
		return nil, errors.NewInvalidArgumentError("backend", "must not be nil")
	}
	if notifier == nil {
		return nil, errors.NewInvalidArgumentError("notifier", "must not be nil")
	}
	if options.Concurrency < 0 {
		return nil, errors.NewInvalidArgumentError("concurrency", "must not be negative")
	}
	if options.Concurrency == 0 {
		options.Concurrency = 1
	}
	return &Controller{
		backend:  backend,
		notifier: notifier,
		options:  options,
		logger:   logger,
	}, nil
}

// CycleOption adjusts a single RunCycle call
type CycleOption func(*cycleSettings)

type cycleSettings struct {
	dryRun func(path string) bool
}

// WithDryRunFor evaluates the paths for which dryRun returns true without acting on them
func WithDryRunFor(dryRun func(path string) bool) CycleOption {
	return func(s *cycleSettings) {
		s.dryRun = dryRun
	}
}

// DryRunFor resolves the per-path dry-run predicate carried by opts
func DryRunFor(opts ...CycleOption) func(path string) bool {
	settings := cycleSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	return func(path string) bool {
		return settings.dryRun != nil && settings.dryRun(path)
	}
}

// RunCycle evaluates every path once. Results keep input order and one path's error never stops the others.
func (c *Controller) RunCycle(ctx context.Context, paths []string, opts ...CycleOption) CycleReport {
	selected := DryRunFor(opts...)
	dryRun := func(path string) bool {
		return c.options.DryRun || selected(path)
	}

	start := time.Now()
	results := make([]PathResult, len(paths))

	if c.options.Concurrency <= 1 {
		for i, path := range paths {
			results[i] = c.evaluate(ctx, path, dryRun(path))
		}
	} else {
		// Plain group: a failing path must not cancel its siblings
		var g errgroup.Group
		g.SetLimit(c.options.Concurrency)
		for i, path := range paths {
			i, path := i, path
			g.Go(func() error {
				results[i] = c.evaluate(ctx, path, dryRun(path))
				return nil
			})
		}
		_ = g.Wait()
	}

	report := CycleReport{
		StartedAt: start,
		Duration:  time.Since(start),
		Results:   results,
	}
	counts := report.Counts()
	c.logger.Infof("Cycle done, paths: %d, launched: %d, restarted: %d, no action: %d, errors: %d, duration: %v",
		len(paths), counts[OutcomeLaunched], counts[OutcomeAlertedAndRestarted], counts[OutcomeNoAction], counts[OutcomeError], report.Duration)
	return report
}

// EvaluatePath runs the state machine for one tracked path
func (c *Controller) EvaluatePath(ctx context.Context, path string) PathResult {
	return c.evaluate(ctx, path, c.options.DryRun)
}

func (c *Controller) evaluate(ctx context.Context, path string, dryRun bool) (result PathResult) {
	start := time.Now()
	result = PathResult{Path: path, State: StateUnknown, DryRun: dryRun}
	defer func() {
		result.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		return c.fail(result, errors.NewCancelledError("cycle cancelled before evaluation", err))
	}

	handles, err := c.backend.FindByPath(ctx, path)
	if err != nil {
		return c.fail(result, err)
	}
	result.Matches = handles

	if len(handles) == 0 {
		result.State = StateNotRunning
		if dryRun {
			c.logger.Infof("Process not running (dry run), path: %s", path)
			result.Outcome = OutcomeNoAction
			return result
		}
		c.logger.Infof("Process not running, launching, path: %s", path)
		return c.launch(ctx, result)
	}

	suspended, threadErrs := c.classify(ctx, handles)
	result.ThreadErrors = threadErrs
	if len(threadErrs) == len(handles) {
		collection := errors.NewErrorCollection()
		for _, threadErr := range threadErrs {
			collection.Add(threadErr)
		}
		return c.fail(result, errors.NewProcessError("thread query failed for every matching process", collection.ToError()))
	}

	if len(suspended) == 0 {
		c.logger.Debugf("Process healthy, path: %s, matches: %d", path, len(handles))
		result.State = StateHealthy
		result.Outcome = OutcomeNoAction
		return result
	}

	result.State = StateSuspended
	result.Suspended = suspended
	if dryRun {
		c.logger.Warnf("Suspended process detected (dry run), path: %s, suspended: %d", path, len(suspended))
		result.Outcome = OutcomeNoAction
		return result
	}

	c.logger.Warnf("Suspended process detected, restarting, path: %s, suspended: %d", path, len(suspended))
	if err := c.notifier.Notify(ctx, AlertTitle, AlertMessage(suspended)); err != nil {
		c.logger.Errorf("Failed to deliver alert, path: %s, error: %v", path, err)
		result.NotifyErr = errors.NewNotifyError("alert delivery failed", err).WithContext("path", path)
	}

	report, err := c.backend.TerminateAll(ctx, path)
	result.Termination = &report
	if err != nil {
		return c.fail(result, err)
	}

	result = c.launch(ctx, result)
	if result.Outcome == OutcomeLaunched {
		result.Outcome = OutcomeAlertedAndRestarted
	}
	return result
}

// classify returns the suspended handles. A handle whose threads cannot be read counts as healthy.
func (c *Controller) classify(ctx context.Context, handles []process.Handle) ([]process.Handle, []error) {
	var (
		suspended  []process.Handle
		threadErrs []error
	)
	for _, handle := range handles {
		threads, err := c.backend.ThreadsOf(ctx, handle)
		if err != nil {
			c.logger.Warnf("Failed to query threads, process: %s, error: %v", handle, err)
			threadErrs = append(threadErrs, err)
			continue
		}
		if threads == nil {
			threads = []process.ThreadDescriptor{}
		}
		isSuspended, err := process.IsUniformlyInState(threads, c.options.SuspendedWaitReason)
		if err != nil {
			threadErrs = append(threadErrs, err)
			continue
		}
		if isSuspended {
			suspended = append(suspended, handle)
		}
	}
	return suspended, threadErrs
}

func (c *Controller) launch(ctx context.Context, result PathResult) PathResult {
	launched, err := c.backend.Launch(ctx, result.Path, c.argsFor(result.Path))
	if err != nil {
		return c.fail(result, err)
	}
	result.Launched = &launched
	result.Outcome = OutcomeLaunched
	return result
}

func (c *Controller) argsFor(path string) *string {
	args, ok := c.options.Arguments[path]
	if !ok {
		return nil
	}
	return &args
}

func (c *Controller) fail(result PathResult, err error) PathResult {
	c.logger.Errorf("Path evaluation failed, path: %s, error: %v", result.Path, err)
	result.Outcome = OutcomeError
	result.Err = err
	return result
}
