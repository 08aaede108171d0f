package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/metrics"
	"github.com/core-tools/hsu-watchdog/pkg/pathsource"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

// Evaluator runs watchdog cycles; implemented by watchdog.Controller
type Evaluator interface {
	RunCycle(ctx context.Context, paths []string, opts ...watchdog.CycleOption) watchdog.CycleReport
	EvaluatePath(ctx context.Context, path string) watchdog.PathResult
}

type Options struct {
	// Interval between cycles; 0 runs a single pass
	Interval       time.Duration
	Retry          RetrySettings
	CircuitBreaker CircuitBreakerConfig
}

// Scheduler drives the controller: one cycle at a time, retrying failed paths and pausing restart loops
type Scheduler struct {
	evaluator Evaluator
	source    pathsource.Source
	notifier  watchdog.Notifier
	options   Options
	breaker   *RestartCircuitBreaker
	recorder  *metrics.Recorder
	logger    logging.Logger
}

// New creates a scheduler. recorder may be nil.
func New(evaluator Evaluator, source pathsource.Source, notifier watchdog.Notifier, options Options, recorder *metrics.Recorder, logger logging.Logger) (*Scheduler, error) {
	if evaluator == nil {
		return nil, errors.NewInvalidArgumentError("evaluator", "must not be nil")
	}
	if source == nil {
		return nil, errors.NewInvalidArgumentError("source", "must not be nil")
	}
	if notifier == nil {
		return nil, errors.NewInvalidArgumentError("notifier", "must not be nil")
	}
	if options.Interval < 0 {
		return nil, errors.NewInvalidArgumentError("interval", "must not be negative")
	}

	return &Scheduler{
		evaluator: evaluator,
		source:    source,
		notifier:  notifier,
		options:   options,
		breaker:   NewRestartCircuitBreaker(options.CircuitBreaker, logger),
		recorder:  recorder,
		logger:    logger,
	}, nil
}

// Breaker exposes the restart circuit breaker
func (s *Scheduler) Breaker() *RestartCircuitBreaker {
	return s.breaker
}

// Run runs a cycle immediately and then every Interval until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.RunOnce(ctx); err != nil {
		if s.options.Interval <= 0 {
			return err
		}
		s.logger.Errorf("Cycle failed, error: %v", err)
	}
	if s.options.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.options.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Errorf("Cycle failed, error: %v", err)
			}
		}
	}
}

// RunOnce loads the paths, runs one cycle and retries paths that failed
func (s *Scheduler) RunOnce(ctx context.Context) (watchdog.CycleReport, error) {
	cycleID := uuid.New().String()
	logger := logging.WithPrefix(s.logger, fmt.Sprintf("cycle %s: ", cycleID))

	paths, err := s.source.Paths(ctx)
	if err != nil {
		return watchdog.CycleReport{CycleID: cycleID}, err
	}
	logger.Debugf("Starting cycle, paths: %d", len(paths))

	report := s.evaluator.RunCycle(ctx, paths, watchdog.WithDryRunFor(s.breaker.IsOpen))
	report.CycleID = cycleID

	for i, result := range report.Results {
		if result.DryRun && s.breaker.IsOpen(result.Path) {
			logger.Warnf("Restarts paused by circuit breaker, path: %s, state: %s", result.Path, result.State)
		}
		if result.Outcome != watchdog.OutcomeError || result.DryRun || !retryable(result.Err) || !s.options.Retry.Enabled() {
			continue
		}
		report.Results[i] = s.retry(ctx, result, logger)
	}

	for _, result := range report.Results {
		if result.Outcome == watchdog.OutcomeAlertedAndRestarted && s.breaker.RecordRestart(result.Path) {
			s.circuitOpened(ctx, result.Path, logger)
		}
	}

	if s.recorder != nil {
		s.recorder.ObserveCycle(report)
	}
	return report, nil
}

func (s *Scheduler) retry(ctx context.Context, failed watchdog.PathResult, logger logging.Logger) watchdog.PathResult {
	last := failed
	attempts := 0

	timer := time.NewTimer(s.options.Retry.InitialInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return last
	case <-timer.C:
	}

	err := WaitUntil(ctx, s.options.Retry, func() error {
		attempts++
		last = s.evaluator.EvaluatePath(ctx, failed.Path)
		if last.Outcome != watchdog.OutcomeError {
			return nil
		}
		if !retryable(last.Err) {
			return backoff.Permanent(last.Err)
		}
		return last.Err
	})
	if err != nil {
		logger.Errorf("Path still failing after retries, path: %s, attempts: %d, error: %v", failed.Path, attempts, err)
		return last
	}

	logger.Infof("Path recovered after retry, path: %s, attempts: %d, outcome: %s", failed.Path, attempts, last.Outcome)
	return last
}

func (s *Scheduler) circuitOpened(ctx context.Context, path string, logger logging.Logger) {
	if s.recorder != nil {
		s.recorder.CircuitOpened()
	}
	state := s.breaker.State(path)
	message := fmt.Sprintf("The process at %s was restarted %d times within %v. Automatic restarts are paused.",
		path, state.RestartAttempts, s.options.CircuitBreaker.Window)
	if err := s.notifier.Notify(ctx, watchdog.AlertTitle, message); err != nil {
		logger.Errorf("Failed to deliver circuit breaker alert, path: %s, error: %v", path, err)
	}
}

// retryable rejects caller mistakes and cancellation
func retryable(err error) bool {
	return err != nil &&
		!errors.IsInvalidArgumentError(err) &&
		!errors.IsConfigurationError(err) &&
		!errors.IsCancelledError(err)
}
