package supervisor

import (
	"context"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/metrics"
	"github.com/core-tools/hsu-watchdog/pkg/notify"
	"github.com/core-tools/hsu-watchdog/pkg/pathsource"
	"github.com/core-tools/hsu-watchdog/pkg/process"
	"github.com/core-tools/hsu-watchdog/pkg/scheduler"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

// Dependencies overrides what the supervisor would otherwise build from the OS
type Dependencies struct {
	// Backend defaults to the OS backend for the configured target
	Backend process.Backend

	// In and Out serve the interactive path prompt; they default to stdin and stdout
	In  io.Reader
	Out io.Writer
}

// Supervisor wires the configured collaborators around one watchdog controller
type Supervisor struct {
	config    *WatchdogConfig
	source    pathsource.Source
	notifier  *notify.MultiNotifier
	scheduler *scheduler.Scheduler
	recorder  *metrics.Recorder
	logger    logging.Logger
}

// New builds a supervisor from a validated configuration
func New(config *WatchdogConfig, deps Dependencies, logger logging.Logger) (*Supervisor, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if deps.In == nil {
		deps.In = os.Stdin
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	backend := deps.Backend
	if backend == nil {
		var err error
		backend, err = process.NewBackend(config.Target, process.BackendOptions{
			TerminateTimeout: config.Watchdog.TerminateTimeout,
		}, logging.WithPrefix(logger, "process: "))
		if err != nil {
			return nil, err
		}
	}

	notifier, err := NewNotifier(config.Notify, logger)
	if err != nil {
		return nil, err
	}

	controller, err := watchdog.NewController(backend, notifier, ControllerOptions(config), logging.WithPrefix(logger, "watchdog: "))
	if err != nil {
		return nil, err
	}

	source := NewSource(config, deps.In, deps.Out, logger)
	recorder := metrics.NewRecorder()

	sched, err := scheduler.New(controller, source, notifier, scheduler.Options{
		Interval:       config.Watchdog.Interval,
		Retry:          *config.Retry,
		CircuitBreaker: *config.CircuitBreaker,
	}, recorder, logging.WithPrefix(logger, "scheduler: "))
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		config:    config,
		source:    source,
		notifier:  notifier,
		scheduler: sched,
		recorder:  recorder,
		logger:    logger,
	}, nil
}

// ControllerOptions derives controller options from configuration
func ControllerOptions(config *WatchdogConfig) watchdog.Options {
	options := watchdog.DefaultOptions()
	if config.Watchdog.SuspendedWaitReason != nil {
		options.SuspendedWaitReason = process.WaitReason(*config.Watchdog.SuspendedWaitReason)
	}
	options.Concurrency = config.Watchdog.Concurrency
	options.Arguments = config.Arguments()
	options.DryRun = config.Watchdog.DryRun
	return options
}

// NewSource picks the path source: inline paths first, else the paths file with an optional prompt fallback
func NewSource(config *WatchdogConfig, in io.Reader, out io.Writer, logger logging.Logger) pathsource.Source {
	if len(config.Paths) > 0 {
		return pathsource.NewStaticSource(config.TrackedPaths(), logger)
	}

	file := pathsource.NewJSONFileSource(config.PathsFile, logger)
	if config.PromptFallback == nil || !*config.PromptFallback {
		return file
	}
	return pathsource.NewFallbackSource(file, pathsource.NewPromptSource(in, out, logger), logger)
}

// NewNotifier fans alerts out to every enabled channel
func NewNotifier(config NotifyConfig, logger logging.Logger) (*notify.MultiNotifier, error) {
	var notifiers []notify.Notifier

	if config.Log == nil || *config.Log {
		notifiers = append(notifiers, notify.NewLogNotifier(logger))
	}
	if config.MessageBox {
		messageBox, err := notify.NewMessageBoxNotifier(logger)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, messageBox)
	}
	if config.Webhook.URL != "" {
		webhook, err := notify.NewWebhookNotifier(config.Webhook, logger)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, webhook)
	}

	if len(notifiers) == 0 {
		logger.Warnf("No alert channel enabled, suspended processes will be restarted silently")
	}
	return notify.NewMultiNotifier(notifiers...), nil
}

// Recorder exposes the metrics recorder
func (s *Supervisor) Recorder() *metrics.Recorder {
	return s.recorder
}

// RunOnce runs a single cycle
func (s *Supervisor) RunOnce(ctx context.Context) (watchdog.CycleReport, error) {
	return s.scheduler.RunOnce(ctx)
}

// Run drives cycles until ctx is done, serving metrics alongside when configured.
// A single pass configuration returns after the first cycle.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Stop the metrics server once the scheduler is done
		defer cancel()
		return s.scheduler.Run(gctx)
	})

	if address := s.config.Metrics.Address; address != "" {
		g.Go(func() error {
			return s.recorder.Serve(gctx, address, s.logger)
		})
	}

	if err := g.Wait(); err != nil {
		if errors.IsCancelledError(err) {
			return nil
		}
		return err
	}
	return nil
}
