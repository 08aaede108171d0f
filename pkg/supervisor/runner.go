package supervisor

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/processfile"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

// RunOptions carries command line overrides on top of the configuration file
type RunOptions struct {
	ConfigFile string

	// Config skips loading when already prepared
	Config *WatchdogConfig

	Paths          []string
	Interval       *time.Duration
	RunDuration    time.Duration
	Once           bool
	DryRun         bool
	LogLevel       string
	MetricsAddress string

	Deps Dependencies
}

// Prepare loads the configuration file (or the defaults), applies overrides and validates the result
func Prepare(opts RunOptions) (*WatchdogConfig, error) {
	config := opts.Config
	if config == nil {
		if opts.ConfigFile != "" {
			loaded, err := LoadConfigFromFile(opts.ConfigFile)
			if err != nil {
				return nil, err
			}
			config = loaded
		} else {
			config = DefaultConfig()
		}
	}

	if len(opts.Paths) > 0 {
		config.Paths = make([]PathConfig, 0, len(opts.Paths))
		for _, path := range opts.Paths {
			config.Paths = append(config.Paths, PathConfig{Path: path})
		}
	}
	if opts.Interval != nil {
		config.Watchdog.Interval = *opts.Interval
	}
	if opts.Once {
		config.Watchdog.Interval = 0
	}
	if opts.DryRun {
		config.Watchdog.DryRun = true
	}
	if opts.LogLevel != "" {
		config.Watchdog.LogLevel = opts.LogLevel
		config.explicitLogLevel = true
	}
	if opts.MetricsAddress != "" {
		config.Metrics.Address = opts.MetricsAddress
	}

	if err := ValidateConfig(config); err != nil {
		if opts.ConfigFile != "" {
			return nil, errors.NewConfigurationError("configuration validation failed", err).WithContext("config_file", opts.ConfigFile)
		}
		return nil, err
	}
	return config, nil
}

// ValidateConfigFile validates a configuration file without running it
func ValidateConfigFile(configFile string) error {
	_, err := Prepare(RunOptions{ConfigFile: configFile})
	return err
}

// Run supervises the configured paths until a signal arrives, the run duration passes
// or, for a single pass configuration, the first cycle completes
func Run(opts RunOptions, logger logging.Logger) error {
	logger.Infof("Watchdog runner starting...")

	config, err := Prepare(opts)
	if err != nil {
		return err
	}
	summary := GetConfigSummary(config)
	logger.Infof("Configuration loaded, target: %s, paths: %d, interval: %v, notifiers: %v",
		summary.Target, len(summary.Paths), summary.Interval, summary.Notifiers)

	ctx := context.Background()
	if opts.RunDuration > 0 {
		logger.Infof("Using RUN DURATION of %v", opts.RunDuration)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RunDuration)
		defer cancel()
	}
	ctx, stop := withSignals(ctx, logger)
	defer stop()

	if config.Watchdog.PIDFile != "" {
		pidFile, err := processfile.Acquire(pidFilePath(config.Watchdog.PIDFile), logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := pidFile.Release(); err != nil {
				logger.Warnf("Failed to release PID file, error: %v", err)
			}
		}()
	}

	sup, err := New(config, opts.Deps, logger)
	if err != nil {
		return err
	}

	if err := sup.Run(ctx); err != nil {
		return err
	}

	logger.Infof("Watchdog runner stopped")
	return nil
}

// Check runs a single cycle and returns its report
func Check(opts RunOptions, logger logging.Logger) (watchdog.CycleReport, error) {
	opts.Once = true
	config, err := Prepare(opts)
	if err != nil {
		return watchdog.CycleReport{}, err
	}

	sup, err := New(config, opts.Deps, logger)
	if err != nil {
		return watchdog.CycleReport{}, err
	}

	ctx, stop := withSignals(context.Background(), logger)
	defer stop()
	return sup.RunOnce(ctx)
}

// withSignals cancels ctx on interrupt or termination
func withSignals(parent context.Context, logger logging.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig, os.Interrupt)
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}

	done := make(chan struct{})
	go func() {
		select {
		case receivedSignal := <-sig:
			logger.Infof("Watchdog runner received signal: %v", receivedSignal)
			cancel()
		case <-ctx.Done():
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(sig)
		close(done)
		cancel()
	}
}

func pidFilePath(configured string) string {
	if configured != processfile.AutoPath {
		return configured
	}
	if os.Geteuid() == 0 {
		return processfile.DefaultPath(processfile.SystemService, "")
	}
	return processfile.DefaultPath(processfile.UserService, "")
}
