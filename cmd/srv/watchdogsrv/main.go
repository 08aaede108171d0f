package main

import (
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/supervisor"
)

type flagOptions struct {
	Config      string        `long:"config" description:"path to the YAML configuration file"`
	Paths       []string      `long:"paths" description:"executable to supervise; repeat for several, overrides the configured paths"`
	Interval    time.Duration `long:"interval" description:"time between cycles, 0 runs a single pass"`
	RunDuration time.Duration `long:"run-duration" description:"stop after this long"`
	Once        bool          `long:"once" description:"run a single cycle and exit"`
	LogLevel    string        `long:"log-level" description:"debug, info, warn or error"`
	LogFormat   string        `long:"log-format" description:"console or json"`
	MetricsAddr string        `long:"metrics-addr" description:"serve Prometheus metrics on host:port"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-server , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	runOptions := supervisor.RunOptions{
		ConfigFile:     opts.Config,
		Paths:          opts.Paths,
		RunDuration:    opts.RunDuration,
		Once:           opts.Once,
		LogLevel:       opts.LogLevel,
		MetricsAddress: opts.MetricsAddr,
	}
	if option := parser.FindOptionByLongName("interval"); option != nil && option.IsSet() {
		runOptions.Interval = &opts.Interval
	}

	config, err := supervisor.Prepare(runOptions)
	if err != nil {
		fmt.Printf("Configuration failed: %v\n", err)
		os.Exit(1)
	}
	if opts.LogFormat != "" {
		config.Watchdog.LogFormat = opts.LogFormat
	}

	zapLogger, err := logging.NewZapLogger(logging.ZapConfig{
		Level:  config.Watchdog.LogLevel,
		Format: config.Watchdog.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		fmt.Printf("Logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	logger := logging.NewLogger(logPrefix("hsu-watchdog"), logging.LogFuncs{
		LogLevelf: zapLogger.LogLevelf,
		Debugf:    zapLogger.Debugf,
		Infof:     zapLogger.Infof,
		Warnf:     zapLogger.Warnf,
		Errorf:    zapLogger.Errorf,
	})

	logger.Infof("opts: %+v", opts)

	runOptions.Config = config
	if err := supervisor.Run(runOptions, logger); err != nil {
		logger.Errorf("Watchdog failed: %v", err)
		zapLogger.Sync()
		os.Exit(1)
	}
}
