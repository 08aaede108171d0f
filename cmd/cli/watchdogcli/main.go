package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/olekukonko/tablewriter"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/supervisor"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

type flagOptions struct {
	Config   string   `long:"config" description:"path to the YAML configuration file"`
	Paths    []string `long:"paths" description:"executable to check; repeat for several, overrides the configured paths"`
	DryRun   bool     `long:"dry-run" description:"query and classify only, never notify, terminate or launch"`
	LogLevel string   `long:"log-level" description:"debug, info, warn or error; defaults to the configured level, else warn"`
}

const quietLogLevel = "warn"

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-client , ", module)
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

	config, err := supervisor.Prepare(supervisor.RunOptions{
		ConfigFile: opts.Config,
		Paths:      opts.Paths,
		DryRun:     opts.DryRun,
		LogLevel:   opts.LogLevel,
	})
	if err != nil {
		fmt.Printf("Configuration failed: %v\n", err)
		os.Exit(1)
	}

	level := quietLogLevel
	if config.HasExplicitLogLevel() {
		level = config.Watchdog.LogLevel
	}

	zapLogger, err := logging.NewZapLogger(logging.ZapConfig{
		Level:  level,
		Format: "console",
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

	report, err := supervisor.Check(supervisor.RunOptions{Config: config}, logger)
	if err != nil {
		logger.Errorf("Check failed: %v", err)
		zapLogger.Sync()
		os.Exit(1)
	}

	render(report)

	if len(report.Failed()) > 0 {
		zapLogger.Sync()
		os.Exit(2)
	}
}

func render(report watchdog.CycleReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Path", "State", "Outcome", "PIDs", "Detail")

	for _, result := range report.Results {
		table.Append([]string{result.Path, string(result.State), string(result.Outcome), pids(result), detail(result)})
	}
	table.Render()

	fmt.Printf("cycle %s finished in %v\n", report.CycleID, report.Duration)
}

func pids(result watchdog.PathResult) string {
	ids := make([]string, 0, len(result.Matches)+1)
	for _, handle := range result.Matches {
		ids = append(ids, strconv.Itoa(int(handle.PID)))
	}
	if result.Launched != nil {
		ids = append(ids, strconv.Itoa(int(result.Launched.PID))+" (new)")
	}
	return strings.Join(ids, ",")
}

func detail(result watchdog.PathResult) string {
	var parts []string
	if result.DryRun {
		parts = append(parts, "dry run")
	}
	if len(result.Suspended) > 0 {
		parts = append(parts, fmt.Sprintf("%d suspended", len(result.Suspended)))
	}
	if result.NotifyErr != nil {
		parts = append(parts, "alert failed: "+result.NotifyErr.Error())
	}
	if result.Err != nil {
		parts = append(parts, result.Err.Error())
	}
	return strings.Join(parts, "; ")
}
