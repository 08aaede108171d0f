package supervisor

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/notify"
	"github.com/core-tools/hsu-watchdog/pkg/pathsource"
	"github.com/core-tools/hsu-watchdog/pkg/process"
	"github.com/core-tools/hsu-watchdog/pkg/scheduler"
)

// WatchdogConfig represents the top-level configuration file structure
type WatchdogConfig struct {
	Watchdog       WatchdogOptions                 `yaml:"watchdog"`
	Target         process.Target                  `yaml:"target"`
	Paths          []PathConfig                    `yaml:"paths"`
	PathsFile      string                          `yaml:"paths_file,omitempty"`
	PromptFallback *bool                           `yaml:"prompt_fallback,omitempty"` // Pointer to distinguish unset from false
	Notify         NotifyConfig                    `yaml:"notify"`
	Retry          *scheduler.RetrySettings        `yaml:"retry,omitempty"`
	CircuitBreaker *scheduler.CircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
	Metrics        MetricsConfig                   `yaml:"metrics"`

	explicitLogLevel bool
}

// WatchdogOptions represents watchdog-level configuration
type WatchdogOptions struct {
	// Interval between cycles; 0 runs a single pass
	Interval            time.Duration `yaml:"interval"`
	SuspendedWaitReason *int          `yaml:"suspended_wait_reason,omitempty"`
	Concurrency         int           `yaml:"concurrency,omitempty"`
	TerminateTimeout    time.Duration `yaml:"terminate_timeout,omitempty"`
	LogLevel            string        `yaml:"log_level,omitempty"`
	LogFormat           string        `yaml:"log_format,omitempty"`
	PIDFile             string        `yaml:"pid_file,omitempty"`

	// DryRun queries and classifies without notifying, terminating or launching
	DryRun bool `yaml:"dry_run,omitempty"`
}

// PathConfig is one tracked executable
type PathConfig struct {
	Path string `yaml:"path"`
	Args string `yaml:"args,omitempty"`
}

// NotifyConfig selects the alert channels
type NotifyConfig struct {
	Log        *bool                `yaml:"log,omitempty"`
	MessageBox bool                 `yaml:"message_box,omitempty"`
	Webhook    notify.WebhookConfig `yaml:"webhook,omitempty"`
}

type MetricsConfig struct {
	Address string `yaml:"address,omitempty"`
}

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// LoadConfigFromFile loads watchdog configuration from a YAML file
func LoadConfigFromFile(filename string) (*WatchdogConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("configuration file not found", err).WithContext("filename", filename)
		}
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration and applies defaults
func ParseConfig(data []byte) (*WatchdogConfig, error) {
	var config WatchdogConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewConfigurationError("failed to parse YAML configuration", err)
	}

	setConfigDefaults(&config)
	return &config, nil
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *WatchdogConfig {
	config := &WatchdogConfig{}
	setConfigDefaults(config)
	return config
}

// HasExplicitLogLevel reports whether the log level came from the file or an override rather than the default
func (c *WatchdogConfig) HasExplicitLogLevel() bool {
	return c.explicitLogLevel
}

// setConfigDefaults applies default values to configuration
func setConfigDefaults(config *WatchdogConfig) {
	if config.Watchdog.SuspendedWaitReason == nil {
		code := int(process.DefaultSuspendedWaitReason)
		config.Watchdog.SuspendedWaitReason = &code
	}
	if config.Watchdog.Concurrency == 0 {
		config.Watchdog.Concurrency = 1
	}
	if config.Watchdog.TerminateTimeout == 0 {
		config.Watchdog.TerminateTimeout = process.DefaultTerminateTimeout
	}
	if config.Watchdog.LogLevel == "" {
		config.Watchdog.LogLevel = DefaultLogLevel
	} else {
		config.explicitLogLevel = true
	}
	if config.Watchdog.LogFormat == "" {
		config.Watchdog.LogFormat = DefaultLogFormat
	}

	// Without inline paths the original file-then-prompt lookup applies
	if len(config.Paths) == 0 && config.PathsFile == "" {
		config.PathsFile = pathsource.DefaultPathsFile
	}
	if config.PromptFallback == nil {
		enabled := true
		config.PromptFallback = &enabled
	}

	if config.Notify.Log == nil {
		enabled := true
		config.Notify.Log = &enabled
	}
	if config.Notify.Webhook.URL != "" {
		if config.Notify.Webhook.Timeout == 0 {
			config.Notify.Webhook.Timeout = notify.DefaultWebhookTimeout
		}
		if config.Notify.Webhook.Retries == 0 {
			config.Notify.Webhook.Retries = notify.DefaultWebhookRetries
		}
	}

	// An absent section takes the defaults; a present one keeps its explicit zero values,
	// so max_elapsed_time: 0 disables retries and max_restarts: 0 disables the breaker
	defaults := scheduler.DefaultRetrySettings()
	if config.Retry == nil {
		config.Retry = &defaults
	} else {
		if config.Retry.InitialInterval == 0 {
			config.Retry.InitialInterval = defaults.InitialInterval
		}
		if config.Retry.MaxInterval == 0 {
			config.Retry.MaxInterval = defaults.MaxInterval
		}
		if config.Retry.Multiplier == 0 {
			config.Retry.Multiplier = defaults.Multiplier
		}
	}

	breaker := scheduler.DefaultCircuitBreakerConfig()
	if config.CircuitBreaker == nil {
		config.CircuitBreaker = &breaker
	} else if config.CircuitBreaker.Window == 0 {
		config.CircuitBreaker.Window = breaker.Window
	}
}

// TrackedPaths returns the inline paths in configuration order
func (c *WatchdogConfig) TrackedPaths() []string {
	paths := make([]string, 0, len(c.Paths))
	for _, entry := range c.Paths {
		paths = append(paths, entry.Path)
	}
	return paths
}

// Arguments maps each inline path to its launch arguments
func (c *WatchdogConfig) Arguments() map[string]string {
	arguments := make(map[string]string)
	for _, entry := range c.Paths {
		if entry.Args != "" {
			arguments[entry.Path] = entry.Args
		}
	}
	return arguments
}

// ConfigSummary is a human-readable view of the configuration
type ConfigSummary struct {
	Interval       time.Duration `json:"interval"`
	Target         string        `json:"target"`
	Paths          []string      `json:"paths"`
	PathsFile      string        `json:"paths_file,omitempty"`
	PromptFallback bool          `json:"prompt_fallback"`
	Notifiers      []string      `json:"notifiers"`
	MetricsAddress string        `json:"metrics_address,omitempty"`
}

// GetConfigSummary summarizes configuration for startup logging
func GetConfigSummary(config *WatchdogConfig) ConfigSummary {
	summary := ConfigSummary{
		Interval:       config.Watchdog.Interval,
		Target:         "local",
		Paths:          config.TrackedPaths(),
		MetricsAddress: config.Metrics.Address,
	}
	if !config.Target.IsLocal() {
		summary.Target = config.Target.Host
	}
	if len(config.Paths) == 0 {
		summary.PathsFile = config.PathsFile
		summary.PromptFallback = config.PromptFallback != nil && *config.PromptFallback
	}
	if config.Notify.Log != nil && *config.Notify.Log {
		summary.Notifiers = append(summary.Notifiers, "log")
	}
	if config.Notify.MessageBox {
		summary.Notifiers = append(summary.Notifiers, "message_box")
	}
	if config.Notify.Webhook.URL != "" {
		summary.Notifiers = append(summary.Notifiers, "webhook")
	}
	return summary
}
