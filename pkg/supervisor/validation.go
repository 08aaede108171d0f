package supervisor

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/process"
)

// Highest KWAIT_REASON value documented for Windows threads
const maxWaitReason = 37

// ValidateConfig validates the entire configuration structure.
// Every failure is an invalid argument error naming the offending field.
func ValidateConfig(config *WatchdogConfig) error {
	if config == nil {
		return errors.NewInvalidArgumentError("config", "must not be nil")
	}

	if err := validateWatchdogOptions(&config.Watchdog); err != nil {
		return err
	}
	for i, entry := range config.Paths {
		if err := process.ValidatePath(entry.Path); err != nil {
			return errors.NewInvalidArgumentError(fmt.Sprintf("paths[%d].path", i), "must be non-empty and free of NUL bytes")
		}
	}
	if err := process.ValidateTarget(config.Target); err != nil {
		return errors.NewInvalidArgumentError("target", "user and password are required for a remote host").
			WithContext("host", config.Target.Host)
	}
	if err := validateNotifyConfig(&config.Notify); err != nil {
		return err
	}
	if err := validateRetryConfig(config); err != nil {
		return err
	}
	if config.CircuitBreaker != nil {
		if config.CircuitBreaker.MaxRestarts < 0 {
			return errors.NewInvalidArgumentError("circuit_breaker.max_restarts", "must not be negative")
		}
		if config.CircuitBreaker.MaxRestarts > 0 {
			if err := ValidateTimeout(config.CircuitBreaker.Window, "circuit_breaker.window"); err != nil {
				return err
			}
		}
	}
	if config.Metrics.Address != "" {
		if err := ValidateListenAddress(config.Metrics.Address, "metrics.address"); err != nil {
			return err
		}
	}
	return nil
}

func validateWatchdogOptions(options *WatchdogOptions) error {
	if options.Interval < 0 {
		return errors.NewInvalidArgumentError("watchdog.interval", "must not be negative")
	}
	if options.SuspendedWaitReason != nil {
		code := *options.SuspendedWaitReason
		if code < 0 || code > maxWaitReason {
			return errors.NewInvalidArgumentError("watchdog.suspended_wait_reason",
				fmt.Sprintf("must be between 0 and %d", maxWaitReason))
		}
	}
	if options.Concurrency < 0 {
		return errors.NewInvalidArgumentError("watchdog.concurrency", "must not be negative")
	}
	if err := ValidateTimeout(options.TerminateTimeout, "watchdog.terminate_timeout"); err != nil {
		return err
	}
	if !logging.ValidLevel(options.LogLevel) {
		return errors.NewInvalidArgumentError("watchdog.log_level", "must be one of debug, info, warn, error")
	}
	if options.LogFormat != "json" && options.LogFormat != "console" {
		return errors.NewInvalidArgumentError("watchdog.log_format", "must be json or console")
	}
	return nil
}

func validateNotifyConfig(config *NotifyConfig) error {
	webhook := config.Webhook
	if webhook.URL == "" {
		return nil
	}
	parsed, err := url.Parse(webhook.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.NewInvalidArgumentError("notify.webhook.url", "must be an absolute http or https URL")
	}
	if webhook.Timeout < 0 {
		return errors.NewInvalidArgumentError("notify.webhook.timeout", "must not be negative")
	}
	if webhook.Retries < 0 {
		return errors.NewInvalidArgumentError("notify.webhook.retries", "must not be negative")
	}
	return nil
}

func validateRetryConfig(config *WatchdogConfig) error {
	retry := config.Retry
	if retry == nil {
		return nil
	}
	if retry.MaxElapsedTime < 0 {
		return errors.NewInvalidArgumentError("retry.max_elapsed_time", "must not be negative")
	}
	if !retry.Enabled() {
		return nil
	}
	if err := ValidateTimeout(retry.InitialInterval, "retry.initial_interval"); err != nil {
		return err
	}
	if retry.MaxInterval < retry.InitialInterval {
		return errors.NewInvalidArgumentError("retry.max_interval", "must not be below retry.initial_interval")
	}
	if retry.Multiplier < 1 {
		return errors.NewInvalidArgumentError("retry.multiplier", "must be at least 1")
	}
	if retry.Jitter < 0 || retry.Jitter > 1 {
		return errors.NewInvalidArgumentError("retry.jitter", "must be between 0 and 1")
	}
	return nil
}

// ValidatePort validates port number
func ValidatePort(port int, field string) error {
	if port <= 0 || port > 65535 {
		return errors.NewInvalidArgumentError(field, "port must be between 1 and 65535")
	}
	return nil
}

// ValidateListenAddress validates a host:port listen address; the host may be empty
func ValidateListenAddress(address string, field string) error {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return errors.NewInvalidArgumentError(field, "must be host:port").WithContext("address", address)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.NewInvalidArgumentError(field, "port must be numeric").WithContext("address", address)
	}
	return ValidatePort(port, field)
}

// ValidateTimeout validates timeout duration
func ValidateTimeout(timeout time.Duration, field string) error {
	if timeout <= 0 {
		return errors.NewInvalidArgumentError(field, "must be positive")
	}
	return nil
}
