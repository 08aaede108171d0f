package process

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// ValidatePath validates a tracked executable path argument
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidArgumentError("path", "must be non-empty")
	}
	if strings.ContainsRune(path, 0) {
		return errors.NewInvalidArgumentError("path", "must not contain NUL bytes")
	}
	return nil
}

// ValidateName validates a process name argument
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewInvalidArgumentError("name", "must be non-empty")
	}
	if strings.ContainsRune(name, 0) {
		return errors.NewInvalidArgumentError("name", "must not contain NUL bytes")
	}
	return nil
}

// ValidateHandle validates a process handle argument
func ValidateHandle(handle Handle) error {
	if handle.PID <= 0 {
		return errors.NewInvalidArgumentError("handle", "must carry a positive PID")
	}
	return nil
}

// ValidateTarget validates a query target.
// Remote targets need credentials because they are handed to the remote query layer.
func ValidateTarget(target Target) error {
	if target.IsLocal() {
		return nil
	}
	if target.User == "" || target.Password == "" {
		return errors.NewConfigurationError("user and password are required for remote host", nil).WithContext("host", target.Host)
	}
	return nil
}

// ValidateExecutionConfig validates execution configuration
func ValidateExecutionConfig(config ExecutionConfig) error {
	if err := ValidatePath(config.ExecutablePath); err != nil {
		return err
	}

	if _, err := os.Stat(config.ExecutablePath); os.IsNotExist(err) {
		return errors.NewLaunchError("executable not found: "+config.ExecutablePath, err)
	}

	if config.WorkingDirectory != "" {
		if !filepath.IsAbs(config.WorkingDirectory) {
			return errors.NewInvalidArgumentError("working_directory", "must be an absolute path")
		}

		if info, err := os.Stat(config.WorkingDirectory); err != nil {
			return errors.NewLaunchError("working directory not accessible: "+config.WorkingDirectory, err)
		} else if !info.IsDir() {
			return errors.NewInvalidArgumentError("working_directory", "must be a directory")
		}
	}

	for _, env := range config.Environment {
		if !strings.Contains(env, "=") {
			return errors.NewInvalidArgumentError("environment", "entries must have KEY=VALUE form, got "+env)
		}
	}

	return nil
}

// NormalizePath cleans a path for comparison
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// SamePath compares two executable paths the way the OS does
func SamePath(a, b string) bool {
	a, b = NormalizePath(a), NormalizePath(b)
	if a == "" || b == "" {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// SameName compares two process names, ignoring a trailing .exe on Windows
func SameName(a, b string) bool {
	if runtime.GOOS == "windows" {
		a = strings.TrimSuffix(strings.ToLower(a), ".exe")
		b = strings.TrimSuffix(strings.ToLower(b), ".exe")
	}
	return a != "" && a == b
}
