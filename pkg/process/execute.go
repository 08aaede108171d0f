package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/processstate"
)

type ExecutionConfig struct {
	ExecutablePath   string   `yaml:"executable_path"`
	Args             []string `yaml:"args,omitempty"`
	Environment      []string `yaml:"environment,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`
}

// NewExecutionConfig builds the execution config for a tracked path and its optional argument string
func NewExecutionConfig(path string, args *string) (ExecutionConfig, error) {
	if err := ValidatePath(path); err != nil {
		return ExecutionConfig{}, err
	}
	execution := ExecutionConfig{ExecutablePath: path}
	if args != nil {
		split, err := SplitArgs(*args)
		if err != nil {
			return ExecutionConfig{}, err
		}
		execution.Args = split
	}
	return execution, nil
}

// startProcess starts a detached process. The child outlives the watchdog and is reaped in the background.
func startProcess(ctx context.Context, execution ExecutionConfig, logger logging.Logger) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, errors.NewCancelledError("launch cancelled", err).WithContext("executable_path", execution.ExecutablePath)
	}

	if err := ValidateExecutionConfig(execution); err != nil {
		logger.Errorf("Execution configuration validation failed, path: %s, error: %v", execution.ExecutablePath, err)
		return Handle{}, err
	}

	// Check if the process is executable, and make it executable if it's not
	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return Handle{}, errors.NewLaunchError("failed to ensure process is executable", err).WithContext("executable_path", execution.ExecutablePath)
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(execution.ExecutablePath)
		if err != nil {
			return Handle{}, errors.NewLaunchError("failed to get absolute path", err).WithContext("executable_path", execution.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	logger.Debugf("Executing process, executable path: '%s', args: %v, working directory: '%s'",
		execution.ExecutablePath, execution.Args, workDir)

	cmd := exec.Command(execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), execution.Environment...)

	// Platform-specific setup is handled in execute_windows.go or execute_unix.go
	setupProcessAttributes(cmd)

	if err := cmd.Start(); err != nil {
		return Handle{}, errors.NewLaunchError("failed to start the process", err).WithContext("executable_path", execution.ExecutablePath)
	}

	pid := cmd.Process.Pid
	go func() {
		// Reap the child so it never lingers as a zombie
		_ = cmd.Wait()
	}()

	if running, err := processstate.IsProcessRunning(pid); err == nil && !running {
		logger.Warnf("Launched process exited immediately, path: %s, PID: %d", execution.ExecutablePath, pid)
	}

	logger.Infof("Successfully launched process, path: %s, PID: %d", execution.ExecutablePath, pid)

	return Handle{
		PID:            int32(pid),
		Name:           filepath.Base(execution.ExecutablePath),
		ExecutablePath: execution.ExecutablePath,
	}, nil
}

// ensureExecutable checks if a file is executable and makes it executable if it's not
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}
	if info.IsDir() {
		return errors.NewInvalidArgumentError("path", "must name a file, not a directory")
	}

	// On Windows executability is decided by the extension
	if runtime.GOOS == "windows" {
		return nil
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil
	}

	if err := os.Chmod(path, mode|0111); err != nil {
		return errors.NewPermissionError("failed to make file executable", err).WithContext("path", path)
	}

	return nil
}
