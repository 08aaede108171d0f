package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/processstate"
)

const DefaultAppName = "hsu-watchdog"

// AutoPath selects the OS-appropriate PID file location
const AutoPath = "auto"

// ServiceContext defines the context in which the watchdog runs
type ServiceContext string

const (
	// SystemService runs as a system service (daemon)
	SystemService ServiceContext = "system"

	// UserService runs as a user service
	UserService ServiceContext = "user"
)

// DefaultPath returns the OS-appropriate PID file path for a service context
func DefaultPath(context ServiceContext, appName string) string {
	if appName == "" {
		appName = DefaultAppName
	}
	var baseDir string
	switch context {
	case UserService:
		baseDir = userServiceDirectory()
	default:
		baseDir = systemServiceDirectory()
	}
	return filepath.Join(baseDir, appName, appName+".pid")
}

func systemServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = "C:\\ProgramData"
		}
		return programData
	case "darwin":
		return "/var/run"
	default:
		// Modern standard is /run, with fallback to /var/run
		if _, err := os.Stat("/run"); err == nil {
			return "/run"
		}
		return "/var/run"
	}
}

func userServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return localAppData
		}
		return os.TempDir()
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return os.TempDir()
		}
		return filepath.Join(homeDir, "Library", "Application Support")
	default:
		if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
			return runtimeDir
		}
		return os.TempDir()
	}
}

// PIDFile guards against two watchdogs acting on the same host
type PIDFile struct {
	path   string
	pid    int
	logger logging.Logger
}

// Acquire writes the current PID to path. It fails if the file names another live process.
// A stale file left by a dead process is replaced.
func Acquire(path string, logger logging.Logger) (*PIDFile, error) {
	if path == "" {
		return nil, errors.NewInvalidArgumentError("pid_file", "must be non-empty")
	}
	self := os.Getpid()

	if existing, err := ReadPID(path); err == nil {
		running, _ := processstate.IsProcessRunning(existing)
		if running && existing != self {
			return nil, errors.NewConfigurationError("another watchdog instance is running", nil).
				WithContext("pid_file", path).
				WithContext("pid", existing)
		}
		logger.Warnf("Replacing stale PID file, path: %s, pid: %d", path, existing)
	}

	if err := ValidatePIDFileDirectory(path); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", self)), 0644); err != nil {
		return nil, errors.NewIOError("failed to write PID file", err).WithContext("pid_file", path)
	}

	logger.Infof("PID file written, pid: %d, path: %s", self, path)
	return &PIDFile{path: path, pid: self, logger: logger}, nil
}

// Path returns the PID file location
func (f *PIDFile) Path() string {
	return f.path
}

// Release removes the PID file if it still names this process
func (f *PIDFile) Release() error {
	current, err := ReadPID(f.path)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if current != f.pid {
		f.logger.Warnf("PID file taken over, leaving it in place, path: %s, pid: %d", f.path, current)
		return nil
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("failed to remove PID file", err).WithContext("pid_file", f.path)
	}
	f.logger.Debugf("PID file removed, path: %s", f.path)
	return nil
}

// ReadPID reads the PID stored in path
func ReadPID(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NewNotFoundError("PID file not found", err).WithContext("pid_file", path)
		}
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", path)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, errors.NewInvalidArgumentError("pid_file", "must contain a positive PID").WithContext("content", pidStr)
	}
	return pid, nil
}

// ValidatePIDFileDirectory makes sure the PID file directory exists and is writable
func ValidatePIDFileDirectory(pidFilePath string) error {
	dir := filepath.Dir(pidFilePath)

	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewIOError("failed to access PID file directory", err).WithContext("directory", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("failed to create PID file directory", err).WithContext("directory", dir)
		}
	} else if !info.IsDir() {
		return errors.NewInvalidArgumentError("pid_file", "parent must be a directory").WithContext("path", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return errors.NewPermissionError("PID file directory is not writable", err).WithContext("directory", dir)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
