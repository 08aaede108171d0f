//go:build !windows

package process

import (
	"context"
	stderrors "errors"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/processstate"
)

const exitPollInterval = 100 * time.Millisecond

// terminateLocal sends SIGTERM followed by SIGCONT, waits up to timeout, then SIGKILL.
// A stopped process only acts on SIGTERM once continued.
// Group leaders are signalled as a group so their children go with them.
func terminateLocal(ctx context.Context, handle Handle, timeout time.Duration, logger logging.Logger) error {
	pid := int(handle.PID)

	if err := signalProcess(pid, unix.SIGTERM); err != nil {
		if stderrors.Is(err, unix.ESRCH) {
			return nil
		}
		return errors.NewTerminateError("failed to send SIGTERM", err).WithContext("pid", pid)
	}
	if err := signalProcess(pid, unix.SIGCONT); err != nil && !stderrors.Is(err, unix.ESRCH) {
		logger.Debugf("Failed to send SIGCONT, pid: %d, error: %v", pid, err)
	}

	if waitForExit(ctx, handle, timeout) {
		return nil
	}

	logger.Warnf("Process %s ignored SIGTERM for %v, sending SIGKILL", handle, timeout)
	if err := signalProcess(pid, unix.SIGKILL); err != nil {
		if stderrors.Is(err, unix.ESRCH) {
			return nil
		}
		return errors.NewTerminateError("failed to send SIGKILL", err).WithContext("pid", pid)
	}

	if waitForExit(ctx, handle, timeout) {
		return nil
	}
	return errors.NewTerminateError("process still running after SIGKILL", nil).WithContext("pid", pid)
}

func signalProcess(pid int, signal unix.Signal) error {
	if pgid, err := unix.Getpgid(pid); err == nil && pgid == pid {
		return unix.Kill(-pid, signal)
	}
	return unix.Kill(pid, signal)
}

// waitForExit polls until the process is gone or a zombie, the timeout elapses or ctx ends
func waitForExit(ctx context.Context, handle Handle, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()

	for {
		if exited(ctx, handle.PID) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return exited(ctx, handle.PID)
		case <-ticker.C:
		}
	}
}

func exited(ctx context.Context, pid int32) bool {
	running, err := processstate.IsProcessRunning(int(pid))
	if err != nil || !running {
		return err == nil
	}
	p, err := gopsprocess.NewProcessWithContext(ctx, pid)
	if err != nil {
		return stderrors.Is(err, gopsprocess.ErrorProcessNotRunning)
	}
	statuses, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, status := range statuses {
		if status == gopsprocess.Zombie {
			return true
		}
	}
	return false
}
