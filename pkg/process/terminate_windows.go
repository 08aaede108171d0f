//go:build windows

package process

import (
	"context"
	stderrors "errors"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/processstate"
)

const exitPollInterval = 100 * time.Millisecond

// terminateLocal kills the process and waits up to timeout for it to disappear.
// Detached processes have no console to receive Ctrl+Break, so there is no graceful phase.
func terminateLocal(ctx context.Context, handle Handle, timeout time.Duration, logger logging.Logger) error {
	p, err := gopsprocess.NewProcessWithContext(ctx, handle.PID)
	if err != nil {
		if stderrors.Is(err, gopsprocess.ErrorProcessNotRunning) {
			return nil
		}
		return errors.NewTerminateError("failed to open process", err).WithContext("pid", handle.PID)
	}

	if err := p.KillWithContext(ctx); err != nil {
		if running, _ := processstate.IsProcessRunning(int(handle.PID)); !running {
			return nil
		}
		return errors.NewTerminateError("failed to kill process", err).WithContext("pid", handle.PID)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if running, _ := processstate.IsProcessRunning(int(handle.PID)); !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.NewCancelledError("termination wait cancelled", ctx.Err())
		case <-time.After(exitPollInterval):
		}
	}

	logger.Warnf("Process %s still present %v after kill", handle, timeout)
	return errors.NewTerminateError("process still running after kill", nil).WithContext("pid", handle.PID)
}
