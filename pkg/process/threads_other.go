//go:build !linux && !windows

package process

import (
	"context"
	stderrors "errors"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// listThreads approximates per-thread state with the process state.
// These platforms expose no per-thread scheduler state, so every thread inherits it.
func (b *localBackend) listThreads(ctx context.Context, handle Handle) ([]ThreadDescriptor, error) {
	p, err := gopsprocess.NewProcessWithContext(ctx, handle.PID)
	if err != nil {
		if stderrors.Is(err, gopsprocess.ErrorProcessNotRunning) {
			return []ThreadDescriptor{}, nil
		}
		return nil, errors.NewProcessError("failed to open process", err).WithContext("pid", handle.PID)
	}

	statuses, err := p.StatusWithContext(ctx)
	if err != nil {
		return nil, errors.NewProcessError("failed to read process status", err).WithContext("pid", handle.PID)
	}
	count, err := p.NumThreadsWithContext(ctx)
	if err != nil {
		return nil, errors.NewProcessError("failed to count threads", err).WithContext("pid", handle.PID)
	}

	reason := waitReasonFromStatus(statuses)
	result := make([]ThreadDescriptor, 0, count)
	for i := int32(1); i <= count; i++ {
		result = append(result, ThreadDescriptor{
			ThreadID:   i,
			OwnerPID:   handle.PID,
			WaitReason: reason,
		})
	}
	return result, nil
}
