//go:build linux

package process

import (
	"context"

	"github.com/prometheus/procfs"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/processstate"
)

// listThreads reads per-thread scheduler state from procfs
func (b *localBackend) listThreads(ctx context.Context, handle Handle) ([]ThreadDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("thread query cancelled", err)
	}

	mountPoint := b.options.ProcFSMountPoint
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.NewProcessError("failed to open procfs", err).WithContext("mount_point", mountPoint)
	}

	threads, err := fs.AllThreads(int(handle.PID))
	if err != nil {
		if running, _ := processstate.IsProcessRunning(int(handle.PID)); !running {
			return []ThreadDescriptor{}, nil
		}
		return nil, errors.NewProcessError("failed to list threads", err).WithContext("pid", handle.PID)
	}

	result := make([]ThreadDescriptor, 0, len(threads))
	for _, thread := range threads {
		stat, err := thread.Stat()
		if err != nil {
			// Thread exited between listing and reading
			continue
		}
		result = append(result, ThreadDescriptor{
			ThreadID:   int32(thread.PID),
			OwnerPID:   handle.PID,
			WaitReason: waitReasonFromProcState(stat.State),
		})
	}
	return result, nil
}
