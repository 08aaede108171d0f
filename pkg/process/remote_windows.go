//go:build windows

package process

import (
	"context"
	"path/filepath"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// remoteBackend drives a remote host through WMI.
// Launching goes through Win32_Process.Create because exec cannot cross hosts.
type remoteBackend struct {
	target  Target
	args    []interface{}
	options BackendOptions
	logger  logging.Logger
}

func newRemoteBackend(target Target, options BackendOptions, logger logging.Logger) (Backend, error) {
	return &remoteBackend{
		target:  target,
		args:    connectArgs(target),
		options: options,
		logger:  logger,
	}, nil
}

func (b *remoteBackend) FindByPath(ctx context.Context, path string) ([]Handle, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	return wmiFindProcesses(ctx, Filter{ExecutablePath: path}, b.args, b.target.Host)
}

func (b *remoteBackend) FindByName(ctx context.Context, name string) ([]Handle, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return wmiFindProcesses(ctx, Filter{Name: name}, b.args, b.target.Host)
}

func (b *remoteBackend) ThreadsOf(ctx context.Context, handle Handle) ([]ThreadDescriptor, error) {
	return wmiThreads(ctx, handle, b.args, b.logger)
}

func (b *remoteBackend) Launch(ctx context.Context, path string, args *string) (Handle, error) {
	if err := ValidatePath(path); err != nil {
		return Handle{}, err
	}
	commandLine := RawCommandLine(path, args)
	b.logger.Infof("Launching remote process, host: %s, command line: %s", b.target.Host, commandLine)

	var pid int32
	err := runWMI(ctx, func() error {
		var err error
		pid, err = wmiCreateProcess(b.args, commandLine)
		return err
	})
	if err != nil {
		if errors.IsCancelledError(err) {
			return Handle{}, err
		}
		return Handle{}, errors.NewLaunchError("Win32_Process.Create failed", err).
			WithContext("path", path).
			WithContext("host", b.target.Host)
	}

	return Handle{
		PID:            pid,
		Name:           filepath.Base(path),
		ExecutablePath: path,
		Host:           b.target.Host,
	}, nil
}

func (b *remoteBackend) TerminateAll(ctx context.Context, path string) (TerminationReport, error) {
	return terminateAll(ctx, path, b, b.terminateHandle, b.logger)
}

func (b *remoteBackend) terminateHandle(ctx context.Context, handle Handle) error {
	err := runWMI(ctx, func() error { return wmiTerminateProcess(b.args, handle.PID) })
	if err == nil || errors.IsCancelledError(err) {
		return err
	}
	// The process may have exited on its own since the query
	remaining, queryErr := wmiThreads(ctx, handle, b.args, b.logger)
	if queryErr == nil && len(remaining) == 0 {
		return nil
	}
	return errors.NewTerminateError("Win32_Process.Terminate failed", err).WithContext("pid", handle.PID)
}
