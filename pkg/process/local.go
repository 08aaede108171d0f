package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// localBackend queries and controls processes on this machine
type localBackend struct {
	options BackendOptions
	logger  logging.Logger
}

func newLocalBackend(options BackendOptions, logger logging.Logger) *localBackend {
	return &localBackend{
		options: options,
		logger:  logger,
	}
}

func (b *localBackend) FindByPath(ctx context.Context, path string) ([]Handle, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	return b.find(ctx, Filter{ExecutablePath: path})
}

func (b *localBackend) FindByName(ctx context.Context, name string) ([]Handle, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return b.find(ctx, Filter{Name: name})
}

func (b *localBackend) find(ctx context.Context, filter Filter) ([]Handle, error) {
	processes, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.NewProcessError("failed to list processes", err).WithContext("filter", filter.String())
	}

	candidates := pathCandidates(filter.ExecutablePath)
	self := int32(os.Getpid())

	handles := make([]Handle, 0)
	for _, p := range processes {
		if p.Pid == self {
			continue
		}
		handle, ok := matchProcess(ctx, p, filter, candidates)
		if ok {
			handles = append(handles, handle)
		}
	}

	b.logger.Debugf("Process query done, filter: %s, matches: %d", filter, len(handles))
	return handles, nil
}

// matchProcess reads only what the filter needs. Processes that vanish or deny access are skipped.
func matchProcess(ctx context.Context, p *gopsprocess.Process, filter Filter, candidates []string) (Handle, bool) {
	if filter.ExecutablePath != "" {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || !matchesAny(trimDeleted(exe), candidates) {
			return Handle{}, false
		}
		name, _ := p.NameWithContext(ctx)
		return Handle{PID: p.Pid, Name: name, ExecutablePath: exe}, true
	}

	name, err := p.NameWithContext(ctx)
	if err != nil || !SameName(name, filter.Name) {
		return Handle{}, false
	}
	exe, _ := p.ExeWithContext(ctx)
	return Handle{PID: p.Pid, Name: name, ExecutablePath: trimDeleted(exe)}, true
}

// pathCandidates returns the spellings a tracked path may have in the process table
func pathCandidates(path string) []string {
	if path == "" {
		return nil
	}
	candidates := []string{path}
	abs, err := filepath.Abs(path)
	if err == nil {
		candidates = append(candidates, abs)
		if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
			candidates = append(candidates, resolved)
		}
	}
	return candidates
}

func matchesAny(exe string, candidates []string) bool {
	for _, candidate := range candidates {
		if SamePath(exe, candidate) {
			return true
		}
	}
	return false
}

// trimDeleted strips the marker Linux appends to the exe link of a replaced binary
func trimDeleted(exe string) string {
	return strings.TrimSuffix(exe, " (deleted)")
}

func (b *localBackend) ThreadsOf(ctx context.Context, handle Handle) ([]ThreadDescriptor, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	threads, err := b.listThreads(ctx, handle)
	if err != nil {
		return nil, err
	}
	b.logger.Debugf("Thread query done, process: %s, threads: %d", handle, len(threads))
	return threads, nil
}

func (b *localBackend) Launch(ctx context.Context, path string, args *string) (Handle, error) {
	execution, err := NewExecutionConfig(path, args)
	if err != nil {
		return Handle{}, err
	}
	b.logger.Infof("Launching process, path: %s, args: %v", path, execution.Args)
	return startProcess(ctx, execution, b.logger)
}

func (b *localBackend) TerminateAll(ctx context.Context, path string) (TerminationReport, error) {
	return terminateAll(ctx, path, b, b.terminateHandle, b.logger)
}

func (b *localBackend) terminateHandle(ctx context.Context, handle Handle) error {
	return terminateLocal(ctx, handle, b.options.TerminateTimeout, b.logger)
}
