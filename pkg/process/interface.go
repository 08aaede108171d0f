package process

import (
	"context"
)

// Querier finds processes in the OS process table.
// No match is a normal outcome and yields an empty slice.
type Querier interface {
	FindByPath(ctx context.Context, path string) ([]Handle, error)
	FindByName(ctx context.Context, name string) ([]Handle, error)
}

// ThreadQuerier lists the threads of a process.
// A process that exited in the meantime yields an empty slice.
type ThreadQuerier interface {
	ThreadsOf(ctx context.Context, handle Handle) ([]ThreadDescriptor, error)
}

// Launcher starts a new process instance. The returned handle may already be stale.
type Launcher interface {
	Launch(ctx context.Context, path string, args *string) (Handle, error)
}

// Terminator terminates every process matching a path
type Terminator interface {
	TerminateAll(ctx context.Context, path string) (TerminationReport, error)
}

// Backend bundles every OS capability the watchdog needs
type Backend interface {
	Querier
	ThreadQuerier
	Launcher
	Terminator
}
