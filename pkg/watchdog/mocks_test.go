package watchdog

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/process"
)

type TestLogger struct{}

func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}
func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}

var _ logging.Logger = (*TestLogger)(nil)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) FindByPath(ctx context.Context, path string) ([]process.Handle, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]process.Handle), args.Error(1)
}

func (m *MockBackend) FindByName(ctx context.Context, name string) ([]process.Handle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]process.Handle), args.Error(1)
}

func (m *MockBackend) ThreadsOf(ctx context.Context, handle process.Handle) ([]process.ThreadDescriptor, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]process.ThreadDescriptor), args.Error(1)
}

func (m *MockBackend) Launch(ctx context.Context, path string, launchArgs *string) (process.Handle, error) {
	args := m.Called(ctx, path, launchArgs)
	return args.Get(0).(process.Handle), args.Error(1)
}

func (m *MockBackend) TerminateAll(ctx context.Context, path string) (process.TerminationReport, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(process.TerminationReport), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, title, message string) error {
	args := m.Called(ctx, title, message)
	return args.Error(0)
}

func threadsWith(pid int32, reasons ...process.WaitReason) []process.ThreadDescriptor {
	threads := make([]process.ThreadDescriptor, 0, len(reasons))
	for i, reason := range reasons {
		threads = append(threads, process.ThreadDescriptor{ThreadID: pid*100 + int32(i), OwnerPID: pid, WaitReason: reason})
	}
	return threads
}
