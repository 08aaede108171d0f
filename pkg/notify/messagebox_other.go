//go:build !windows

package notify

import (
	"context"
	"runtime"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// MessageBoxNotifier is only available on windows
type MessageBoxNotifier struct{}

func NewMessageBoxNotifier(logger logging.Logger) (*MessageBoxNotifier, error) {
	return nil, errors.NewConfigurationError("message box alerts are not supported on "+runtime.GOOS, nil)
}

func (n *MessageBoxNotifier) Notify(ctx context.Context, title, message string) error {
	return errors.NewNotifyError("message box alerts are not supported on "+runtime.GOOS, nil)
}
