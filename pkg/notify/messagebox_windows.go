//go:build windows

package notify

import (
	"context"

	"golang.org/x/sys/windows"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// MessageBoxNotifier shows a system-modal warning box on the interactive desktop.
// The box is shown asynchronously so an unattended alert never holds up a restart.
type MessageBoxNotifier struct {
	logger logging.Logger
}

func NewMessageBoxNotifier(logger logging.Logger) (*MessageBoxNotifier, error) {
	return &MessageBoxNotifier{logger: logger}, nil
}

func (n *MessageBoxNotifier) Notify(ctx context.Context, title, message string) error {
	text, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return errors.NewInvalidArgumentError("message", "must not contain NUL characters")
	}
	caption, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return errors.NewInvalidArgumentError("title", "must not contain NUL characters")
	}

	go func() {
		if _, err := windows.MessageBox(0, text, caption, windows.MB_OK|windows.MB_ICONWARNING|windows.MB_SYSTEMMODAL); err != nil {
			n.logger.Errorf("Failed to show message box, error: %v", err)
		}
	}()
	return nil
}
