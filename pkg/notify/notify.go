package notify

import (
	"context"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// Notifier delivers an operator alert
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// LogNotifier writes alerts to the log at warn level
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, title, message string) error {
	n.logger.Warnf("%s: %s", title, message)
	return nil
}

// MultiNotifier fans an alert out to every notifier and aggregates failures
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (n *MultiNotifier) Notify(ctx context.Context, title, message string) error {
	collection := errors.NewErrorCollection()
	for _, notifier := range n.notifiers {
		collection.Add(notifier.Notify(ctx, title, message))
	}
	return collection.ToError()
}

// Len returns the number of fan-out targets
func (n *MultiNotifier) Len() int {
	return len(n.notifiers)
}
