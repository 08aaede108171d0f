package process

import (
	"context"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

type terminateFunc func(ctx context.Context, handle Handle) error

// terminateAll resolves every process of path and terminates each one.
// Zero matches is a success; any per-handle failure yields a TerminateError wrapping PartialTerminationError.
func terminateAll(ctx context.Context, path string, querier Querier, terminate terminateFunc, logger logging.Logger) (TerminationReport, error) {
	report := TerminationReport{Path: path}

	if err := ValidatePath(path); err != nil {
		return report, err
	}

	handles, err := querier.FindByPath(ctx, path)
	if err != nil {
		return report, errors.NewTerminateError("failed to resolve processes to terminate", err).WithContext("path", path)
	}

	report.Outcomes = make([]TerminationOutcome, 0, len(handles))
	for _, handle := range handles {
		if err := ctx.Err(); err != nil {
			report.Outcomes = append(report.Outcomes, TerminationOutcome{
				Kind:   TerminationFailed,
				Handle: handle,
				Cause:  errors.NewCancelledError("termination cancelled", err),
			})
			continue
		}

		if err := terminate(ctx, handle); err != nil {
			logger.Warnf("Failed to terminate process %s: %v", handle, err)
			report.Outcomes = append(report.Outcomes, TerminationOutcome{
				Kind:   TerminationFailed,
				Handle: handle,
				Cause:  err,
			})
			continue
		}

		logger.Infof("Terminated process %s", handle)
		report.Outcomes = append(report.Outcomes, TerminationOutcome{
			Kind:   Terminated,
			Handle: handle,
		})
	}

	if failed := report.Failed(); len(failed) > 0 {
		partial := &PartialTerminationError{Path: path, Failed: failed}
		return report, errors.NewTerminateError("partial termination", partial).
			WithContext("path", path).
			WithContext("failed", len(failed))
	}

	return report, nil
}
