package process

import (
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

const DefaultTerminateTimeout = 5 * time.Second

// BackendOptions tunes the OS backend
type BackendOptions struct {
	// TerminateTimeout bounds the wait between a graceful stop request and a forced kill
	TerminateTimeout time.Duration

	// ProcFSMountPoint overrides /proc on Linux
	ProcFSMountPoint string
}

// NewBackend returns the OS backend for a target.
// Local targets use the process table of this machine; remote targets need credentials.
func NewBackend(target Target, options BackendOptions, logger logging.Logger) (Backend, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}
	if options.TerminateTimeout <= 0 {
		options.TerminateTimeout = DefaultTerminateTimeout
	}
	if target.IsLocal() {
		logger.Debugf("Using local process backend")
		return newLocalBackend(options, logger), nil
	}
	logger.Infof("Using remote process backend, host: %s, user: %s", target.Host, target.User)
	return newRemoteBackend(target, options, logger)
}
