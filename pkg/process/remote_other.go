//go:build !windows

package process

import (
	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

func newRemoteBackend(target Target, _ BackendOptions, _ logging.Logger) (Backend, error) {
	return nil, errors.NewConfigurationError("remote targets require the WMI backend, which is only available on windows", nil).
		WithContext("host", target.Host)
}
