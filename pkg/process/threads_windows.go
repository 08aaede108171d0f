//go:build windows

package process

import (
	"context"
)

// listThreads queries Win32_Thread on the local WMI service
func (b *localBackend) listThreads(ctx context.Context, handle Handle) ([]ThreadDescriptor, error) {
	return wmiThreads(ctx, handle, nil, b.logger)
}
