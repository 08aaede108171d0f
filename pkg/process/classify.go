package process

import (
	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// IsUniformlyInState reports whether every thread waits for the given reason.
// An empty list is never uniformly in any state; a nil list is an invalid argument.
func IsUniformlyInState(threads []ThreadDescriptor, code WaitReason) (bool, error) {
	if threads == nil {
		return false, errors.NewInvalidArgumentError("threads", "must be a list, got nil")
	}
	if len(threads) == 0 {
		return false, nil
	}
	for _, thread := range threads {
		if thread.WaitReason != code {
			return false, nil
		}
	}
	return true, nil
}
