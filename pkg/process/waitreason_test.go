package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitReasonFromProcState(t *testing.T) {
	tests := []struct {
		state    string
		expected WaitReason
	}{
		{"R", WaitReasonRunning},
		{"T", WaitReasonSuspended},
		{"t", WaitReasonSuspended},
		{"S", WaitReasonUserRequest},
		{"D", WaitReasonExecutive},
		{"Z", WaitReasonUnknown},
		{"", WaitReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.expected, waitReasonFromProcState(tt.state))
		})
	}
}

func TestWaitReasonFromStatus(t *testing.T) {
	assert.Equal(t, WaitReasonSuspended, waitReasonFromStatus([]string{"stop"}))
	assert.Equal(t, WaitReasonRunning, waitReasonFromStatus([]string{"running"}))
	assert.Equal(t, WaitReasonUserRequest, waitReasonFromStatus([]string{"sleep"}))
	assert.Equal(t, WaitReasonUnknown, waitReasonFromStatus(nil))
}

func TestWaitReasonFromWin32(t *testing.T) {
	u := func(v uint32) *uint32 { return &v }

	assert.Equal(t, WaitReasonSuspended, waitReasonFromWin32(u(5), u(5)))
	assert.Equal(t, WaitReasonUserRequest, waitReasonFromWin32(u(5), u(6)))
	// Running thread keeps a stale wait reason
	assert.Equal(t, WaitReasonRunning, waitReasonFromWin32(u(2), u(5)))
	assert.Equal(t, WaitReasonSuspended, waitReasonFromWin32(nil, u(5)))
	assert.Equal(t, WaitReasonUnknown, waitReasonFromWin32(u(5), nil))
}

func TestWaitReason_String(t *testing.T) {
	assert.Equal(t, "suspended", WaitReasonSuspended.String())
	assert.Equal(t, "running", WaitReasonRunning.String())
	assert.Equal(t, "wait_reason(37)", WaitReason(37).String())
	assert.Equal(t, "wait_reason(42)", WaitReason(42).String())
}
