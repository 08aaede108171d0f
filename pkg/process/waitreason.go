package process

import (
	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// waitReasonFromProcState maps a Linux /proc/<pid>/task/<tid>/stat state letter
func waitReasonFromProcState(state string) WaitReason {
	switch state {
	case "R":
		return WaitReasonRunning
	case "T", "t":
		return WaitReasonSuspended
	case "S", "I":
		return WaitReasonUserRequest
	case "D", "P":
		return WaitReasonExecutive
	case "W":
		return WaitReasonPageIn
	}
	return WaitReasonUnknown
}

// waitReasonFromStatus maps gopsutil process status strings.
// The first status wins; gopsutil reports the dominant one first.
func waitReasonFromStatus(statuses []string) WaitReason {
	if len(statuses) == 0 {
		return WaitReasonUnknown
	}
	switch statuses[0] {
	case gopsprocess.Running:
		return WaitReasonRunning
	case gopsprocess.Stop:
		return WaitReasonSuspended
	case gopsprocess.Sleep, gopsprocess.Idle:
		return WaitReasonUserRequest
	case gopsprocess.Wait, gopsprocess.Lock, gopsprocess.Blocked:
		return WaitReasonExecutive
	}
	return WaitReasonUnknown
}

// windowsThreadStateWaiting is the Win32_Thread.ThreadState value for a waiting thread
const windowsThreadStateWaiting = 5

// waitReasonFromWin32 maps Win32_Thread state and wait reason.
// The wait reason is only meaningful while the thread is waiting.
func waitReasonFromWin32(threadState, waitReason *uint32) WaitReason {
	if waitReason == nil {
		return WaitReasonUnknown
	}
	if threadState != nil && *threadState != windowsThreadStateWaiting {
		return WaitReasonRunning
	}
	return WaitReason(*waitReason)
}
