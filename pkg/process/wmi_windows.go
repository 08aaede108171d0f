//go:build windows

package process

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/yusufpapurcu/wmi"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

const defaultWMINamespace = `root\cimv2`

// win32Process mirrors the Win32_Process columns the watchdog reads
type win32Process struct {
	Name           string
	ProcessId      uint32
	ExecutablePath *string
}

// win32Thread mirrors the Win32_Thread columns the watchdog reads
type win32Thread struct {
	Handle           string
	ThreadState      *uint32
	ThreadWaitReason *uint32
}

// connectArgs returns the SWbemLocator.ConnectServer arguments for a target, nil for local
func connectArgs(target Target) []interface{} {
	if target.IsLocal() {
		return nil
	}
	namespace := target.Namespace
	if namespace == "" {
		namespace = defaultWMINamespace
	}
	return []interface{}{target.Host, namespace, target.User, target.Password}
}

// runWMI runs a blocking WMI call and abandons it when ctx ends
func runWMI(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelledError("wmi call cancelled", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- call()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.NewCancelledError("wmi call cancelled", ctx.Err())
	}
}

func wmiFindProcesses(ctx context.Context, filter Filter, args []interface{}, host string) ([]Handle, error) {
	where, err := processWhere(filter)
	if err != nil {
		return nil, err
	}

	var rows []win32Process
	query := wmi.CreateQuery(&rows, where, "Win32_Process")
	if err := runWMI(ctx, func() error { return wmi.Query(query, &rows, args...) }); err != nil {
		if errors.IsCancelledError(err) {
			return nil, err
		}
		return nil, errors.NewProcessError("Win32_Process query failed", err).WithContext("filter", filter.String())
	}

	handles := make([]Handle, 0, len(rows))
	for _, row := range rows {
		handle := Handle{PID: int32(row.ProcessId), Name: row.Name, Host: host}
		if row.ExecutablePath != nil {
			handle.ExecutablePath = *row.ExecutablePath
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func wmiThreads(ctx context.Context, handle Handle, args []interface{}, logger logging.Logger) ([]ThreadDescriptor, error) {
	where, err := threadWhere(handle)
	if err != nil {
		return nil, err
	}

	var rows []win32Thread
	query := wmi.CreateQuery(&rows, where, "Win32_Thread")
	if err := runWMI(ctx, func() error { return wmi.Query(query, &rows, args...) }); err != nil {
		if errors.IsCancelledError(err) {
			return nil, err
		}
		return nil, errors.NewProcessError("Win32_Thread query failed", err).WithContext("pid", handle.PID)
	}

	threads := make([]ThreadDescriptor, 0, len(rows))
	for _, row := range rows {
		tid, err := parseThreadID(row.Handle)
		if err != nil {
			logger.Debugf("Keeping thread with unreadable id, pid: %d, error: %v", handle.PID, err)
		}
		threads = append(threads, ThreadDescriptor{
			ThreadID:   tid,
			OwnerPID:   handle.PID,
			WaitReason: waitReasonFromWin32(row.ThreadState, row.ThreadWaitReason),
		})
	}
	return threads, nil
}

const sFalse = 0x00000001

// withWMIService connects to the WMI service on a COM-initialized, locked OS thread
func withWMIService(args []interface{}, fn func(service *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if !stderrors.As(err, &oleErr) || (oleErr.Code() != ole.S_OK && oleErr.Code() != sFalse) {
			return err
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return err
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return err
	}
	defer locator.Release()

	serviceRaw, err := oleutil.CallMethod(locator, "ConnectServer", args...)
	if err != nil {
		return err
	}
	defer serviceRaw.Clear()

	return fn(serviceRaw.ToIDispatch())
}

func variantInt(v *ole.VARIANT) int64 {
	switch value := v.Value().(type) {
	case int32:
		return int64(value)
	case uint32:
		return int64(value)
	case int64:
		return value
	case uint64:
		return int64(value)
	case int:
		return int64(value)
	case uint8:
		return int64(value)
	}
	return -1
}

// wmiCreateProcess runs Win32_Process.Create with a full command line
func wmiCreateProcess(args []interface{}, commandLine string) (int32, error) {
	var pid int32
	err := withWMIService(args, func(service *ole.IDispatch) error {
		classRaw, err := oleutil.CallMethod(service, "Get", "Win32_Process")
		if err != nil {
			return err
		}
		defer classRaw.Clear()
		class := classRaw.ToIDispatch()

		methodsRaw, err := oleutil.GetProperty(class, "Methods_")
		if err != nil {
			return err
		}
		defer methodsRaw.Clear()

		methodRaw, err := oleutil.CallMethod(methodsRaw.ToIDispatch(), "Item", "Create")
		if err != nil {
			return err
		}
		defer methodRaw.Clear()

		inParamsRaw, err := oleutil.GetProperty(methodRaw.ToIDispatch(), "InParameters")
		if err != nil {
			return err
		}
		defer inParamsRaw.Clear()

		inRaw, err := oleutil.CallMethod(inParamsRaw.ToIDispatch(), "SpawnInstance_")
		if err != nil {
			return err
		}
		defer inRaw.Clear()
		in := inRaw.ToIDispatch()

		if _, err := oleutil.PutProperty(in, "CommandLine", commandLine); err != nil {
			return err
		}

		outRaw, err := oleutil.CallMethod(class, "ExecMethod_", "Create", in)
		if err != nil {
			return err
		}
		defer outRaw.Clear()
		out := outRaw.ToIDispatch()

		returnValue, err := oleutil.GetProperty(out, "ReturnValue")
		if err != nil {
			return err
		}
		defer returnValue.Clear()
		if code := variantInt(returnValue); code != 0 {
			return fmt.Errorf("Win32_Process.Create returned %d", code)
		}

		pidRaw, err := oleutil.GetProperty(out, "ProcessId")
		if err != nil {
			return err
		}
		defer pidRaw.Clear()
		pid = int32(variantInt(pidRaw))
		return nil
	})
	return pid, err
}

// wmiTerminateProcess runs Win32_Process.Terminate on one process
func wmiTerminateProcess(args []interface{}, pid int32) error {
	return withWMIService(args, func(service *ole.IDispatch) error {
		objectRaw, err := oleutil.CallMethod(service, "Get", fmt.Sprintf(`Win32_Process.Handle="%d"`, pid))
		if err != nil {
			return err
		}
		defer objectRaw.Clear()

		resultRaw, err := oleutil.CallMethod(objectRaw.ToIDispatch(), "Terminate")
		if err != nil {
			return err
		}
		defer resultRaw.Clear()
		if code := variantInt(resultRaw); code != 0 {
			return fmt.Errorf("Win32_Process.Terminate returned %d", code)
		}
		return nil
	})
}
