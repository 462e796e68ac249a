//go:build windows

package process

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// Windows has no process-wide stop signal; ntdll's undocumented but
// stable NtSuspendProcess/NtResumeProcess suspend every thread at once.
var (
	ntdll            = windows.NewLazySystemDLL("ntdll.dll")
	ntSuspendProcess = ntdll.NewProc("NtSuspendProcess")
	ntResumeProcess  = ntdll.NewProc("NtResumeProcess")
)

func suspendProcess(pid int) error {
	return withProcessHandle(pid, ntSuspendProcess)
}

func resumeProcess(pid int) error {
	return withProcessHandle(pid, ntResumeProcess)
}

func withProcessHandle(pid int, proc *windows.LazyProc) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SUSPEND_RESUME, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	status, _, _ := proc.Call(uintptr(handle))
	if status != 0 {
		return windows.NTStatus(status)
	}
	return nil
}
