//go:build unix

package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the subprocess in its own process group so signals
// aimed at it never hit the parent.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// suspendProcess stops the process cooperatively. SIGSTOP cannot be
// caught or ignored, so this works regardless of the target's signal
// handling.
func suspendProcess(pid int) error {
	return unix.Kill(pid, unix.SIGSTOP)
}

func resumeProcess(pid int) error {
	return unix.Kill(pid, unix.SIGCONT)
}
