//go:build unix

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group so the whole
// tree can be signalled on cancellation.
func configureProcAttr(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// interruptTree sends SIGTERM to the process group led by p.
func interruptTree(p *os.Process) error {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil {
		return syscall.Kill(-pgid, syscall.SIGTERM)
	}
	return p.Signal(syscall.SIGTERM)
}

// killTree sends SIGKILL to the process group led by p.
func killTree(p *os.Process) error {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return p.Kill()
}
