//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureProcAttr starts the child without a console window.
func configureProcAttr(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NO_WINDOW
}

// interruptTree has no graceful equivalent on Windows; the process is killed.
func interruptTree(p *os.Process) error {
	return p.Kill()
}

func killTree(p *os.Process) error {
	return p.Kill()
}
