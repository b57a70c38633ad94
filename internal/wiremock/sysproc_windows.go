//go:build windows

package wiremock

import (
	"os/exec"
	"syscall"
)

// createNewConsole is CREATE_NEW_CONSOLE from the Win32 process creation flags
const createNewConsole = 0x00000010

// detach runs the server in a console of its own
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewConsole}
}
