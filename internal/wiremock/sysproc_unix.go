//go:build !windows

package wiremock

import (
	"os/exec"
	"syscall"
)

// detach puts the server in its own process group so terminal signals sent to
// the caller do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
