package git

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup places cmd in its own process group so killProcessGroup
// can reap it (and any children it spawns) in one shot.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to pid's process group, so a cancelled
// merge-tree or cat-file --batch invocation cannot leave orphaned children
// behind when the caller stops iterating a Scan early.
func killProcessGroup(pid int) error {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		return unix.Kill(pid, unix.SIGKILL)
	}
	return nil
}
