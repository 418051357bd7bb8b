//go:build !windows

package platform

import (
	"fmt"
	"os/exec"
	"syscall"
)

// ConfigureProcAttr runs the command in its own process group so the runtime
// and anything it spawns can be signalled together.
func ConfigureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// Interrupt asks the process group led by pid to shut down.
func Interrupt(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

// Kill forcibly terminates the process group led by pid.
func Kill(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	// Negative PID addresses the whole process group.
	if err := syscall.Kill(-pid, sig); err != nil {
		if err2 := syscall.Kill(pid, sig); err2 != nil {
			return fmt.Errorf("failed to signal process group -%d: %v, also failed to signal process %d: %w", pid, err, pid, err2)
		}
	}
	return nil
}
