//go:build !windows

package player

import (
	"context"
	"os"
	"os/exec"
	"syscall"

	"github.com/melodeck/melodeck/filesystem"
)

var terminateSignal os.Signal = syscall.SIGTERM

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	return cmd.Process.Kill()
}

// sweepCommand matches players started with our control socket argument.
func sweepCommand(ctx context.Context, _ string, socket string) *exec.Cmd {
	return exec.CommandContext(ctx, "pkill", "-f", "--", "--input-ipc-server="+socket)
}

// removeSocket deletes the unix socket file left behind by a killed player.
func removeSocket(socket string) error {
	return filesystem.RemoveIfExists(socket)
}
