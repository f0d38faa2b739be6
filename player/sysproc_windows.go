//go:build windows

package player

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

const createNoWindow = 0x08000000

// Windows has no SIGTERM; Interrupt is unsupported for most processes and Terminate escalates to Kill.
var terminateSignal os.Signal = os.Interrupt

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func sweepCommand(ctx context.Context, binary string, _ string) *exec.Cmd {
	image := filepath.Base(binary)
	if filepath.Ext(image) == "" {
		image += ".exe"
	}

	cmd := exec.CommandContext(ctx, "taskkill", "/F", "/T", "/IM", image)
	cmd.SysProcAttr = sysProcAttr()
	return cmd
}

// Named pipes vanish with their server.
func removeSocket(string) error {
	return nil
}
