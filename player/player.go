// Package player supervises the external mpv process and talks to it over its JSON-IPC
// control socket.
package player

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// Process is a started player process.
type Process interface {
	Pid() int
	// Signal delivers sig to the process.
	Signal(sig os.Signal) error
	// Kill forcibly stops the process and its group.
	Kill() error
	// Wait blocks until the process exits and is reaped.
	Wait() error
}

// Launcher starts player processes.
type Launcher interface {
	Launch(ctx context.Context, binary string, args []string) (Process, error)
}

// ExecLauncher starts processes with os/exec, detached from the caller's process group.
type ExecLauncher struct{}

// Launch implements Launcher. The process is not bound to ctx: it outlives the request that spawned it.
func (ExecLauncher) Launch(_ context.Context, binary string, args []string) (Process, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int                   { return p.cmd.Process.Pid }
func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *execProcess) Kill() error                { return killProcess(p.cmd) }
func (p *execProcess) Wait() error                { return p.cmd.Wait() }

// Handle tracks one spawned player process.
type Handle struct {
	proc      Process
	locator   string
	startedAt time.Time
	done      chan struct{}
	exitErr   error
}

// Pid returns the operating system process id.
func (h *Handle) Pid() int { return h.proc.Pid() }

// Locator is the media locator the process was started with.
func (h *Handle) Locator() string { return h.locator }

// StartedAt reports when the process was spawned.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Alive reports whether the process has not exited yet.
func (h *Handle) Alive() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the wait error once Done is closed.
func (h *Handle) ExitErr() error {
	<-h.done
	return h.exitErr
}
