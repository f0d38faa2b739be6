package player

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/log"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultGrace is how long Terminate waits after the polite signal before killing.
	DefaultGrace = 300 * time.Millisecond

	reapTimeout  = 2 * time.Second
	sweepTimeout = 3 * time.Second
)

// BinaryFunc resolves the player executable.
type BinaryFunc func(ctx context.Context) (string, error)

// SweepFunc kills stray player processes bound to socket.
type SweepFunc func(ctx context.Context, binary, socket string) error

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Binary   BinaryFunc
	Socket   string
	Grace    time.Duration
	Launcher Launcher
	Sweep    SweepFunc
}

// Supervisor spawns and terminates player processes.
type Supervisor struct {
	binary   BinaryFunc
	socket   string
	grace    time.Duration
	launcher Launcher
	sweep    SweepFunc

	mu       sync.Mutex
	onExit   func(*Handle)
	lastPath string
}

// NewSupervisor creates a Supervisor. Binary and Socket are required.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	if opts.Sweep == nil {
		opts.Sweep = sweepStrays
	}

	return &Supervisor{
		binary:   opts.Binary,
		socket:   opts.Socket,
		grace:    opts.Grace,
		launcher: opts.Launcher,
		sweep:    opts.Sweep,
	}
}

// Socket returns the control socket address passed to spawned players.
func (s *Supervisor) Socket() string {
	return s.socket
}

// OnExit registers fn to be called after a spawned process exits.
func (s *Supervisor) OnExit(fn func(*Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExit = fn
}

// Args returns the player command line for locator.
func (s *Supervisor) Args(locator string) []string {
	return []string{
		"--no-video",
		"--force-window=no",
		"--idle=no",
		"--input-ipc-server=" + s.socket,
		"--really-quiet",
		locator,
	}
}

// Check locates the player executable without starting it.
func (s *Supervisor) Check(ctx context.Context) error {
	_, err := s.binary(ctx)
	return err
}

// Spawn starts a player for locator and begins watching it for exit.
func (s *Supervisor) Spawn(ctx context.Context, locator string) (*Handle, error) {
	const op = "player.spawn"

	safe, err := sanitizeMediaTarget(locator)
	if err != nil {
		return nil, &fault.Error{Op: op, Kind: fault.PlaybackError, Detail: "invalid media locator", Err: err}
	}

	binary, err := s.binary(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastPath = binary
	s.mu.Unlock()

	proc, err := s.launcher.Launch(ctx, binary, s.Args(safe))
	if err != nil {
		return nil, &fault.Error{Op: op, Kind: fault.PlaybackError, Detail: "failed to start player", Err: err}
	}

	h := &Handle{
		proc:      proc,
		locator:   safe,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	log.With(logrus.Fields{"pid": proc.Pid(), "socket": s.socket}).Info("player spawned")

	go s.watch(h)

	return h, nil
}

// watch reaps the process so it never lingers as a zombie, then notifies the exit observer.
func (s *Supervisor) watch(h *Handle) {
	h.exitErr = h.proc.Wait()
	close(h.done)

	log.With(logrus.Fields{"pid": h.proc.Pid(), "err": h.exitErr}).Debug("player exited")

	s.mu.Lock()
	fn := s.onExit
	s.mu.Unlock()

	if fn != nil {
		fn(h)
	}
}

// Terminate stops h: a polite signal first, a kill once the grace window lapses, then a
// bounded wait for the process to be reaped. A nil or exited handle is a no-op.
func (s *Supervisor) Terminate(ctx context.Context, h *Handle) error {
	if !h.Alive() {
		return nil
	}

	if err := h.proc.Signal(terminateSignal); err != nil {
		log.Debugf("player: signal %d failed, escalating: %v", h.Pid(), err)
	} else {
		select {
		case <-h.done:
			return nil
		case <-time.After(s.grace):
		case <-ctx.Done():
		}
	}

	if h.Alive() {
		log.With(logrus.Fields{"pid": h.Pid()}).Info("player ignored terminate, killing")
		if err := h.proc.Kill(); err != nil && h.Alive() {
			log.Warnf("player: kill %d: %v", h.Pid(), err)
		}
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(reapTimeout):
		return fault.Newf(fault.PlaybackError, "player.terminate", "player %d did not exit", h.Pid())
	}
}

// Sweep kills stray players started with our socket and removes a leftover socket file.
// Failures are logged and never returned, except socket removal errors.
func (s *Supervisor) Sweep(ctx context.Context) error {
	s.mu.Lock()
	binary := s.lastPath
	s.mu.Unlock()
	if binary == "" {
		binary = "mpv"
	}

	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	if err := s.sweep(sweepCtx, binary, s.socket); err != nil {
		log.Debugf("player: stray sweep: %v", err)
	}

	if err := removeSocket(s.socket); err != nil {
		return fault.Wrap(fault.PlaybackError, "player.sweep", err)
	}

	return nil
}

func sweepStrays(ctx context.Context, binary, socket string) error {
	return sweepCommand(ctx, binary, socket).Run()
}

// sanitizeMediaTarget validates a locator before it is placed on the player's command line.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty locator")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in locator")
	}

	// a leading dash would be parsed as a player flag
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("locator must not start with '-'")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}
