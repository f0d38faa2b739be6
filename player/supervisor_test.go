package player

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProcess struct {
	pid        int
	ignoreTerm bool

	mu      sync.Mutex
	signals []os.Signal
	killed  bool
	exit    chan struct{}
	once    sync.Once
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exit: make(chan struct{})}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	if !p.ignoreTerm {
		p.stop()
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.stop()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.exit
	return nil
}

func (p *fakeProcess) stop() { p.once.Do(func() { close(p.exit) }) }

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched [][]string
	binary   string
	next     *fakeProcess
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context, binary string, args []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.binary = binary
	l.launched = append(l.launched, args)
	proc := l.next
	if proc == nil {
		proc = newFakeProcess(1000 + len(l.launched))
	}
	l.next = nil
	return proc, nil
}

func staticBinary(path string) BinaryFunc {
	return func(context.Context) (string, error) { return path, nil }
}

func TestSupervisor(t *testing.T) {
	Convey("Given a supervisor with a fake launcher", t, func() {
		launcher := &fakeLauncher{}
		var swept []string
		sup := NewSupervisor(SupervisorOptions{
			Binary:   staticBinary("/usr/bin/mpv"),
			Socket:   "/tmp/melodeck.sock",
			Grace:    20 * time.Millisecond,
			Launcher: launcher,
			Sweep: func(_ context.Context, binary, socket string) error {
				swept = append(swept, binary+" "+socket)
				return errors.New("no processes matched")
			},
		})
		ctx := context.Background()

		Convey("Spawn passes the fixed argument set", func() {
			h, err := sup.Spawn(ctx, " https://cdn/stream.m4a ")
			So(err, ShouldBeNil)
			So(h.Alive(), ShouldBeTrue)
			So(h.Locator(), ShouldEqual, "https://cdn/stream.m4a")
			So(launcher.binary, ShouldEqual, "/usr/bin/mpv")
			So(launcher.launched[0], ShouldResemble, []string{
				"--no-video",
				"--force-window=no",
				"--idle=no",
				"--input-ipc-server=/tmp/melodeck.sock",
				"--really-quiet",
				"https://cdn/stream.m4a",
			})
			So(sup.Terminate(ctx, h), ShouldBeNil)
		})

		Convey("Spawn rejects locators that look like flags", func() {
			_, err := sup.Spawn(ctx, "--script=/evil.lua")
			So(errors.Is(err, fault.PlaybackError), ShouldBeTrue)
			So(launcher.launched, ShouldBeEmpty)
		})

		Convey("Spawn rejects unsupported schemes", func() {
			_, err := sup.Spawn(ctx, "file:///etc/passwd")
			So(errors.Is(err, fault.PlaybackError), ShouldBeTrue)
		})

		Convey("A missing binary fails before launching", func() {
			sup.binary = func(context.Context) (string, error) {
				return "", fault.New(fault.MissingDependency, "locate", "mpv not found")
			}
			_, err := sup.Spawn(ctx, "https://cdn/a")
			So(errors.Is(err, fault.MissingDependency), ShouldBeTrue)
			So(launcher.launched, ShouldBeEmpty)
		})

		Convey("Check reports a missing binary without launching", func() {
			So(sup.Check(ctx), ShouldBeNil)
			sup.binary = func(context.Context) (string, error) {
				return "", fault.New(fault.MissingDependency, "locate", "mpv not found")
			}
			So(errors.Is(sup.Check(ctx), fault.MissingDependency), ShouldBeTrue)
			So(launcher.launched, ShouldBeEmpty)
		})

		Convey("A launch failure is a playback error", func() {
			launcher.err = errors.New("permission denied")
			_, err := sup.Spawn(ctx, "https://cdn/a")
			So(errors.Is(err, fault.PlaybackError), ShouldBeTrue)
		})

		Convey("The exit observer sees the exited handle", func() {
			exited := make(chan *Handle, 1)
			sup.OnExit(func(h *Handle) { exited <- h })

			proc := newFakeProcess(42)
			launcher.next = proc
			h, err := sup.Spawn(ctx, "https://cdn/a")
			So(err, ShouldBeNil)

			proc.stop()
			So(<-exited, ShouldEqual, h)
			So(h.Alive(), ShouldBeFalse)
		})

		Convey("Terminate stops a cooperative process without killing it", func() {
			proc := newFakeProcess(7)
			launcher.next = proc
			h, _ := sup.Spawn(ctx, "https://cdn/a")

			So(sup.Terminate(ctx, h), ShouldBeNil)
			So(h.Alive(), ShouldBeFalse)
			So(proc.wasKilled(), ShouldBeFalse)
		})

		Convey("Terminate kills a process that ignores the signal", func() {
			proc := newFakeProcess(8)
			proc.ignoreTerm = true
			launcher.next = proc
			h, _ := sup.Spawn(ctx, "https://cdn/a")

			So(sup.Terminate(ctx, h), ShouldBeNil)
			So(proc.wasKilled(), ShouldBeTrue)
			So(h.Alive(), ShouldBeFalse)
		})

		Convey("Terminate of a nil or exited handle is a no-op", func() {
			So(sup.Terminate(ctx, nil), ShouldBeNil)

			h, _ := sup.Spawn(ctx, "https://cdn/a")
			So(sup.Terminate(ctx, h), ShouldBeNil)
			So(sup.Terminate(ctx, h), ShouldBeNil)
		})

		Convey("Sweep tolerates sweeper failures and removes the socket file", func() {
			filesystem.SetMemMapFs()
			lo.Must0(filesystem.API().WriteFile("/tmp/melodeck.sock", []byte{}, 0o600))

			So(sup.Sweep(ctx), ShouldBeNil)
			So(swept, ShouldResemble, []string{"mpv /tmp/melodeck.sock"})

			if runtime.GOOS != "windows" {
				So(lo.Must(filesystem.API().Exists("/tmp/melodeck.sock")), ShouldBeFalse)
			}
		})
	})
}
