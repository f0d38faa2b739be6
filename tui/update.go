package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/internal/ui"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/mo"
)

type (
	tickMsg     time.Time
	finishedMsg struct{ err error }
	stoppedMsg  struct{ err error }
	statusMsg   struct {
		result playback.StatusResult
		err    error
	}
	snapshotMsg playback.Snapshot
	seekMsg     playback.SeekResult
	volumeMsg   playback.VolumeResult
	controlErr  struct{ err error }
)

func (b *bubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.tick(), b.pollStatus(), b.waitForExit())
}

func (b *bubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if cmd := b.notifier.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		return b, tea.Batch(append(cmds, b.handleKey(msg))...)
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		cmds = append(cmds, cmd)
	case progress.FrameMsg:
		model, cmd := b.progressC.Update(msg)
		b.progressC = model.(progress.Model)
		cmds = append(cmds, cmd)
	case tickMsg:
		if b.state == playingState || b.state == loadingState {
			cmds = append(cmds, b.pollStatus(), b.tick())
		}
	case statusMsg:
		if msg.err != nil {
			log.Debugf("tui: status: %v", msg.err)
			break
		}
		b.status = msg.result
		b.position = msg.result.Position
		if b.state == loadingState && (b.status.Status == playback.Playing || b.status.Status == playback.Paused) {
			b.setState(playingState)
		}
		cmds = append(cmds, b.progressC.SetPercent(b.fraction()))
	case snapshotMsg:
		b.busy = false
		b.status.Snapshot = playback.Snapshot(msg)
		cmds = append(cmds, ui.Notify(string(msg.Status)))
	case seekMsg:
		b.busy = false
		b.status.Snapshot = msg.Snapshot
		b.position = mo.Some(msg.Position)
		cmds = append(cmds, ui.Notify("seek "+track.FormatSeconds(msg.Position)), b.progressC.SetPercent(b.fraction()))
	case volumeMsg:
		b.busy = false
		b.status.Snapshot = msg.Snapshot
		b.volume = msg.Volume
		cmds = append(cmds, ui.Notify(fmt.Sprintf("volume %.0f%%", msg.Volume)))
	case controlErr:
		b.busy = false
		cmds = append(cmds, ui.Notify(fault.Message(msg.err)))
	case finishedMsg:
		if msg.err != nil {
			log.Debugf("tui: wait: %v", msg.err)
		}
		return b, tea.Quit
	case stoppedMsg:
		if msg.err != nil {
			b.raiseError(msg.err)
			return b, nil
		}
		return b, tea.Quit
	}

	return b, tea.Batch(cmds...)
}

func (b *bubble) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, b.keymap.forceQuit), key.Matches(msg, b.keymap.quit):
		switch b.state {
		case errorState:
			return tea.Quit
		case stoppingState:
			return nil
		}
		b.setState(stoppingState)
		return b.stop()
	case key.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
		return nil
	}

	if b.state != playingState || b.busy {
		return nil
	}

	switch {
	case key.Matches(msg, b.keymap.playPause):
		return b.control(b.togglePause())
	case key.Matches(msg, b.keymap.seekBack):
		return b.control(b.seekBy(-b.options.SeekStep))
	case key.Matches(msg, b.keymap.seekForward):
		return b.control(b.seekBy(b.options.SeekStep))
	case key.Matches(msg, b.keymap.volumeUp):
		return b.control(b.volumeBy(b.options.VolumeStep))
	case key.Matches(msg, b.keymap.volumeDown):
		return b.control(b.volumeBy(-b.options.VolumeStep))
	}

	return nil
}

func (b *bubble) control(cmd tea.Cmd) tea.Cmd {
	b.busy = true
	return cmd
}

func (b *bubble) tick() tea.Cmd {
	return tea.Tick(b.options.Poll, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (b *bubble) pollStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := b.timeout()
		defer cancel()

		result, err := b.options.Controls.Status(ctx)
		return statusMsg{result: result, err: err}
	}
}

func (b *bubble) waitForExit() tea.Cmd {
	return func() tea.Msg {
		return finishedMsg{err: b.options.Controls.Wait(b.ctx)}
	}
}

func (b *bubble) togglePause() tea.Cmd {
	toggle := b.options.Controls.Pause
	if b.status.Status == playback.Paused {
		toggle = b.options.Controls.Resume
	}

	return func() tea.Msg {
		ctx, cancel := b.timeout()
		defer cancel()

		snapshot, err := toggle(ctx)
		if err != nil {
			return controlErr{err}
		}
		return snapshotMsg(snapshot)
	}
}

func (b *bubble) seekBy(delta float64) tea.Cmd {
	target := max(0, b.position.OrElse(0)+delta)
	if duration, ok := b.status.DurationSeconds.Get(); ok && duration > 0 {
		target = min(target, duration)
	}

	return func() tea.Msg {
		ctx, cancel := b.timeout()
		defer cancel()

		result, err := b.options.Controls.Seek(ctx, target)
		if err != nil {
			return controlErr{err}
		}
		return seekMsg(result)
	}
}

func (b *bubble) volumeBy(delta float64) tea.Cmd {
	target := b.volume + delta

	return func() tea.Msg {
		ctx, cancel := b.timeout()
		defer cancel()

		result, err := b.options.Controls.SetVolume(ctx, target)
		if err != nil {
			return controlErr{err}
		}
		return volumeMsg(result)
	}
}

func (b *bubble) stop() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := b.timeout()
		defer cancel()

		_, err := b.options.Controls.Stop(ctx)
		return stoppedMsg{err: err}
	}
}
