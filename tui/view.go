package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/track"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *bubble) View() string {
	var output string

	switch b.state {
	case loadingState:
		output = b.viewLoading()
	case playingState:
		output = b.viewPlaying()
	case stoppingState:
		output = b.viewStopping()
	case errorState:
		output = b.viewError()
	default:
		output = "Unknown state"
	}

	return b.notifier.View(output)
}

func (b *bubble) truncate(s string) string {
	if b.width <= 4 {
		return s
	}
	return truncate.StringWithTail(s, uint(b.width-4), "…")
}

func (b *bubble) viewLoading() string {
	return b.renderLines(true, []string{
		style.Title("Now Playing"),
		"",
		b.spinnerC.View() + " Starting player",
	})
}

func (b *bubble) viewStopping() string {
	return b.renderLines(false, []string{
		style.Title("Now Playing"),
		"",
		b.spinnerC.View() + " Stopping",
	})
}

func (b *bubble) viewPlaying() string {
	meta := b.status.Meta.OrEmpty()

	title := meta.Title
	if title == "" {
		title = b.status.URL.OrElse("Unknown track")
	}

	statusIcon := icon.Get(icon.Play)
	if b.status.Status == playback.Paused {
		statusIcon = icon.Get(icon.Pause)
	}

	lines := []string{
		style.Title("Now Playing") + " " + style.Status(string(b.status.Status)),
		"",
		b.truncate(statusIcon + " " + style.Bold(style.Fg(color.Purple)(title))),
	}
	if meta.Uploader != "" {
		lines = append(lines, b.truncate(style.Faint("by "+meta.Uploader)))
	}

	lines = append(lines,
		"",
		b.progressC.View()+" "+b.timeLabel(),
		"",
		style.Faint(fmt.Sprintf("volume %.0f%%", b.volume)),
	)

	return b.renderLines(true, lines)
}

func (b *bubble) timeLabel() string {
	position := "--:--"
	if pos, ok := b.position.Get(); ok {
		position = track.FormatSeconds(pos)
	}

	duration := "--:--"
	if d, ok := b.status.DurationSeconds.Get(); ok {
		duration = track.FormatSeconds(d)
	}

	return position + " / " + duration
}

func (b *bubble) viewError() string {
	errorMsg := style.Fg(color.HiRed)(fault.Message(b.lastError))
	if b.width > 4 {
		errorMsg = wrap.String(errorMsg, b.width-4)
	}

	return b.renderLines(true, []string{
		style.Title("Error"),
		"",
		icon.Get(icon.Fail) + " Playback could not be stopped cleanly:",
		"",
		errorMsg,
	})
}

func (b *bubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		// padding takes two lines, help one
		if b.height-3 > h {
			l += strings.Repeat("\n", b.height-3-h)
		}
		l += "\n" + b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
