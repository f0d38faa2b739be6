package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/style"
)

type keymap struct {
	state state

	playPause,
	seekBack, seekForward,
	volumeUp, volumeDown,
	quit, forceQuit,
	showHelp key.Binding
}

func (k *keymap) setState(newState state) {
	k.state = newState
}

func newKeymap() *keymap {
	return &keymap{
		playPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("pause/resume")),
		),
		seekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "rewind"),
		),
		seekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "forward"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("+", "=", "up", "k"),
			key.WithHelp("+", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("-", "_", "down", "j"),
			key.WithHelp("-", "volume down"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "stop"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "stop"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *keymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	switch k.state {
	case playingState:
		return h(k.playPause, k.seekForward, k.volumeUp, k.quit, k.showHelp),
			h(k.playPause, k.seekBack, k.seekForward, k.volumeUp, k.volumeDown, k.quit, k.forceQuit)
	case loadingState, stoppingState:
		return h(k.forceQuit), h(k.forceQuit)
	case errorState:
		return h(k.quit), h(k.quit)
	default:
		return h(), h()
	}
}

func (k *keymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *keymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
