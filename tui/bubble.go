package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/melodeck/melodeck/internal/ui"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/style"
	"github.com/samber/mo"
)

const (
	defaultSeekStep   = 10
	defaultVolumeStep = 5
	initialVolume     = 100
)

// bubble holds the now-playing view state.
type bubble struct {
	ctx     context.Context
	options Options

	state  state
	keymap *keymap

	// components
	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  *ui.Model

	status   playback.StatusResult
	volume   float64
	position mo.Option[float64]

	// busy is set while a control request is in flight
	busy      bool
	lastError error

	width, height int
}

func newBubble(ctx context.Context, options Options) *bubble {
	if options.Poll <= 0 {
		options.Poll = DefaultPollInterval
	}
	if options.SeekStep <= 0 {
		options.SeekStep = defaultSeekStep
	}
	if options.VolumeStep <= 0 {
		options.VolumeStep = defaultVolumeStep
	}

	b := &bubble{
		ctx:      ctx,
		options:  options,
		state:    loadingState,
		keymap:   newKeymap(),
		volume:   initialVolume,
		notifier: &ui.Model{},
	}

	b.spinnerC = spinner.New()
	b.spinnerC.Spinner = spinner.Dot
	b.spinnerC.Style = style.New().Foreground(style.AccentColor)

	b.progressC = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	b.helpC = help.New()

	b.status.Snapshot = options.Initial.Snapshot
	b.status.Backend = options.Initial.Backend
	if meta, ok := options.Initial.Meta.Get(); ok {
		b.status.DurationSeconds = meta.DurationSeconds
	}
	if options.Initial.Status == playback.Playing || options.Initial.Status == playback.Paused {
		b.setState(playingState)
	}

	return b
}

func (b *bubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *bubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

func (b *bubble) resize(width, height int) {
	b.width = width
	b.height = height
	b.helpC.Width = width

	// leave room for the padding and the time labels
	b.progressC.Width = max(10, width-4-len(" 00:00:00 / 00:00:00"))
}

// fraction is the played part of the track, or 0 when the duration is unknown.
func (b *bubble) fraction() float64 {
	duration, ok := b.status.DurationSeconds.Get()
	if !ok || duration <= 0 {
		return 0
	}
	return min(1, max(0, b.position.OrElse(0)/duration))
}

func (b *bubble) timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, 3*time.Second)
}
