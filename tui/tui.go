// Package tui provides the now-playing terminal view shown while a track plays.
package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/melodeck/melodeck/playback"
)

// DefaultPollInterval is how often the view refreshes the playback position.
const DefaultPollInterval = 500 * time.Millisecond

// Controls is the part of the playback controller the view drives.
type Controls interface {
	Pause(ctx context.Context) (playback.Snapshot, error)
	Resume(ctx context.Context) (playback.Snapshot, error)
	Seek(ctx context.Context, position float64) (playback.SeekResult, error)
	SetVolume(ctx context.Context, level float64) (playback.VolumeResult, error)
	Status(ctx context.Context) (playback.StatusResult, error)
	Stop(ctx context.Context) (playback.Snapshot, error)
	Wait(ctx context.Context) error
}

// Options configures the now-playing view.
type Options struct {
	Controls Controls
	// Initial is the result of the Play that started the session.
	Initial playback.PlayResult
	// Poll defaults to DefaultPollInterval.
	Poll time.Duration
	// SeekStep is the number of seconds moved by the arrow keys. Defaults to 10.
	SeekStep float64
	// VolumeStep defaults to 5.
	VolumeStep float64
}

// Run shows the view until the player exits or the user stops playback.
func Run(ctx context.Context, options Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newBubble(ctx, options)

	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}

	if b, ok := final.(*bubble); ok && b.lastError != nil {
		return b.lastError
	}
	return nil
}
