package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/internal/ui"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeControls struct {
	paused   bool
	seeks    []float64
	volumes  []float64
	stopped  bool
	stopErr  error
	position float64
}

func (f *fakeControls) snapshot() playback.Snapshot {
	status := playback.Playing
	if f.paused {
		status = playback.Paused
	}
	return playback.Snapshot{Status: status}
}

func (f *fakeControls) Pause(context.Context) (playback.Snapshot, error) {
	f.paused = true
	return f.snapshot(), nil
}

func (f *fakeControls) Resume(context.Context) (playback.Snapshot, error) {
	f.paused = false
	return f.snapshot(), nil
}

func (f *fakeControls) Seek(_ context.Context, position float64) (playback.SeekResult, error) {
	f.seeks = append(f.seeks, position)
	return playback.SeekResult{Snapshot: f.snapshot(), Position: position}, nil
}

func (f *fakeControls) SetVolume(_ context.Context, level float64) (playback.VolumeResult, error) {
	level = min(100, max(0, level))
	f.volumes = append(f.volumes, level)
	return playback.VolumeResult{Snapshot: f.snapshot(), Volume: level}, nil
}

func (f *fakeControls) Status(context.Context) (playback.StatusResult, error) {
	return playback.StatusResult{
		Snapshot:        f.snapshot(),
		Position:        mo.Some(f.position),
		DurationSeconds: mo.Some(float64(200)),
	}, nil
}

func (f *fakeControls) Stop(context.Context) (playback.Snapshot, error) {
	f.stopped = true
	return playback.Snapshot{Status: playback.Idle}, f.stopErr
}

func (f *fakeControls) Wait(context.Context) error { return nil }

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// press sends a key and feeds the resulting control message back into the bubble.
func press(b *bubble, s string) tea.Msg {
	_, cmd := b.Update(keyPress(s))
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if m := c(); m != nil {
				if _, isNote := m.(ui.NotificationMsg); !isNote {
					msg = m
				}
			}
		}
	}
	b.Update(msg)
	return msg
}

func playing() playback.PlayResult {
	return playback.PlayResult{
		Snapshot: playback.Snapshot{
			Status: playback.Playing,
			URL:    mo.Some("https://cdn/stream"),
			Meta: mo.Some(track.Meta{
				Title:           "Blue in Green",
				Uploader:        "Miles Davis",
				DurationSeconds: mo.Some(float64(200)),
			}),
		},
	}
}

func TestBubble(t *testing.T) {
	Convey("Given the now-playing view", t, func() {
		controls := &fakeControls{position: 50}
		b := newBubble(context.Background(), Options{Controls: controls, Initial: playing()})
		b.resize(80, 24)

		Convey("It starts in the playing state with the track shown", func() {
			So(b.state, ShouldEqual, playingState)
			So(b.View(), ShouldContainSubstring, "Blue in Green")
			So(b.View(), ShouldContainSubstring, "Miles Davis")
		})

		Convey("Status updates move the progress", func() {
			b.Update(statusMsg{result: playback.StatusResult{
				Snapshot:        playback.Snapshot{Status: playback.Playing},
				Position:        mo.Some(float64(100)),
				DurationSeconds: mo.Some(float64(200)),
			}})
			So(b.fraction(), ShouldAlmostEqual, 0.5)
			So(b.timeLabel(), ShouldEqual, "01:40 / 03:20")
		})

		Convey("Space toggles pause", func() {
			press(b, " ")
			So(controls.paused, ShouldBeTrue)
			So(b.status.Status, ShouldEqual, playback.Paused)

			press(b, " ")
			So(controls.paused, ShouldBeFalse)
			So(b.status.Status, ShouldEqual, playback.Playing)
		})

		Convey("Arrows seek relative to the known position", func() {
			b.Update(statusMsg{result: playback.StatusResult{
				Snapshot: playback.Snapshot{Status: playback.Playing},
				Position: mo.Some(float64(50)),
			}})
			press(b, "right")
			So(controls.seeks, ShouldResemble, []float64{60})

			press(b, "left")
			So(controls.seeks, ShouldResemble, []float64{60, 50})
		})

		Convey("Plus and minus change the volume", func() {
			press(b, "-")
			So(controls.volumes, ShouldResemble, []float64{95})
			So(b.volume, ShouldEqual, float64(95))

			press(b, "+")
			So(b.volume, ShouldEqual, float64(100))
		})

		Convey("Keys are ignored while a request is in flight", func() {
			b.busy = true
			_, cmd := b.Update(keyPress(" "))
			So(cmd, ShouldBeNil)
		})

		Convey("q stops playback and quits", func() {
			msg := press(b, "q")
			So(controls.stopped, ShouldBeTrue)
			So(msg, ShouldHaveSameTypeAs, stoppedMsg{})

			_, cmd := b.Update(msg)
			So(cmd(), ShouldHaveSameTypeAs, tea.QuitMsg{})
		})

		Convey("A failed stop shows the error", func() {
			controls.stopErr = fault.New(fault.PlaybackError, "playback.stop", "player did not exit")
			press(b, "q")
			So(b.state, ShouldEqual, errorState)
			So(errors.Is(b.lastError, fault.PlaybackError), ShouldBeTrue)
			So(b.View(), ShouldContainSubstring, "player did not exit")
		})

		Convey("The view quits when the player exits", func() {
			_, cmd := b.Update(finishedMsg{})
			So(cmd(), ShouldHaveSameTypeAs, tea.QuitMsg{})
		})
	})
}
