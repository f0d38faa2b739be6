package playback

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Remote drives a player that was started by another melodeck process. It only has the
// control socket, so everything it reports is read back from the player itself.
type Remote struct {
	transport   Transport
	sweep       func(ctx context.Context) error
	quitTimeout time.Duration
}

// NewRemote creates a Remote. sweep may be nil.
func NewRemote(transport Transport, sweep func(ctx context.Context) error) *Remote {
	return &Remote{
		transport:   transport,
		sweep:       sweep,
		quitTimeout: DefaultQuitTimeout,
	}
}

// Pause pauses the remote player.
func (r *Remote) Pause(ctx context.Context) (Snapshot, error) {
	return r.setPaused(ctx, true)
}

// Resume resumes the remote player.
func (r *Remote) Resume(ctx context.Context) (Snapshot, error) {
	return r.setPaused(ctx, false)
}

func (r *Remote) setPaused(ctx context.Context, paused bool) (Snapshot, error) {
	if _, err := r.transport.Send(ctx, true, "set_property", "pause", paused); err != nil {
		return Snapshot{}, noSession("playback.pause", err)
	}

	snap := r.snapshot(ctx)
	snap.Status = lo.Ternary(paused, Paused, Playing)
	return snap, nil
}

// Seek moves the remote player to position seconds.
func (r *Remote) Seek(ctx context.Context, position float64) (SeekResult, error) {
	const op = "playback.seek"

	if math.IsNaN(position) || math.IsInf(position, 0) || position < 0 {
		return SeekResult{}, fault.New(fault.ValidationError, op, "seek position must be a non-negative number")
	}

	if _, err := r.transport.Send(ctx, true, "set_property", "time-pos", position); err != nil {
		return SeekResult{}, noSession(op, err)
	}

	return SeekResult{Snapshot: r.snapshot(ctx), Position: position}, nil
}

// SetVolume sets the remote player volume, clamped to [0, 100].
func (r *Remote) SetVolume(ctx context.Context, level float64) (VolumeResult, error) {
	const op = "playback.volume"

	if math.IsNaN(level) || math.IsInf(level, 0) {
		return VolumeResult{}, fault.New(fault.ValidationError, op, "volume must be a number 0-100")
	}

	level = lo.Clamp(level, 0, 100)
	if _, err := r.transport.Send(ctx, true, "set_property", "volume", level); err != nil {
		return VolumeResult{}, noSession(op, err)
	}

	return VolumeResult{Snapshot: r.snapshot(ctx), Volume: level}, nil
}

// Stop asks the remote player to quit and sweeps leftovers. Stopping nothing is not an error.
func (r *Remote) Stop(ctx context.Context) (Snapshot, error) {
	before := r.snapshot(ctx)

	quitCtx, cancel := context.WithTimeout(ctx, r.quitTimeout)
	if _, err := r.transport.Send(quitCtx, false, "quit"); err != nil {
		log.Debugf("playback: remote quit: %v", err)
	}
	cancel()

	r.transport.Close()

	if r.sweep != nil {
		if err := r.sweep(ctx); err != nil {
			log.Warnf("playback: sweep: %v", err)
		}
	}

	return Snapshot{Status: Idle, URL: before.URL, Meta: before.Meta}, nil
}

// Status reads the remote player's state. An unreachable player reports idle.
func (r *Remote) Status(ctx context.Context) (StatusResult, error) {
	snap := r.snapshot(ctx)
	result := StatusResult{Snapshot: snap}
	if snap.Status == Idle {
		return result, nil
	}

	result.Backend = mo.Some(constant.Backend)
	result.Position = r.float(ctx, "time-pos")
	if meta, ok := snap.Meta.Get(); ok {
		result.DurationSeconds = meta.DurationSeconds
	}

	return result, nil
}

func (r *Remote) snapshot(ctx context.Context) Snapshot {
	path, ok := r.string(ctx, "path").Get()
	if !ok {
		return Snapshot{Status: Idle}
	}

	paused := false
	if reply, err := r.transport.Send(ctx, true, "get_property", "pause"); err == nil && reply.OK() {
		_ = json.Unmarshal(reply.Data, &paused)
	}

	meta := track.Meta{
		Title:           r.string(ctx, "media-title").OrElse(""),
		DurationSeconds: r.float(ctx, "duration"),
	}
	if seconds, ok := meta.DurationSeconds.Get(); ok {
		meta.Duration = track.FormatSeconds(seconds)
	}

	return Snapshot{
		Status: lo.Ternary(paused, Paused, Playing),
		URL:    mo.Some(path),
		Meta:   mo.Some(meta),
	}
}

func (r *Remote) float(ctx context.Context, property string) mo.Option[float64] {
	reply, err := r.transport.Send(ctx, true, "get_property", property)
	if err != nil || !reply.OK() {
		return mo.None[float64]()
	}
	f, ok := reply.Float()
	return mo.TupleToOption(f, ok)
}

func (r *Remote) string(ctx context.Context, property string) mo.Option[string] {
	reply, err := r.transport.Send(ctx, true, "get_property", property)
	if err != nil || !reply.OK() {
		return mo.None[string]()
	}

	var s string
	if json.Unmarshal(reply.Data, &s) != nil || s == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}
