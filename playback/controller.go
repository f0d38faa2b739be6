// Package playback owns the playback session: it orchestrates play requests against the
// resolver, the process supervisor and the control-socket transport, and guarantees that at
// most one player process is active at a time.
package playback

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/player"
	"github.com/melodeck/melodeck/resolver"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDebounce    = time.Second
	DefaultSettle      = 150 * time.Millisecond
	DefaultQuitTimeout = 500 * time.Millisecond
)

// Resolver looks up stream locators, metadata and search results.
type Resolver interface {
	ResolveStreamURL(ctx context.Context, target string) (string, error)
	FetchMetadata(ctx context.Context, target string) (track.Meta, error)
	Search(ctx context.Context, query string, limit int) ([]track.Summary, error)
}

// Supervisor manages player processes.
type Supervisor interface {
	Spawn(ctx context.Context, locator string) (*player.Handle, error)
	Terminate(ctx context.Context, h *player.Handle) error
	Sweep(ctx context.Context) error
	OnExit(fn func(*player.Handle))
	Check(ctx context.Context) error
}

// Transport delivers commands to the running player.
type Transport interface {
	Send(ctx context.Context, expectsReply bool, command ...any) (player.Reply, error)
	Close()
}

// Options configures a Controller.
type Options struct {
	Resolver   Resolver
	Supervisor Supervisor
	Transport  Transport

	Debounce    time.Duration
	Settle      time.Duration
	QuitTimeout time.Duration

	// OnPlay is called with the metadata of every committed play.
	OnPlay func(track.Meta) error
	// Clock overrides time.Now for debounce decisions.
	Clock func() time.Time
}

// Controller is the playback session. All methods are safe for concurrent use.
type Controller struct {
	opts Options

	// mu guards the session fields below.
	mu      sync.Mutex
	status  Status
	url     string
	meta    mo.Option[track.Meta]
	handle  *player.Handle
	current *Request

	lastTarget string
	lastPlayAt time.Time

	// lifecycle serializes terminate, spawn and commit so two of them never interleave.
	lifecycle sync.Mutex
}

// New creates an idle Controller and registers it as the supervisor's exit observer.
func New(opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.QuitTimeout <= 0 {
		opts.QuitTimeout = DefaultQuitTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Controller{opts: opts, status: Idle}
	opts.Supervisor.OnExit(c.handleExit)

	return c
}

// Play resolves input and starts playing it, replacing whatever was playing before.
func (c *Controller) Play(ctx context.Context, input string) (PlayResult, error) {
	const op = "playback.play"

	input = strings.TrimSpace(input)
	if input == "" {
		return PlayResult{}, fault.New(fault.ValidationError, op, "provide a search query or URL")
	}

	if err := c.opts.Supervisor.Check(ctx); err != nil {
		return PlayResult{}, err
	}

	target := resolver.Target(input)
	now := c.opts.Clock()

	c.mu.Lock()
	if target == c.lastTarget && now.Sub(c.lastPlayAt) < c.opts.Debounce {
		result := c.playResultLocked()
		c.mu.Unlock()
		log.Debugf("playback: debounced %s", target)
		return result, nil
	}
	c.lastTarget, c.lastPlayAt = target, now

	if c.current != nil {
		c.current.Cancel()
		log.With(logrus.Fields{"request": c.current.ID, "target": c.current.Target}).Info("play request superseded")
	}
	req := newRequest(target, now)
	c.current = req
	c.mu.Unlock()

	c.lifecycle.Lock()
	c.stopActive(ctx)
	c.mu.Lock()
	if c.current == req {
		c.status = Resolving
		c.url, c.meta = "", mo.None[track.Meta]()
	}
	c.mu.Unlock()
	c.lifecycle.Unlock()

	locator, meta, err := c.resolve(ctx, target)
	if err != nil {
		c.abandon(req)
		return PlayResult{}, err
	}

	if req.Cancelled() {
		return cancelled(), nil
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if req.Cancelled() {
		return cancelled(), nil
	}

	// a concurrent path may have spawned while we were resolving
	c.stopActive(ctx)

	h, err := c.opts.Supervisor.Spawn(ctx, locator)
	if err != nil {
		c.abandon(req)
		return PlayResult{}, err
	}

	c.mu.Lock()
	if c.current != req || req.Cancelled() {
		c.mu.Unlock()
		log.Debugf("playback: request %s cancelled after spawn", req.ID)
		if err := c.opts.Supervisor.Terminate(ctx, h); err != nil {
			log.Warnf("playback: terminate superseded player: %v", err)
		}
		return cancelled(), nil
	}

	if !h.Alive() {
		c.resetLocked()
		c.mu.Unlock()
		return PlayResult{}, fault.New(fault.PlaybackError, op, "player exited before playback started")
	}

	c.handle = h
	c.url = locator
	c.meta = mo.Some(meta)
	c.status = Playing
	c.current = nil
	result := c.playResultLocked()
	c.mu.Unlock()

	log.With(logrus.Fields{"request": req.ID, "pid": h.Pid(), "title": meta.Title}).Info("playback started")

	if c.opts.OnPlay != nil {
		if err := c.opts.OnPlay(meta); err != nil {
			log.Warnf("playback: record %q: %v", meta.Title, err)
		}
	}

	return result, nil
}

// resolve looks up the locator and the metadata concurrently. Both lookups run to completion
// even when the request is superseded so their results reach the resolver cache.
func (c *Controller) resolve(ctx context.Context, target string) (string, track.Meta, error) {
	var (
		g       errgroup.Group
		locator string
		meta    track.Meta
	)

	g.Go(func() (err error) {
		locator, err = c.opts.Resolver.ResolveStreamURL(ctx, target)
		return err
	})
	g.Go(func() (err error) {
		meta, err = c.opts.Resolver.FetchMetadata(ctx, target)
		return err
	})

	if err := g.Wait(); err != nil {
		return "", track.Meta{}, err
	}

	return locator, meta, nil
}

// abandon resets a failed request's session to idle, unless a newer request owns it.
func (c *Controller) abandon(req *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != req {
		return
	}

	c.current = nil
	c.lastTarget = ""
	if c.handle == nil {
		c.resetLocked()
	}
}

// stopActive terminates the tracked process, if any, and waits out the settle window so the
// player releases its control socket. Callers hold the lifecycle lock.
func (c *Controller) stopActive(ctx context.Context) {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	c.opts.Transport.Close()
	if h != nil {
		if err := c.opts.Supervisor.Terminate(ctx, h); err != nil {
			log.Warnf("playback: terminate: %v", err)
		}
	}

	// Players left behind by earlier runs are not tracked by a handle.
	if err := c.opts.Supervisor.Sweep(ctx); err != nil {
		log.Warnf("playback: sweep: %v", err)
	}

	if h != nil && c.opts.Settle > 0 {
		select {
		case <-time.After(c.opts.Settle):
		case <-ctx.Done():
		}
	}
}

// handleExit clears the session when the tracked process exits on its own.
func (c *Controller) handleExit(h *player.Handle) {
	c.mu.Lock()
	if c.handle != h {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.mu.Unlock()

	log.With(logrus.Fields{"pid": h.Pid()}).Info("player exited, session idle")
	c.opts.Transport.Close()
}

// Pause pauses playback.
func (c *Controller) Pause(ctx context.Context) (Snapshot, error) {
	return c.setPaused(ctx, true)
}

// Resume resumes paused playback.
func (c *Controller) Resume(ctx context.Context) (Snapshot, error) {
	return c.setPaused(ctx, false)
}

func (c *Controller) setPaused(ctx context.Context, paused bool) (Snapshot, error) {
	if _, err := c.opts.Transport.Send(ctx, false, "set_property", "pause", paused); err != nil {
		return Snapshot{}, noSession("playback.pause", err)
	}

	next := lo.Ternary(paused, Paused, Playing)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		c.status = next
	}

	return c.snapshotLocked(), nil
}

// Stop stops playback. It is idempotent and returns the locator and metadata that were active.
func (c *Controller) Stop(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.current != nil {
		c.current.Cancel()
		c.current = nil
	}
	before := c.snapshotLocked()
	h := c.handle
	c.handle = nil
	c.lastTarget = ""
	c.resetLocked()
	c.mu.Unlock()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	quitCtx, cancel := context.WithTimeout(ctx, c.opts.QuitTimeout)
	if _, err := c.opts.Transport.Send(quitCtx, false, "quit"); err != nil {
		log.Debugf("playback: quit: %v", err)
	}
	cancel()

	c.opts.Transport.Close()

	if err := c.opts.Supervisor.Terminate(ctx, h); err != nil {
		log.Warnf("playback: terminate: %v", err)
	}
	if err := c.opts.Supervisor.Sweep(ctx); err != nil {
		log.Warnf("playback: sweep: %v", err)
	}

	return Snapshot{Status: Idle, URL: before.URL, Meta: before.Meta}, nil
}

// Seek moves the playback position to position seconds.
func (c *Controller) Seek(ctx context.Context, position float64) (SeekResult, error) {
	const op = "playback.seek"

	if math.IsNaN(position) || math.IsInf(position, 0) || position < 0 {
		return SeekResult{}, fault.New(fault.ValidationError, op, "seek position must be a non-negative number")
	}

	if _, err := c.opts.Transport.Send(ctx, false, "set_property", "time-pos", position); err != nil {
		return SeekResult{}, noSession(op, err)
	}

	return SeekResult{Snapshot: c.snapshot(), Position: position}, nil
}

// SetVolume sets the player volume, clamped to [0, 100].
func (c *Controller) SetVolume(ctx context.Context, level float64) (VolumeResult, error) {
	const op = "playback.volume"

	if math.IsNaN(level) || math.IsInf(level, 0) {
		return VolumeResult{}, fault.New(fault.ValidationError, op, "volume must be a number 0-100")
	}

	c.mu.Lock()
	active := c.handle != nil
	c.mu.Unlock()
	if !active {
		return VolumeResult{}, fault.New(fault.NoActiveSession, op, "nothing is playing")
	}

	level = lo.Clamp(level, 0, 100)
	if _, err := c.opts.Transport.Send(ctx, false, "set_property", "volume", level); err != nil {
		return VolumeResult{}, noSession(op, err)
	}

	return VolumeResult{Snapshot: c.snapshot(), Volume: level}, nil
}

// Status reports the session. The position is queried only while a process is active and
// stays empty when the player cannot answer.
func (c *Controller) Status(ctx context.Context) (StatusResult, error) {
	c.mu.Lock()
	active := c.handle != nil
	c.mu.Unlock()

	position := mo.None[float64]()
	if active {
		reply, err := c.opts.Transport.Send(ctx, true, "get_property", "time-pos")
		if err != nil {
			log.Debugf("playback: status position: %v", err)
		} else if pos, ok := reply.Float(); ok && reply.OK() {
			position = mo.Some(pos)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result := StatusResult{
		Snapshot: c.snapshotLocked(),
		Position: position,
	}
	if c.handle != nil {
		result.Backend = mo.Some(constant.Backend)
	}
	if meta, ok := c.meta.Get(); ok {
		result.DurationSeconds = meta.DurationSeconds
	}

	return result, nil
}

// Search proxies the resolver search.
func (c *Controller) Search(ctx context.Context, query string, limit int) ([]track.Summary, error) {
	return c.opts.Resolver.Search(ctx, query, limit)
}

// Wait blocks until the current player process exits or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()

	if h == nil {
		return nil
	}

	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Status: c.status,
		URL:    lo.Ternary(c.url == "", mo.None[string](), mo.Some(c.url)),
		Meta:   c.meta,
	}
}

func (c *Controller) playResultLocked() PlayResult {
	result := PlayResult{Snapshot: c.snapshotLocked()}
	if c.handle != nil {
		result.Backend = mo.Some(constant.Backend)
	}
	return result
}

func (c *Controller) resetLocked() {
	c.status = Idle
	c.url = ""
	c.meta = mo.None[track.Meta]()
	c.handle = nil
}

func cancelled() PlayResult {
	return PlayResult{Snapshot: Snapshot{Status: Cancelled}}
}

// noSession maps a transport failure onto NoActiveSession, keeping validation errors as they are.
func noSession(op string, err error) error {
	if errors.Is(err, fault.ValidationError) {
		return err
	}
	return &fault.Error{Op: op, Kind: fault.NoActiveSession, Detail: "nothing is playing", Err: err}
}
