package playback

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/mo"
)

// Status is the session status reported to callers.
type Status string

const (
	Idle      Status = "idle"
	Resolving Status = "resolving"
	Playing   Status = "playing"
	Paused    Status = "paused"
	// Cancelled is only reported by a Play that was superseded; the session is never in it.
	Cancelled Status = "cancelled"
)

// Snapshot is the common part of every operation result.
type Snapshot struct {
	Status Status                `json:"status"`
	URL    mo.Option[string]     `json:"url"`
	Meta   mo.Option[track.Meta] `json:"meta"`
}

// PlayResult is returned by Play.
type PlayResult struct {
	Snapshot
	Backend mo.Option[string] `json:"backend"`
}

// SeekResult is returned by Seek.
type SeekResult struct {
	Snapshot
	Position float64 `json:"position"`
}

// VolumeResult is returned by SetVolume.
type VolumeResult struct {
	Snapshot
	Volume float64 `json:"volume"`
}

// StatusResult is returned by Status.
type StatusResult struct {
	Snapshot
	Backend         mo.Option[string]  `json:"backend"`
	Position        mo.Option[float64] `json:"position"`
	DurationSeconds mo.Option[float64] `json:"durationSeconds"`
}

// Request is one Play invocation. Only the newest request may commit its result; older ones
// are flagged as cancelled and finish without touching the session.
type Request struct {
	ID          string
	Target      string
	SubmittedAt time.Time

	cancelled atomic.Bool
}

func newRequest(target string, at time.Time) *Request {
	return &Request{
		ID:          uuid.NewString(),
		Target:      target,
		SubmittedAt: at,
	}
}

// Cancel flags the request as superseded.
func (r *Request) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether the request was superseded.
func (r *Request) Cancelled() bool {
	return r.cancelled.Load()
}
