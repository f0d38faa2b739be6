// Package playlist stores user playlists of tracks.
package playlist

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/track"
	"github.com/melodeck/melodeck/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Track is a playlist entry.
type Track struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Uploader  string            `json:"uploader"`
	Duration  mo.Option[string] `json:"duration"`
	Thumbnail mo.Option[string] `json:"thumbnail"`
	AddedAt   time.Time         `json:"addedAt"`
}

// Playlist is a named, ordered list of tracks.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tracks      []Track   `json:"tracks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary describes a playlist without its tracks.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TrackCount  int       `json:"trackCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Update holds optional changes to a playlist.
type Update struct {
	Name        mo.Option[string] `json:"name"`
	Description mo.Option[string] `json:"description"`
}

var (
	mu sync.Mutex

	cacher = gache.New[[]*Playlist](
		&gache.Options{
			Path:       where.Playlists(),
			FileSystem: &filesystem.GacheFs{},
		},
	)

	now = time.Now
)

func load() ([]*Playlist, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return []*Playlist{}, nil
	}
	return cached, nil
}

func notFound(op string) error {
	return fault.New(fault.NotFound, op, "playlist not found")
}

func find(playlists []*Playlist, id string) (*Playlist, bool) {
	return lo.Find(playlists, func(p *Playlist) bool { return p.ID == id })
}

// List returns a summary of every playlist.
func List() ([]Summary, error) {
	mu.Lock()
	defer mu.Unlock()

	playlists, err := load()
	if err != nil {
		return nil, err
	}

	return lo.Map(playlists, func(p *Playlist, _ int) Summary {
		return Summary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			TrackCount:  len(p.Tracks),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}), nil
}

// Get returns the playlist with the given id.
func Get(id string) (*Playlist, error) {
	mu.Lock()
	defer mu.Unlock()

	playlists, err := load()
	if err != nil {
		return nil, err
	}

	p, ok := find(playlists, id)
	if !ok {
		return nil, notFound("playlist.get")
	}
	return p, nil
}

// Find resolves a playlist by exact id, then by exact name, then by fuzzy name match.
func Find(ref string) (*Playlist, error) {
	ref = strings.TrimSpace(ref)

	mu.Lock()
	defer mu.Unlock()

	playlists, err := load()
	if err != nil {
		return nil, err
	}

	if p, ok := find(playlists, ref); ok {
		return p, nil
	}

	if p, ok := lo.Find(playlists, func(p *Playlist) bool { return strings.EqualFold(p.Name, ref) }); ok {
		return p, nil
	}

	names := lo.Map(playlists, func(p *Playlist, _ int) string { return p.Name })
	ranks := fuzzy.RankFindFold(ref, names)
	if len(ranks) == 0 {
		return nil, fault.Newf(fault.NotFound, "playlist.find", "no playlist matches %q", ref)
	}

	best := lo.MinBy(ranks, func(a, b fuzzy.Rank) bool { return a.Distance < b.Distance })
	return playlists[best.OriginalIndex], nil
}

// Create stores a new empty playlist.
func Create(name, description string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.New(fault.ValidationError, "playlist.create", "playlist name is required")
	}

	mu.Lock()
	defer mu.Unlock()

	playlists, err := load()
	if err != nil {
		return nil, err
	}

	t := now()
	p := &Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Tracks:      []Track{},
		CreatedAt:   t,
		UpdatedAt:   t,
	}

	if err := cacher.Set(append(playlists, p)); err != nil {
		return nil, err
	}
	return p, nil
}

// Edit applies update to the playlist with the given id.
func Edit(id string, update Update) (*Playlist, error) {
	return mutate("playlist.update", id, func(p *Playlist) error {
		if name, ok := update.Name.Get(); ok {
			name = strings.TrimSpace(name)
			if name == "" {
				return fault.New(fault.ValidationError, "playlist.update", "playlist name is required")
			}
			p.Name = name
		}
		if description, ok := update.Description.Get(); ok {
			p.Description = strings.TrimSpace(description)
		}
		return nil
	})
}

// Delete removes a playlist and returns it.
func Delete(id string) (*Playlist, error) {
	mu.Lock()
	defer mu.Unlock()

	playlists, err := load()
	if err != nil {
		return nil, err
	}

	p, idx, ok := lo.FindIndexOf(playlists, func(p *Playlist) bool { return p.ID == id })
	if !ok {
		return nil, notFound("playlist.delete")
	}

	if err := cacher.Set(append(playlists[:idx:idx], playlists[idx+1:]...)); err != nil {
		return nil, err
	}
	return p, nil
}

// AddTrack appends a track. The track needs an id and a title, and may appear only once.
func AddTrack(id string, t track.Summary) (*Playlist, error) {
	const op = "playlist.add"

	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Title) == "" {
		return nil, fault.New(fault.ValidationError, op, "track must have id and title")
	}

	return mutate(op, id, func(p *Playlist) error {
		if lo.ContainsBy(p.Tracks, func(existing Track) bool { return existing.ID == t.ID }) {
			return fault.New(fault.Conflict, op, "track already in playlist")
		}

		p.Tracks = append(p.Tracks, Track{
			ID:        t.ID,
			Title:     t.Title,
			Uploader:  t.Uploader,
			Duration:  lo.Ternary(t.Duration == "", mo.None[string](), mo.Some(t.Duration)),
			Thumbnail: t.Thumbnail,
			AddedAt:   now(),
		})
		return nil
	})
}

// RemoveTrack removes the track with trackID.
func RemoveTrack(id, trackID string) (*Playlist, error) {
	const op = "playlist.remove"

	return mutate(op, id, func(p *Playlist) error {
		_, idx, ok := lo.FindIndexOf(p.Tracks, func(t Track) bool { return t.ID == trackID })
		if !ok {
			return fault.New(fault.NotFound, op, "track not found in playlist")
		}
		p.Tracks = append(p.Tracks[:idx:idx], p.Tracks[idx+1:]...)
		return nil
	})
}

// Reorder moves the track with trackID to index, clamped to the bounds of the list.
func Reorder(id, trackID string, index int) (*Playlist, error) {
	const op = "playlist.reorder"

	return mutate(op, id, func(p *Playlist) error {
		t, idx, ok := lo.FindIndexOf(p.Tracks, func(t Track) bool { return t.ID == trackID })
		if !ok {
			return fault.New(fault.NotFound, op, "track not found in playlist")
		}

		rest := append(p.Tracks[:idx:idx], p.Tracks[idx+1:]...)
		index = lo.Clamp(index, 0, len(rest))
		p.Tracks = append(rest[:index:index], append([]Track{t}, rest[index:]...)...)
		return nil
	})
}

func mutate(op, id string, fn func(p *Playlist) error) (*Playlist, error) {
	mu.Lock()
	defer mu.Unlock()

	playlists, err := load()
	if err != nil {
		return nil, err
	}

	p, ok := find(playlists, id)
	if !ok {
		return nil, notFound(op)
	}

	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = now()

	if err := cacher.Set(playlists); err != nil {
		return nil, err
	}
	return p, nil
}
