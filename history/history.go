// Package history keeps the listening history: the most recently played tracks, newest first.
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/track"
	"github.com/melodeck/melodeck/where"
	"github.com/metafates/gache"
	"github.com/spf13/viper"
)

// Entry is one played track.
type Entry struct {
	Title    string    `json:"title"`
	Uploader string    `json:"uploader"`
	ID       string    `json:"id"`
	PlayedAt time.Time `json:"ts"`
}

func (e Entry) String() string {
	if e.Uploader == "" {
		return e.Title
	}
	return e.Title + " by " + e.Uploader
}

var (
	mu sync.Mutex

	cacher = gache.New[[]Entry](
		&gache.Options{
			Path:       where.History(),
			FileSystem: &filesystem.GacheFs{},
		},
	)

	now = time.Now
)

func load() ([]Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return []Entry{}, nil
	}
	return cached, nil
}

// Record prepends meta to the history, trimming it to the configured maximum.
// Tracks without a title are ignored.
func Record(meta track.Meta) error {
	if strings.TrimSpace(meta.Title) == "" {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	entries, err := load()
	if err != nil {
		return err
	}

	entries = append([]Entry{{
		Title:    meta.Title,
		Uploader: meta.Uploader,
		ID:       meta.ID,
		PlayedAt: now(),
	}}, entries...)

	if limit := viper.GetInt(key.HistoryMax); limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return cacher.Set(entries)
}

// Get returns up to limit entries, newest first. A non-positive limit returns everything.
func Get(limit int) ([]Entry, error) {
	mu.Lock()
	defer mu.Unlock()

	entries, err := load()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Clear forgets every entry.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()
	return cacher.Set([]Entry{})
}
