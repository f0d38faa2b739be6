// Package track defines the immutable track descriptions produced by the resolver.
package track

import (
	"fmt"

	"github.com/samber/mo"
)

// Meta is normalized metadata for a single playable track.
type Meta struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Uploader        string             `json:"uploader"`
	Duration        string             `json:"duration"`
	DurationSeconds mo.Option[float64] `json:"durationSeconds"`
	Thumbnail       mo.Option[string]  `json:"thumbnail"`
	WebpageURL      string             `json:"webpageUrl"`
}

// Summary is a search result row.
type Summary struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Uploader   string            `json:"uploader"`
	Duration   string            `json:"duration"`
	Thumbnail  mo.Option[string] `json:"thumbnail"`
	WebpageURL string            `json:"webpageUrl"`
}

// Summary reduces the metadata to a search result row.
func (m Meta) Summary() Summary {
	return Summary{
		ID:         m.ID,
		Title:      m.Title,
		Uploader:   m.Uploader,
		Duration:   m.Duration,
		Thumbnail:  m.Thumbnail,
		WebpageURL: m.WebpageURL,
	}
}

// String renders "Uploader - Title", or just the title when the uploader is unknown.
func (m Meta) String() string {
	if m.Uploader == "" {
		return m.Title
	}
	return m.Uploader + " - " + m.Title
}

// FormatSeconds renders a duration as m:ss or h:mm:ss.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
