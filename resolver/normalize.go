package resolver

import (
	"encoding/json"
	"strconv"

	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// info is the subset of the yt-dlp info document melodeck reads.
type info struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Uploader       string   `json:"uploader"`
	Channel        string   `json:"channel"`
	Duration       *float64 `json:"duration"`
	DurationString string   `json:"duration_string"`
	Thumbnail      string   `json:"thumbnail"`
	Thumbnails     []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
	WebpageURL string  `json:"webpage_url"`
	URL        string  `json:"url"`
	Entries    []*info `json:"entries"`
}

func parseInfo(stdout string) (*info, error) {
	var doc info
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// pickEntry returns the first present entry of a playlist document, or the document itself
// when it is a single video.
func pickEntry(doc *info) *info {
	if doc == nil {
		return nil
	}
	if len(doc.Entries) == 0 {
		return doc
	}
	entry, _ := lo.Find(doc.Entries, func(e *info) bool { return e != nil })
	return entry
}

// normalize converts an info entry into track metadata. The last thumbnail of a list is
// the highest resolution one.
func normalize(e *info) track.Meta {
	thumbnail := mo.None[string]()
	if n := len(e.Thumbnails); n > 0 && e.Thumbnails[n-1].URL != "" {
		thumbnail = mo.Some(e.Thumbnails[n-1].URL)
	} else if e.Thumbnail != "" {
		thumbnail = mo.Some(e.Thumbnail)
	}

	seconds := mo.PointerToOption(e.Duration)

	display := e.DurationString
	if display == "" && seconds.IsPresent() {
		display = track.FormatSeconds(seconds.MustGet())
	}

	uploader := e.Uploader
	if uploader == "" {
		uploader = e.Channel
	}

	webpage := e.WebpageURL
	if webpage == "" {
		webpage = e.URL
	}

	return track.Meta{
		ID:              e.ID,
		Title:           e.Title,
		Uploader:        uploader,
		Duration:        display,
		DurationSeconds: seconds,
		Thumbnail:       thumbnail,
		WebpageURL:      webpage,
	}
}

func searchKey(limit int, query string) string {
	return strconv.Itoa(limit) + ":" + query
}
