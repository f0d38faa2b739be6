package playback

import (
	"context"
	"strings"
	"unicode/utf8"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
)

const (
	DefaultRelatedLimit = 8

	// titles this close to the seed are treated as the same track; shorter
	// seeds allow one edit per four characters
	nearDuplicateDistance = 3
	runesPerEdit          = 4
)

// Related searches for tracks similar to the seed title and uploader. Results whose title is
// equal or nearly equal to the seed are dropped.
func (c *Controller) Related(ctx context.Context, title, uploader string, limit int) ([]track.Summary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fault.New(fault.ValidationError, "playback.related", "title is required")
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	query := title
	if uploader = strings.TrimSpace(uploader); uploader != "" {
		query = uploader + " " + title
	}

	results, err := c.opts.Resolver.Search(ctx, query, limit+2)
	if err != nil {
		return nil, err
	}

	seed := strings.ToLower(title)
	related := lo.Filter(results, func(s track.Summary, _ int) bool {
		return !isNearDuplicate(seed, strings.ToLower(s.Title))
	})

	if len(related) > limit {
		related = related[:limit]
	}

	return related, nil
}

func isNearDuplicate(seed, title string) bool {
	if seed == title {
		return true
	}
	allowed := min(nearDuplicateDistance, utf8.RuneCountInString(seed)/runesPerEdit)
	return allowed > 0 && levenshtein.Distance(seed, title) <= allowed
}
