// Package resolver is the gateway to the external yt-dlp tool: it resolves playable stream
// URLs, fetches normalized track metadata and runs flat-playlist searches. Results are kept
// in time-bounded caches and identical in-flight lookups are collapsed.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/internal/cache"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// MinSearchLimit and MaxSearchLimit bound the number of search results requested.
	MinSearchLimit = 5
	MaxSearchLimit = 50

	// DefaultFormat selects the best audio-only stream, falling back to the best muxed one.
	DefaultFormat = "bestaudio/best"

	searchPrefix = "ytsearch"
	watchPrefix  = "https://www.youtube.com/watch?v="

	lookupTimeout = 2 * time.Minute
)

var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// IsURL reports whether input is an http(s) URL.
func IsURL(input string) bool {
	return urlPattern.MatchString(strings.TrimSpace(input))
}

// Target normalizes user input into a resolver target: URLs pass through, anything else
// becomes a single-result search.
func Target(input string) string {
	input = strings.TrimSpace(input)
	if IsURL(input) {
		return input
	}
	return fmt.Sprintf("%s1:%s", searchPrefix, input)
}

// WatchURL returns the watch page of a video id.
func WatchURL(id string) string {
	return watchPrefix + strings.TrimSpace(id)
}

// ClampLimit bounds a search limit to [MinSearchLimit, MaxSearchLimit].
func ClampLimit(limit int) int {
	return lo.Clamp(limit, MinSearchLimit, MaxSearchLimit)
}

// Options configures a Gateway.
type Options struct {
	Runner     Runner
	Format     string
	TTL        time.Duration
	MaxEntries int
}

// Gateway invokes the external resolver and caches its results.
type Gateway struct {
	runner Runner
	format string

	urls     *cache.TTL[string, string]
	metas    *cache.TTL[string, track.Meta]
	searches *cache.TTL[string, []track.Summary]

	flight singleflight.Group
}

// New creates a Gateway. A nil Runner selects yt-dlp on PATH.
func New(opts Options) *Gateway {
	if opts.Runner == nil {
		opts.Runner = YTDLP{}
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}

	cacheOpts := []cache.Option{cache.WithMaxEntries(opts.MaxEntries)}

	return &Gateway{
		runner:   opts.Runner,
		format:   opts.Format,
		urls:     cache.New[string, string](opts.TTL, cacheOpts...),
		metas:    cache.New[string, track.Meta](opts.TTL, cacheOpts...),
		searches: cache.New[string, []track.Summary](opts.TTL, cacheOpts...),
	}
}

// ResolveStreamURL returns a directly playable stream URL for target.
func (g *Gateway) ResolveStreamURL(ctx context.Context, target string) (string, error) {
	const op = "resolver.resolve"

	if cached, ok := g.urls.Get(target).Get(); ok {
		return cached, nil
	}

	v, err := g.share(ctx, "url\x00"+target, func(ctx context.Context) (any, error) {
		out, err := g.run(ctx, Invocation{Mode: ModeResolve, Target: target, Format: g.format})
		stdout := strings.TrimSpace(out.Stdout)
		if err != nil || stdout == "" {
			return "", failure(op, out, err, "unable to resolve stream URL")
		}

		locator := strings.TrimSpace(strings.SplitN(stdout, "\n", 2)[0])
		g.urls.Put(target, locator)
		return locator, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// FetchMetadata returns normalized metadata for target.
func (g *Gateway) FetchMetadata(ctx context.Context, target string) (track.Meta, error) {
	const op = "resolver.metadata"

	if cached, ok := g.metas.Get(target).Get(); ok {
		return cached, nil
	}

	v, err := g.share(ctx, "meta\x00"+target, func(ctx context.Context) (any, error) {
		out, err := g.run(ctx, Invocation{Mode: ModeMetadata, Target: target})
		if err != nil || strings.TrimSpace(out.Stdout) == "" {
			return track.Meta{}, failure(op, out, err, "unable to fetch metadata")
		}

		doc, err := parseInfo(out.Stdout)
		if err != nil {
			return track.Meta{}, &fault.Error{Op: op, Kind: fault.ResolutionFailure, Detail: "invalid output", Err: err}
		}

		entry := pickEntry(doc)
		if entry == nil {
			return track.Meta{}, fault.New(fault.ResolutionFailure, op, "no metadata found")
		}

		meta := normalize(entry)
		g.metas.Put(target, meta)
		return meta, nil
	})
	if err != nil {
		return track.Meta{}, err
	}

	return v.(track.Meta), nil
}

// Search runs a flat-playlist search. The limit is clamped to [MinSearchLimit, MaxSearchLimit]
// and rows without an id or title are dropped.
func (g *Gateway) Search(ctx context.Context, query string, limit int) ([]track.Summary, error) {
	const op = "resolver.search"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fault.New(fault.ValidationError, op, "search query is required")
	}

	limit = ClampLimit(limit)
	key := searchKey(limit, query)
	if cached, ok := g.searches.Get(key).Get(); ok {
		return cached, nil
	}

	v, err := g.share(ctx, "search\x00"+key, func(ctx context.Context) (any, error) {
		out, err := g.run(ctx, Invocation{
			Mode:   ModeSearch,
			Target: fmt.Sprintf("%s%d:%s", searchPrefix, limit, query),
		})
		if err != nil || strings.TrimSpace(out.Stdout) == "" {
			return nil, failure(op, out, err, "unable to search")
		}

		doc, err := parseInfo(out.Stdout)
		if err != nil {
			return nil, &fault.Error{Op: op, Kind: fault.ResolutionFailure, Detail: "invalid output", Err: err}
		}

		results := make([]track.Summary, 0, len(doc.Entries))
		for _, entry := range doc.Entries {
			if entry == nil {
				continue
			}
			summary := normalize(entry).Summary()
			if summary.ID == "" || summary.Title == "" {
				continue
			}
			results = append(results, summary)
		}

		g.searches.Put(key, results)
		return results, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]track.Summary), nil
}

// share collapses concurrent lookups for key. The lookup runs detached from the first
// caller's cancellation, bounded by lookupTimeout, so one caller giving up does not fail the
// others; each caller still returns as soon as its own context is done.
func (g *Gateway) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := g.flight.DoChan(key, func() (any, error) {
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return fn(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gateway) run(ctx context.Context, inv Invocation) (*Output, error) {
	started := time.Now()
	out, err := g.runner.Run(ctx, inv)
	if out == nil {
		out = &Output{}
	}

	log.With(logrus.Fields{
		"mode":    inv.Mode.String(),
		"target":  inv.Target,
		"elapsed": time.Since(started).Round(time.Millisecond).String(),
		"failed":  err != nil,
	}).Debug("resolver invocation finished")

	return out, err
}

// failure classifies a failed invocation. Diagnostic text from stderr becomes the detail.
func failure(op string, out *Output, err error, fallback string) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return &fault.Error{Op: op, Kind: fault.MissingDependency, Detail: "yt-dlp not found", Err: err}
	}

	detail := strings.TrimSpace(out.Stderr)
	if detail == "" {
		detail = fallback
	}

	kind := fault.ResolutionFailure
	if isRateLimited(detail) {
		kind = fault.RateLimited
	}

	return &fault.Error{Op: op, Kind: kind, Detail: detail, Err: err}
}

func isRateLimited(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "http error 429") || strings.Contains(lower, "too many requests")
}
