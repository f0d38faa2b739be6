package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/melodeck/melodeck/fault"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []Invocation
	stdout map[Mode]string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, inv Invocation) (*Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)
	return &Output{Stdout: f.stdout[inv.Mode], Stderr: f.stderr}, f.err
}

func (f *fakeRunner) count(mode Mode) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Mode == mode {
			n++
		}
	}
	return n
}

const songJSON = `{
	"entries": [{
		"id": "abc123",
		"title": "Song",
		"uploader": "Artist",
		"duration": 215,
		"duration_string": "3:35",
		"thumbnail": "https://i/default.jpg",
		"thumbnails": [{"url": "https://i/small.jpg"}, {"url": "https://i/large.jpg"}],
		"webpage_url": "https://www.youtube.com/watch?v=abc123"
	}]
}`

const searchJSON = `{
	"entries": [
		{"id": "a", "title": "First", "channel": "Chan", "duration": 61, "url": "https://www.youtube.com/watch?v=a"},
		{"id": "", "title": "No id"},
		{"id": "c", "title": ""},
		null,
		{"id": "d", "title": "Fourth", "uploader": "Up", "duration_string": "1:00:00"}
	]
}`

func TestTarget(t *testing.T) {
	Convey("Target", t, func() {
		Convey("Passes URLs through", func() {
			So(Target("  https://youtu.be/x "), ShouldEqual, "https://youtu.be/x")
			So(Target("HTTP://example.com"), ShouldEqual, "HTTP://example.com")
		})

		Convey("Turns free text into a single-result search", func() {
			So(Target("lofi beats"), ShouldEqual, "ytsearch1:lofi beats")
		})

		Convey("Video ids map to a watch page", func() {
			So(WatchURL(" dQw4w9WgXcQ "), ShouldEqual, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
		})
	})
}

func TestGateway(t *testing.T) {
	Convey("Given a gateway with a fake runner", t, func() {
		runner := &fakeRunner{stdout: map[Mode]string{
			ModeResolve:  "https://cdn/stream.m4a\nhttps://cdn/other\n",
			ModeMetadata: songJSON,
			ModeSearch:   searchJSON,
		}}
		gw := New(Options{
			Runner: runner,
			TTL:    5 * time.Minute,
		})
		ctx := context.Background()

		Convey("ResolveStreamURL returns the first output line", func() {
			url, err := gw.ResolveStreamURL(ctx, "ytsearch1:song")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://cdn/stream.m4a")
			So(runner.calls[0].Format, ShouldEqual, DefaultFormat)
		})

		Convey("A second lookup within the TTL is served from cache", func() {
			_, _ = gw.ResolveStreamURL(ctx, "ytsearch1:song")
			url, err := gw.ResolveStreamURL(ctx, "ytsearch1:song")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://cdn/stream.m4a")
			So(runner.count(ModeResolve), ShouldEqual, 1)
		})

		Convey("An expired entry triggers a new invocation", func() {
			short := New(Options{Runner: runner, TTL: 20 * time.Millisecond})
			_, _ = short.ResolveStreamURL(ctx, "ytsearch1:song")
			time.Sleep(40 * time.Millisecond)
			_, _ = short.ResolveStreamURL(ctx, "ytsearch1:song")
			So(runner.count(ModeResolve), ShouldEqual, 2)
		})

		Convey("FetchMetadata normalizes the first entry", func() {
			meta, err := gw.FetchMetadata(ctx, "ytsearch1:song")
			So(err, ShouldBeNil)
			So(meta.ID, ShouldEqual, "abc123")
			So(meta.Title, ShouldEqual, "Song")
			So(meta.Uploader, ShouldEqual, "Artist")
			So(meta.Duration, ShouldEqual, "3:35")
			So(meta.DurationSeconds.MustGet(), ShouldEqual, float64(215))
			So(meta.Thumbnail.MustGet(), ShouldEqual, "https://i/large.jpg")
			So(meta.WebpageURL, ShouldEqual, "https://www.youtube.com/watch?v=abc123")

			_, _ = gw.FetchMetadata(ctx, "ytsearch1:song")
			So(runner.count(ModeMetadata), ShouldEqual, 1)
		})

		Convey("FetchMetadata rejects an empty playlist", func() {
			runner.stdout[ModeMetadata] = `{"entries": [null]}`
			_, err := gw.FetchMetadata(ctx, "ytsearch1:nothing")
			So(errors.Is(err, fault.ResolutionFailure), ShouldBeTrue)
			So(fault.Message(err), ShouldEqual, "no metadata found")
		})

		Convey("FetchMetadata rejects malformed output", func() {
			runner.stdout[ModeMetadata] = `not json`
			_, err := gw.FetchMetadata(ctx, "x")
			So(fault.KindOf(err), ShouldEqual, fault.ResolutionFailure)
		})

		Convey("Search clamps the limit and drops incomplete rows", func() {
			results, err := gw.Search(ctx, "lofi", 2)
			So(err, ShouldBeNil)
			So(runner.calls[0].Target, ShouldEqual, "ytsearch5:lofi")
			So(results, ShouldHaveLength, 2)
			So(results[0].ID, ShouldEqual, "a")
			So(results[0].Uploader, ShouldEqual, "Chan")
			So(results[0].Duration, ShouldEqual, "1:01")
			So(results[0].WebpageURL, ShouldEqual, "https://www.youtube.com/watch?v=a")
			So(results[1].Duration, ShouldEqual, "1:00:00")

			_, _ = gw.Search(ctx, "lofi", 3)
			So(runner.count(ModeSearch), ShouldEqual, 1)

			_, _ = gw.Search(ctx, "lofi", 100)
			So(runner.calls[len(runner.calls)-1].Target, ShouldEqual, "ytsearch50:lofi")
		})

		Convey("Search requires a query", func() {
			_, err := gw.Search(ctx, "   ", 10)
			So(errors.Is(err, fault.ValidationError), ShouldBeTrue)
			So(runner.count(ModeSearch), ShouldEqual, 0)
		})

		Convey("Failures carry stderr as detail", func() {
			runner.err = errors.New("exit status 1")
			runner.stderr = "ERROR: [youtube] x: Video unavailable\n"

			_, err := gw.ResolveStreamURL(ctx, "https://youtu.be/x")
			So(errors.Is(err, fault.ResolutionFailure), ShouldBeTrue)
			So(errors.Is(err, fault.RateLimited), ShouldBeFalse)
			So(fault.Message(err), ShouldEqual, "ERROR: [youtube] x: Video unavailable")

			Convey("Failures are not cached", func() {
				runner.err = nil
				runner.stderr = ""
				url, err := gw.ResolveStreamURL(ctx, "https://youtu.be/x")
				So(err, ShouldBeNil)
				So(url, ShouldEqual, "https://cdn/stream.m4a")
			})
		})

		Convey("Throttling is reported as rate limited", func() {
			runner.err = errors.New("exit status 1")
			runner.stderr = "ERROR: unable to download webpage: HTTP Error 429: Too Many Requests"

			_, err := gw.FetchMetadata(ctx, "ytsearch1:x")
			So(fault.KindOf(err), ShouldEqual, fault.RateLimited)
			So(errors.Is(err, fault.ResolutionFailure), ShouldBeTrue)
		})

		Convey("Empty output without an error is a failure", func() {
			runner.stdout[ModeResolve] = "  \n"
			_, err := gw.ResolveStreamURL(ctx, "x")
			So(fault.Message(err), ShouldEqual, "unable to resolve stream URL")
		})
	})
}

// gatedRunner blocks every invocation until release is closed, then fails if the lookup's
// context was cancelled in the meantime.
type gatedRunner struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRunner) Run(ctx context.Context, _ Invocation) (*Output, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Output{Stdout: "https://cdn/shared.m4a\n"}, nil
}

func TestSharedLookup(t *testing.T) {
	Convey("Given two callers waiting on the same lookup", t, func() {
		runner := &gatedRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
		gw := New(Options{Runner: runner, TTL: time.Minute})

		first, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := gw.ResolveStreamURL(first, "ytsearch1:song")
			firstErr <- err
		}()
		<-runner.entered

		type result struct {
			url string
			err error
		}
		second := make(chan result, 1)
		go func() {
			url, err := gw.ResolveStreamURL(context.Background(), "ytsearch1:song")
			second <- result{url, err}
		}()

		Convey("Cancelling the first caller does not fail the second", func() {
			cancel()
			So(errors.Is(<-firstErr, context.Canceled), ShouldBeTrue)

			close(runner.release)
			res := <-second
			So(res.err, ShouldBeNil)
			So(res.url, ShouldEqual, "https://cdn/shared.m4a")
			So(runner.calls.Load(), ShouldEqual, 1)

			url, err := gw.ResolveStreamURL(context.Background(), "ytsearch1:song")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://cdn/shared.m4a")
			So(runner.calls.Load(), ShouldEqual, 1)
		})
	})
}
