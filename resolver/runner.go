package resolver

import (
	"context"

	"github.com/lrstanley/go-ytdlp"
)

// Mode selects what a resolver invocation produces.
type Mode int

const (
	// ModeResolve prints the direct stream URL of the best audio format.
	ModeResolve Mode = iota
	// ModeMetadata dumps the single-JSON info document of the target.
	ModeMetadata
	// ModeSearch dumps a flat playlist of search results.
	ModeSearch
)

func (m Mode) String() string {
	switch m {
	case ModeResolve:
		return "resolve"
	case ModeMetadata:
		return "metadata"
	case ModeSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Invocation describes one yt-dlp run.
type Invocation struct {
	Mode   Mode
	Target string
	Format string
}

// Output holds the captured streams of a finished invocation.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes the external resolver. Implementations return a non-nil error for
// non-zero exit statuses and should still populate Output when streams were captured.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Output, error)
}

// YTDLP runs yt-dlp through the go-ytdlp command builder.
type YTDLP struct {
	// Executable overrides the binary looked up on PATH.
	Executable string
}

// Run implements Runner.
func (y YTDLP) Run(ctx context.Context, inv Invocation) (*Output, error) {
	cmd := ytdlp.New().IgnoreConfig().NoWarnings()
	if y.Executable != "" {
		cmd.SetExecutable(y.Executable)
	}

	switch inv.Mode {
	case ModeResolve:
		cmd.Format(inv.Format).GetURL()
	case ModeMetadata:
		cmd.DumpSingleJSON()
	case ModeSearch:
		cmd.DumpSingleJSON().SkipDownload().FlatPlaylist()
	}

	res, err := cmd.Run(ctx, inv.Target)

	out := &Output{}
	if res != nil {
		out.Stdout = res.Stdout
		out.Stderr = res.Stderr
	}

	return out, err
}
