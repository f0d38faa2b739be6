// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths, socket names and CLI branding.
	App = "melodeck"

	// Version is the current application semantic version string.
	Version = "0.3.1"

	// Backend describes the playback pipeline reported to callers while a session is active.
	Backend = "mpv+yt-dlp"
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
