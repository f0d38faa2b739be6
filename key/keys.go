// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Player Process - these keys configure how the external media player is located and supervised.
const (
	PlayerCandidates = "player.candidates"
	PlayerSocket     = "player.socket"
	PlayerGraceMs    = "player.grace_ms"
	PlayerSettleMs   = "player.settle_ms"
)

// Stream Resolution - these keys configure the external resolver tool.
const (
	ResolverCandidates = "resolver.candidates"
	ResolverFormat     = "resolver.format"
)

// Control Socket - these keys govern the command transport to the running player.
const (
	IPCTimeoutMs        = "ipc.timeout_ms"
	IPCConnectRetries   = "ipc.connect_retries"
	IPCConnectBackoffMs = "ipc.connect_backoff_ms"
)

// Result Caching - these keys bound the in-memory lookup caches.
const (
	CacheTTLMinutes = "cache.ttl_minutes"
	CacheMaxEntries = "cache.max_entries"
)

// Playback Orchestration
const (
	PlaybackDebounceMs = "playback.debounce_ms"
)

// Search Interaction - these keys define the parameters for search discovery.
const (
	SearchDefaultLimit         = "search.default_limit"
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// History Tracking - these keys configure the persistence of listening history.
const (
	HistoryMax        = "history.max"
	HistorySaveOnPlay = "history.save_on_play"
)

// HTTP API
const (
	ServerAddr = "server.addr"
)

// Assistant - these keys configure the recommendation chat helper.
const (
	AssistantModel = "assistant.model"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the application behavior outside of the TUI.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
