// Package server exposes the playback controller to other programs: a line-delimited JSON
// protocol on stdio, an HTTP API and an MCP tool server. All three share one dispatcher.
package server

import (
	"context"
	"strings"

	"github.com/melodeck/melodeck/assistant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/track"
	"github.com/spf13/viper"
)

// Player is the subset of the playback controller the front ends drive.
type Player interface {
	Play(ctx context.Context, input string) (playback.PlayResult, error)
	Pause(ctx context.Context) (playback.Snapshot, error)
	Resume(ctx context.Context) (playback.Snapshot, error)
	Stop(ctx context.Context) (playback.Snapshot, error)
	Seek(ctx context.Context, position float64) (playback.SeekResult, error)
	SetVolume(ctx context.Context, level float64) (playback.VolumeResult, error)
	Status(ctx context.Context) (playback.StatusResult, error)
	Search(ctx context.Context, query string, limit int) ([]track.Summary, error)
	Related(ctx context.Context, title, uploader string, limit int) ([]track.Summary, error)
}

// Chatter answers free-form listening requests.
type Chatter interface {
	Chat(ctx context.Context, message string, recent []history.Entry) (assistant.Reply, error)
}

// Action names understood by Dispatch.
const (
	ActionPlay    = "play"
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionStop    = "stop"
	ActionVolume  = "volume"
	ActionSeek    = "seek"
	ActionStatus  = "status"
	ActionSearch  = "search"
	ActionRelated = "related"
	ActionHistory = "history"
	ActionChat    = "chat"
)

// Commands lists the actions in the order they are announced.
var Commands = []string{
	ActionPlay,
	ActionPause,
	ActionResume,
	ActionStop,
	ActionVolume,
	ActionSeek,
	ActionStatus,
	ActionSearch,
	ActionRelated,
	ActionHistory,
	ActionChat,
}

// DefaultHistoryLimit is used when a history request gives no limit.
const DefaultHistoryLimit = 20

// Args carries the arguments of every action. Each action reads only the fields it needs.
type Args struct {
	Query    string `json:"query,omitempty" jsonschema:"description=URL or search terms for play and search."`
	Level    any    `json:"level,omitempty" jsonschema:"oneof_type=number;string,description=Volume level for volume. Clamped to 0-100."`
	Position any    `json:"position,omitempty" jsonschema:"oneof_type=number;string,description=Absolute position in seconds for seek."`
	Limit    int    `json:"limit,omitempty" jsonschema:"minimum=0,description=Maximum number of results for search and related and history."`
	Title    string `json:"title,omitempty" jsonschema:"description=Seed title for related."`
	Uploader string `json:"uploader,omitempty" jsonschema:"description=Seed uploader for related."`
	Message  string `json:"message,omitempty" jsonschema:"description=Free-form request for chat."`
}

// Request is one line of the stdio protocol.
type Request struct {
	ID     any    `json:"id,omitempty" jsonschema:"description=Optional identifier echoed back in the response."`
	Action string `json:"action" jsonschema:"required,enum=play,enum=pause,enum=resume,enum=stop,enum=volume,enum=seek,enum=status,enum=search,enum=related,enum=history,enum=chat"`
	Args   Args   `json:"args"`
}

// Service routes actions to the player and its companions.
type Service struct {
	Player Player
	// Chatter is optional. Without it the chat action reports a missing dependency.
	Chatter Chatter
}

// Dispatch runs a single action and returns its result.
func (s *Service) Dispatch(ctx context.Context, action string, args Args) (any, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionPlay:
		return s.Player.Play(ctx, args.Query)
	case ActionPause:
		return s.Player.Pause(ctx)
	case ActionResume:
		return s.Player.Resume(ctx)
	case ActionStop:
		return s.Player.Stop(ctx)
	case ActionVolume:
		level, err := playback.ParseNumber(args.Level)
		if err != nil {
			return nil, err
		}
		return s.Player.SetVolume(ctx, level)
	case ActionSeek:
		position, err := playback.ParseNumber(args.Position)
		if err != nil {
			return nil, err
		}
		return s.Player.Seek(ctx, position)
	case ActionStatus:
		return s.Player.Status(ctx)
	case ActionSearch:
		limit := args.Limit
		if limit <= 0 {
			limit = viper.GetInt(key.SearchDefaultLimit)
		}
		return s.Player.Search(ctx, args.Query, limit)
	case ActionRelated:
		return s.Player.Related(ctx, args.Title, args.Uploader, args.Limit)
	case ActionHistory:
		limit := args.Limit
		if limit <= 0 {
			limit = DefaultHistoryLimit
		}
		return history.Get(limit)
	case ActionChat:
		return s.Chat(ctx, args.Message)
	default:
		return nil, fault.Newf(fault.ValidationError, "server.dispatch", "unknown action %q", action)
	}
}

// Chat forwards a message to the assistant along with the most recent plays.
func (s *Service) Chat(ctx context.Context, message string) (assistant.Reply, error) {
	if s.Chatter == nil {
		return assistant.Reply{}, fault.New(fault.MissingDependency, "server.chat", "assistant is not configured")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return assistant.Reply{}, fault.New(fault.ValidationError, "server.chat", "message is required")
	}

	recent, err := history.Get(assistant.HistoryContext)
	if err != nil {
		return assistant.Reply{}, err
	}

	return s.Chatter.Chat(ctx, message, recent)
}
