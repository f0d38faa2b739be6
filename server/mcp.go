package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/playlist"
)

const (
	HistoryResourceURI   = "melodeck://history"
	PlaylistsResourceURI = "melodeck://playlists"
)

// MCP builds a Model Context Protocol server whose tools drive the player.
func (s *Service) MCP() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		constant.App,
		constant.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithLogging(),
	)

	srv.AddTool(mcp.NewTool(ActionPlay,
		mcp.WithDescription("Play a track. Accepts a URL or search terms; the first search result is played."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("URL or search terms"),
		),
	), s.toolPlay)

	srv.AddTool(mcp.NewTool(ActionPause,
		mcp.WithDescription("Pause the current track"),
	), s.toolAction(ActionPause))

	srv.AddTool(mcp.NewTool(ActionResume,
		mcp.WithDescription("Resume the current track"),
	), s.toolAction(ActionResume))

	srv.AddTool(mcp.NewTool(ActionStop,
		mcp.WithDescription("Stop playback and close the player"),
	), s.toolAction(ActionStop))

	srv.AddTool(mcp.NewTool(ActionStatus,
		mcp.WithDescription("Report the playback status, current track and position"),
	), s.toolAction(ActionStatus))

	srv.AddTool(mcp.NewTool(ActionSeek,
		mcp.WithDescription("Seek to an absolute position in the current track"),
		mcp.WithNumber("position",
			mcp.Required(),
			mcp.Description("Position in seconds"),
		),
	), s.toolSeek)

	srv.AddTool(mcp.NewTool(ActionVolume,
		mcp.WithDescription("Set the player volume"),
		mcp.WithNumber("level",
			mcp.Required(),
			mcp.Description("Volume from 0 to 100"),
		),
	), s.toolVolume)

	srv.AddTool(mcp.NewTool(ActionSearch,
		mcp.WithDescription("Search for tracks"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (5-50)"),
		),
	), s.toolSearch)

	srv.AddTool(mcp.NewTool(ActionRelated,
		mcp.WithDescription("Find tracks related to a seed track"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Seed track title"),
		),
		mcp.WithString("uploader",
			mcp.Description("Seed track uploader"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
		),
	), s.toolRelated)

	srv.AddResource(mcp.NewResource(
		HistoryResourceURI,
		"Listening history",
		mcp.WithResourceDescription("Recently played tracks, newest first"),
		mcp.WithMIMEType("application/json"),
	), historyResource)

	srv.AddResource(mcp.NewResource(
		PlaylistsResourceURI,
		"Playlists",
		mcp.WithResourceDescription("Saved playlists with their track counts"),
		mcp.WithMIMEType("application/json"),
	), playlistsResource)

	return srv
}

// ServeMCP runs the MCP server over in and out until ctx is done or in is closed.
func (s *Service) ServeMCP(ctx context.Context, in io.Reader, out io.Writer) error {
	return mcpserver.NewStdioServer(s.MCP()).Listen(ctx, in, out)
}

func toolResult(result any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fault.Message(err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

func (s *Service) toolAction(action string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(s.Dispatch(ctx, action, Args{}))
	}
}

func (s *Service) toolPlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid query parameter: %v", err)), nil
	}
	return toolResult(s.Dispatch(ctx, ActionPlay, Args{Query: query}))
}

func (s *Service) toolSeek(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	position, err := request.RequireFloat("position")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid position parameter: %v", err)), nil
	}
	return toolResult(s.Dispatch(ctx, ActionSeek, Args{Position: position}))
}

func (s *Service) toolVolume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	level, err := request.RequireFloat("level")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid level parameter: %v", err)), nil
	}
	return toolResult(s.Dispatch(ctx, ActionVolume, Args{Level: level}))
}

func (s *Service) toolSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid query parameter: %v", err)), nil
	}
	return toolResult(s.Dispatch(ctx, ActionSearch, Args{
		Query: query,
		Limit: request.GetInt("limit", 0),
	}))
}

func (s *Service) toolRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid title parameter: %v", err)), nil
	}
	return toolResult(s.Dispatch(ctx, ActionRelated, Args{
		Title:    title,
		Uploader: request.GetString("uploader", ""),
		Limit:    request.GetInt("limit", 0),
	}))
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func historyResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := history.Get(DefaultHistoryLimit)
	if err != nil {
		return nil, err
	}
	return jsonResource(request.Params.URI, nonNil(entries))
}

func playlistsResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summaries, err := playlist.List()
	if err != nil {
		return nil, err
	}
	return jsonResource(request.Params.URI, nonNil(summaries))
}
