package cmd

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/playlist"
	"github.com/melodeck/melodeck/resolver"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

func completionPlaylists(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	summaries, err := playlist.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return lo.Map(summaries, func(s playlist.Summary, _ int) string { return s.Name }), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(playlistCmd)
}

var playlistCmd = &cobra.Command{
	Use:     "playlist",
	Aliases: []string{"pl"},
	Short:   "Manage saved playlists",
}

func init() {
	playlistCmd.AddCommand(playlistListCmd)
	addJSONFlag(playlistListCmd)
}

var playlistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List playlists",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		summaries, err := playlist.List()
		handleErr(err)

		if wantsJSON(cmd) {
			printJSON(cmd, lo.Ternary(summaries == nil, []playlist.Summary{}, summaries))
			return
		}

		if len(summaries) == 0 {
			cmd.Println(style.Faint("No playlists"))
			return
		}

		for _, s := range summaries {
			cmd.Printf("%s %s\n", style.Bold(style.Fg(color.Purple)(s.Name)), style.Faint(util.Quantify(s.TrackCount, "track", "tracks")))
			if s.Description != "" {
				cmd.Println("  " + s.Description)
			}
		}
	},
}

func init() {
	playlistCmd.AddCommand(playlistShowCmd)
	addJSONFlag(playlistShowCmd)
}

var playlistShowCmd = &cobra.Command{
	Use:               "show <playlist>",
	Short:             "Show the tracks of a playlist",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Find(strings.Join(args, " "))
		handleErr(err)

		if wantsJSON(cmd) {
			printJSON(cmd, p)
			return
		}

		cmd.Println(style.Title(p.Name))
		if p.Description != "" {
			cmd.Println(style.Faint(p.Description))
		}
		cmd.Println()

		for i, t := range p.Tracks {
			line := style.Faint(strconv.Itoa(i+1)+".") + " " + style.Bold(t.Title)
			if t.Uploader != "" {
				line += style.Faint(" by " + t.Uploader)
			}
			if d, ok := t.Duration.Get(); ok {
				line += " " + style.Fg(color.Yellow)(d)
			}
			cmd.Println(line + " " + style.Faint(t.ID))
		}
	},
}

func init() {
	playlistCmd.AddCommand(playlistCreateCmd)
	playlistCreateCmd.Flags().StringP("description", "d", "", "Playlist description")
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a playlist",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Create(strings.Join(args, " "), lo.Must(cmd.Flags().GetString("description")))
		handleErr(err)
		printSuccess(cmd, "created %s", style.Fg(color.Purple)(p.Name))
	},
}

func init() {
	playlistCmd.AddCommand(playlistEditCmd)
	playlistEditCmd.Flags().StringP("name", "n", "", "New name")
	playlistEditCmd.Flags().StringP("description", "d", "", "New description")
}

var playlistEditCmd = &cobra.Command{
	Use:               "edit <playlist>",
	Short:             "Rename a playlist or change its description",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Find(strings.Join(args, " "))
		handleErr(err)

		var update playlist.Update
		if cmd.Flags().Changed("name") {
			update.Name = mo.Some(lo.Must(cmd.Flags().GetString("name")))
		}
		if cmd.Flags().Changed("description") {
			update.Description = mo.Some(lo.Must(cmd.Flags().GetString("description")))
		}

		p, err = playlist.Edit(p.ID, update)
		handleErr(err)
		printSuccess(cmd, "updated %s", style.Fg(color.Purple)(p.Name))
	},
}

func init() {
	playlistCmd.AddCommand(playlistDeleteCmd)
}

var playlistDeleteCmd = &cobra.Command{
	Use:               "delete <playlist>",
	Aliases:           []string{"rm"},
	Short:             "Delete a playlist",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Find(strings.Join(args, " "))
		handleErr(err)

		_, err = playlist.Delete(p.ID)
		handleErr(err)
		printSuccess(cmd, "deleted %s", style.Fg(color.Purple)(p.Name))
	},
}

func init() {
	playlistCmd.AddCommand(playlistAddCmd)
}

var playlistAddCmd = &cobra.Command{
	Use:               "add <playlist> <url or search terms>",
	Short:             "Add a track to a playlist",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Find(args[0])
		handleErr(err)

		gateway, err := newGateway(cmd.Context())
		handleErr(err)

		meta, err := gateway.FetchMetadata(cmd.Context(), resolver.Target(strings.Join(args[1:], " ")))
		handleErr(err)

		p, err = playlist.AddTrack(p.ID, meta.Summary())
		handleErr(err)
		printSuccess(cmd, "added %s to %s", trackLine(meta), style.Fg(color.Purple)(p.Name))
	},
}

func init() {
	playlistCmd.AddCommand(playlistRemoveCmd)
}

var playlistRemoveCmd = &cobra.Command{
	Use:               "remove <playlist> <track id>",
	Short:             "Remove a track from a playlist",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Find(args[0])
		handleErr(err)

		p, err = playlist.RemoveTrack(p.ID, args[1])
		handleErr(err)
		printSuccess(cmd, "removed %s from %s", args[1], style.Fg(color.Purple)(p.Name))
	},
}

func init() {
	playlistCmd.AddCommand(playlistMoveCmd)
}

var playlistMoveCmd = &cobra.Command{
	Use:               "move <playlist> <track id> <position>",
	Short:             "Move a track to a new position, counting from 1",
	Args:              cobra.ExactArgs(3),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		position, err := strconv.Atoi(args[2])
		if err != nil {
			handleErr(fault.Newf(fault.ValidationError, "playlist.move", "%q is not a position", args[2]))
		}

		p, err := playlist.Find(args[0])
		handleErr(err)

		p, err = playlist.Reorder(p.ID, args[1], position-1)
		handleErr(err)
		printSuccess(cmd, "moved %s in %s", args[1], style.Fg(color.Purple)(p.Name))
	},
}

func init() {
	playlistCmd.AddCommand(playlistPlayCmd)
	playlistPlayCmd.Flags().IntP("from", "f", 1, "Position of the first track to play")
}

var playlistPlayCmd = &cobra.Command{
	Use:               "play <playlist>",
	Short:             "Play every track of a playlist in order",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionPlaylists,
	Run: func(cmd *cobra.Command, args []string) {
		p, err := playlist.Find(strings.Join(args, " "))
		handleErr(err)

		from := max(1, lo.Must(cmd.Flags().GetInt("from")))
		if from > len(p.Tracks) {
			handleErr(fault.Newf(fault.ValidationError, "playlist.play", "%s has %s", p.Name, util.Quantify(len(p.Tracks), "track", "tracks")))
		}

		handleErr(playAll(cmd, p.Tracks[from-1:]))
	},
}

func playAll(cmd *cobra.Command, tracks []playlist.Track) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	for _, t := range tracks {
		result, err := s.controller.Play(ctx, resolver.WatchURL(t.ID))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		printSnapshot(cmd, result.Snapshot)

		if err := s.controller.Wait(ctx); err != nil {
			return nil
		}
	}

	return nil
}
