package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/open"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/query"
	"github.com/melodeck/melodeck/resolver"
	"github.com/melodeck/melodeck/tui"
	"github.com/melodeck/melodeck/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(playCmd)
	addJSONFlag(playCmd)
	playCmd.Flags().Bool("no-tui", false, "Print the result instead of showing the now-playing view")
	playCmd.Flags().BoolP("open", "o", false, "Open the track's web page in the browser")
}

var playCmd = &cobra.Command{
	Use:               "play <url or search terms>",
	Short:             "Play a track and stay attached until it ends",
	Long:              "Play a URL, or the first search result for the given terms. The command stays attached to the player until the track ends or playback is stopped.",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionQueries,
	Run: func(cmd *cobra.Command, args []string) {
		input := strings.Join(args, " ")
		handleErr(play(cmd, input))
	},
}

func play(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if !resolver.IsURL(input) {
		if err := query.Remember(input, query.WeightPlay); err != nil {
			log.Warnf("play: remember query: %v", err)
		}
	}

	var result playback.PlayResult
	if wantsJSON(cmd) || !util.IsTerminal() {
		result, err = s.controller.Play(ctx, input)
	} else {
		erase := util.PrintErasable(icon.Get(icon.Progress) + " Resolving " + input)
		result, err = s.controller.Play(ctx, input)
		erase()
	}
	if err != nil {
		return err
	}

	if lo.Must(cmd.Flags().GetBool("open")) {
		if meta, ok := result.Meta.Get(); ok && meta.WebpageURL != "" {
			if err := open.Start(meta.WebpageURL); err != nil {
				log.Warnf("play: open page: %v", err)
			}
		}
	}

	switch {
	case wantsJSON(cmd):
		printJSON(cmd, result)
	case util.IsTerminal() && !lo.Must(cmd.Flags().GetBool("no-tui")):
		return tui.Run(ctx, tui.Options{Controls: s.controller, Initial: result})
	default:
		printSnapshot(cmd, result.Snapshot)
	}

	if err := s.controller.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
