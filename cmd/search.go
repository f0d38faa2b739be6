package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/query"
	"github.com/melodeck/melodeck/resolver"
	"github.com/melodeck/melodeck/track"
	"github.com/melodeck/melodeck/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func completionQueries(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if !viper.GetBool(key.SearchShowQuerySuggestions) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	partial := strings.TrimSpace(strings.Join(append(args, toComplete), " "))
	return query.SuggestMany(partial), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addJSONFlag(searchCmd)
	searchCmd.Flags().IntP("limit", "l", 0, "Maximum number of results (5-50)")
	searchCmd.Flags().BoolP("pick", "p", false, "Pick a result and play it")
	searchCmd.Flags().Bool("no-tui", false, "When picking, print the result instead of showing the now-playing view")
	searchCmd.Flags().BoolP("open", "o", false, "When picking, open the track's web page in the browser")
	searchCmd.MarkFlagsMutuallyExclusive("json", "pick")
}

var searchCmd = &cobra.Command{
	Use:               "search <terms>",
	Short:             "Search for tracks",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionQueries,
	Run: func(cmd *cobra.Command, args []string) {
		q := strings.Join(args, " ")

		limit := lo.Must(cmd.Flags().GetInt("limit"))
		if limit <= 0 {
			limit = viper.GetInt(key.SearchDefaultLimit)
		}

		gateway, err := newGateway(cmd.Context())
		handleErr(err)

		var results []track.Summary
		if wantsJSON(cmd) || !util.IsTerminal() {
			results, err = gateway.Search(cmd.Context(), q, limit)
		} else {
			erase := util.PrintErasable(fmt.Sprintf("%s Searching %s", icon.Get(icon.Progress), q))
			results, err = gateway.Search(cmd.Context(), q, limit)
			erase()
		}
		handleErr(err)

		if err := query.Remember(q, query.WeightSearch); err != nil {
			log.Warnf("search: remember query: %v", err)
		}

		switch {
		case wantsJSON(cmd):
			printJSON(cmd, results)
		case lo.Must(cmd.Flags().GetBool("pick")):
			picked, ok := pick(results)
			if !ok {
				return
			}
			handleErr(play(cmd, picked))
		default:
			printSummaries(cmd, results)
		}
	},
}

// pick asks the user to choose one of results and returns something play accepts.
func pick(results []track.Summary) (string, bool) {
	if len(results) == 0 {
		return "", false
	}

	options := lo.Map(results, func(s track.Summary, i int) string {
		label := fmt.Sprintf("%d. %s", i+1, s.Title)
		if s.Uploader != "" {
			label += " by " + s.Uploader
		}
		if s.Duration != "" {
			label += " (" + s.Duration + ")"
		}
		return label
	})

	prompt := &survey.Select{
		Message:  "Play:",
		Options:  options,
		PageSize: 15,
	}

	var index int
	handleErr(survey.AskOne(prompt, &index))

	chosen := results[index]
	if chosen.WebpageURL != "" {
		return chosen.WebpageURL, true
	}
	return resolver.WatchURL(chosen.ID), true
}
