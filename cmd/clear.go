package cmd

import (
	"fmt"

	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/util"
	"github.com/melodeck/melodeck/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"lookup cache", "cache", mo.Some("c"), where.Cache},
	{"listening history", "history", mo.Some("H"), where.History},
	{"playlists", "playlists", mo.None[string](), where.Playlists},
	{"query suggestions", "queries", mo.Some("q"), where.Queries},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := "Clear " + target.name
		if short, ok := target.argShort.Get(); ok {
			clearCmd.Flags().BoolP(target.argLong, short, false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached and saved data",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		chosen := lo.Filter(clearTargets, func(t clearTarget, _ int) bool {
			return lo.Must(cmd.Flags().GetBool(t.argLong))
		})

		if len(chosen) == 0 {
			handleErr(cmd.Help())
			return
		}

		for _, target := range chosen {
			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			exists, err := filesystem.API().Exists(target.location())
			if err == nil && exists {
				err = util.Delete(target.location())
			}
			erase()
			handleErr(err)

			printSuccess(cmd, "%s cleared", util.Capitalize(target.name))
		}
	},
}
