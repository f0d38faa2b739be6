package cmd

import (
	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type whereTarget struct {
	name     string
	where    func() string
	argLong  string
	argShort mo.Option[string]
	hidden   bool
}

var wherePaths = []whereTarget{
	{"Config", where.Config, "config", mo.Some("c"), false},
	{"Logs", where.Logs, "logs", mo.Some("l"), false},
	{"History", where.History, "history", mo.Some("H"), false},
	{"Playlists", where.Playlists, "playlists", mo.Some("p"), false},
	{"Queries", where.Queries, "queries", mo.None[string](), true},
	{"Cache", where.Cache, "cache", mo.None[string](), true},
	{"Temp", where.Temp, "temp", mo.None[string](), true},
	{"Socket", where.Socket, "socket", mo.Some("s"), false},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, n := range wherePaths {
		if short, ok := n.argShort.Get(); ok {
			whereCmd.Flags().BoolP(n.argLong, short, false, n.name+" path")
		} else {
			whereCmd.Flags().Bool(n.argLong, false, n.name+" path")
		}

		if n.hidden {
			lo.Must0(whereCmd.Flags().MarkHidden(n.argLong))
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(wherePaths, func(t whereTarget, _ int) string {
		return t.argLong
	})...)
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where melodeck keeps its files",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range wherePaths {
			if lo.Must(cmd.Flags().GetBool(n.argLong)) {
				cmd.Println(n.where())
				return
			}
		}

		header := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Reject(wherePaths, func(t whereTarget, _ int) bool { return t.hidden })

		for i, n := range visible {
			cmd.Printf("%s %s\n", header(n.name+"?"), style.Fg(color.Yellow)("--"+n.argLong))
			cmd.Println(n.where())

			if i < len(visible)-1 {
				cmd.Println()
			}
		}
	},
}
