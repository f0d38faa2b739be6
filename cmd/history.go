package cmd

import (
	"fmt"

	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	addJSONFlag(historyCmd)
	historyCmd.Flags().IntP("limit", "l", 20, "Number of entries to show. 0 shows everything")
	historyCmd.Flags().Bool("clear", false, "Forget the listening history")
	historyCmd.MarkFlagsMutuallyExclusive("json", "clear")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("clear")) {
			handleErr(history.Clear())
			printSuccess(cmd, "history cleared")
			return
		}

		entries, err := history.Get(lo.Must(cmd.Flags().GetInt("limit")))
		handleErr(err)

		if wantsJSON(cmd) {
			printJSON(cmd, lo.Ternary(entries == nil, []history.Entry{}, entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("Nothing played yet"))
			return
		}

		for _, e := range entries {
			cmd.Printf("%s %s\n", style.Faint(e.PlayedAt.Local().Format("2006-01-02 15:04")), style.Bold(e.String()))
			if e.ID != "" {
				cmd.Println(style.Faint(fmt.Sprintf("                 %s", e.ID)))
			}
		}
	},
}
