package cmd

import (
	"strings"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/playback"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(relatedCmd)
	addJSONFlag(relatedCmd)
	relatedCmd.Flags().StringP("uploader", "u", "", "Uploader of the seed track")
	relatedCmd.Flags().IntP("limit", "l", 0, "Maximum number of results")
}

var relatedCmd = &cobra.Command{
	Use:   "related [title]",
	Short: "Find tracks related to a title, or to what is playing",
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")
		uploader := lo.Must(cmd.Flags().GetString("uploader"))

		if title == "" {
			withRemote(func(r *playback.Remote) error {
				status, err := r.Status(cmd.Context())
				if err != nil {
					return err
				}
				meta, ok := status.Meta.Get()
				if !ok {
					return fault.New(fault.NoActiveSession, "related", "nothing is playing; give a title")
				}
				title, uploader = meta.Title, lo.Ternary(uploader == "", meta.Uploader, uploader)
				return nil
			})
		}

		s, err := newSession(cmd.Context())
		handleErr(err)

		results, err := s.controller.Related(cmd.Context(), title, uploader, lo.Must(cmd.Flags().GetInt("limit")))
		s.release()
		handleErr(err)

		if wantsJSON(cmd) {
			printJSON(cmd, results)
			return
		}
		printSummaries(cmd, results)
	},
}
