package cmd

import (
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/track"
	"github.com/spf13/cobra"
)

func init() {
	for _, c := range []*cobra.Command{pauseCmd, resumeCmd, stopCmd, seekCmd, volumeCmd, statusCmd} {
		rootCmd.AddCommand(c)
		addJSONFlag(c)
	}
}

// withRemote runs fn against the player started by another melodeck process.
func withRemote(fn func(r *playback.Remote) error) {
	remote, shutdown := newRemote()
	err := fn(remote)
	shutdown()
	handleErr(err)
}

func snapshotCommand(use, short string, action func(*playback.Remote, *cobra.Command) (playback.Snapshot, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withRemote(func(r *playback.Remote) error {
				snapshot, err := action(r, cmd)
				if err != nil {
					return err
				}

				if wantsJSON(cmd) {
					printJSON(cmd, snapshot)
				} else {
					printSnapshot(cmd, snapshot)
				}
				return nil
			})
		},
	}
}

var pauseCmd = snapshotCommand("pause", "Pause the current track", func(r *playback.Remote, cmd *cobra.Command) (playback.Snapshot, error) {
	return r.Pause(cmd.Context())
})

var resumeCmd = snapshotCommand("resume", "Resume the current track", func(r *playback.Remote, cmd *cobra.Command) (playback.Snapshot, error) {
	return r.Resume(cmd.Context())
})

var stopCmd = snapshotCommand("stop", "Stop playback and close the player", func(r *playback.Remote, cmd *cobra.Command) (playback.Snapshot, error) {
	return r.Stop(cmd.Context())
})

var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek to an absolute position in the current track",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		position, err := playback.ParseNumber(args[0])
		handleErr(err)

		withRemote(func(r *playback.Remote) error {
			result, err := r.Seek(cmd.Context(), position)
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				printJSON(cmd, result)
			} else {
				printSuccess(cmd, "seeked to %s", track.FormatSeconds(result.Position))
			}
			return nil
		})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set the player volume",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		level, err := playback.ParseNumber(args[0])
		handleErr(err)

		withRemote(func(r *playback.Remote) error {
			result, err := r.SetVolume(cmd.Context(), level)
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				printJSON(cmd, result)
			} else {
				printSuccess(cmd, "volume set to %.0f%%", result.Volume)
			}
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is playing",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withRemote(func(r *playback.Remote) error {
			status, err := r.Status(cmd.Context())
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				printJSON(cmd, status)
			} else {
				printStatus(cmd, status)
			}
			return nil
		})
	},
}
