// Package cmd implements the melodeck command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/util"
	"github.com/melodeck/melodeck/version"
	"github.com/melodeck/melodeck/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, plain)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Record started tracks in the listening history")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnPlay, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().String("socket", "", "Control socket address of the player")
	lo.Must0(viper.BindPFlag(key.PlayerSocket, rootCmd.PersistentFlags().Lookup("socket")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		version.Notify(ctx)
	})

	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for melodeck.
var rootCmd = &cobra.Command{
	Use:   constant.App,
	Short: "Play music from the terminal",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiPurple).Render("    - Stream audio from YouTube through mpv, from the terminal or any program"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.SetContext(cmd.Context())
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute runs the command tree. SIGINT and SIGTERM cancel the command context.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(fault.Message(err), " \n"))
		os.Exit(1)
	}
}
