package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/locate"
	"github.com/melodeck/melodeck/style"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that mpv and yt-dlp can be found",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var missing bool

		for _, dep := range []locate.Dependency{playerDependency(), resolverDependency()} {
			path, err := locator.Resolve(cmd.Context(), dep)
			if err != nil {
				missing = true
				cmd.Println(missingDependencyBox(dep.Name))
				continue
			}
			printSuccess(cmd, "%s %s", style.Bold(dep.Name), style.Faint(path))
		}

		if missing {
			handleErr(fault.New(fault.MissingDependency, "check", "some dependencies are missing"))
		}
	},
}

func missingDependencyBox(name string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Missing dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("%s was not found on PATH or among the configured candidates.", name))
	hint := fmt.Sprintf("To install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(locate.InstallHint(name)))

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", hint))
}
