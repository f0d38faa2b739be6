package cmd

import (
	"os"
	"sort"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/config"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// envNames lists every environment variable melodeck reads, sorted.
func envNames() []string {
	names := lo.Map(config.EnvExposed, func(k string, _ int) string {
		field := config.Default[k]
		return field.Env()
	})
	names = append(names, where.EnvConfigPath)
	sort.Strings(names)
	return lo.Uniq(names)
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only list variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only list variables that are not set")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables that override settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		for _, name := range envNames() {
			value, present := os.LookupEnv(name)
			present = present && value != ""
			if (setOnly && !present) || (unsetOnly && present) {
				continue
			}

			line := style.Bold(style.Fg(color.Purple)(name)) + "="
			if present {
				line += style.Fg(color.Green)(value)
			} else {
				line += style.Fg(color.Red)("unset")
			}
			cmd.Println(line)
		}
	},
}
