package cmd

import (
	"runtime"
	"strings"
	"text/template"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var versionTemplate = lo.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
}).Parse(`{{ magenta "▇▇▇" }} {{ magenta .App }}

  {{ faint "Version" }}         {{ bold .Version }}
  {{ faint "Git Commit" }}      {{ bold .Revision }}
  {{ faint "Build Date" }}      {{ bold .BuiltAt }}
  {{ faint "Built By" }}        {{ bold .BuiltBy }}
  {{ faint "Platform" }}        {{ bold .OS }}/{{ bold .Arch }}
  {{ faint "Backend" }}         {{ bold .Backend }}
`))

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Only print the version number")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), struct {
			App, Version, Revision, BuiltAt, BuiltBy, OS, Arch, Backend string
		}{
			App:      constant.App,
			Version:  constant.Version,
			Revision: constant.Revision,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			Backend:  constant.Backend,
		}))

		version.Notify(cmd.Context())
	},
}
