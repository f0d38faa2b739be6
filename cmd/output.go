package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
}

func wantsJSON(cmd *cobra.Command) bool {
	return lo.Must(cmd.Flags().GetBool("json"))
}

func printJSON(cmd *cobra.Command, v any) {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	handleErr(encoder.Encode(v))
}

func trackLine(meta track.Meta) string {
	line := style.Bold(style.Fg(color.Purple)(meta.Title))
	if meta.Uploader != "" {
		line += style.Faint(" by " + meta.Uploader)
	}
	if meta.Duration != "" {
		line += " " + style.Fg(color.Yellow)(meta.Duration)
	}
	return line
}

func printSnapshot(cmd *cobra.Command, snapshot playback.Snapshot) {
	line := style.Status(string(snapshot.Status))
	if meta, ok := snapshot.Meta.Get(); ok {
		line += " " + trackLine(meta)
	}
	cmd.Println(line)
}

func printStatus(cmd *cobra.Command, status playback.StatusResult) {
	printSnapshot(cmd, status.Snapshot)

	position, ok := status.Position.Get()
	if !ok {
		return
	}

	progress := track.FormatSeconds(position)
	if duration, ok := status.DurationSeconds.Get(); ok {
		progress += " / " + track.FormatSeconds(duration)
	}
	cmd.Println(style.Faint(progress))
}

func printSummaries(cmd *cobra.Command, summaries []track.Summary) {
	if len(summaries) == 0 {
		cmd.Println(style.Faint("No results"))
		return
	}

	for i, s := range summaries {
		line := fmt.Sprintf("%s %s", style.Faint(fmt.Sprintf("%2d.", i+1)), style.Bold(s.Title))
		if s.Uploader != "" {
			line += style.Faint(" by " + s.Uploader)
		}
		if s.Duration != "" {
			line += " " + style.Fg(color.Yellow)(s.Duration)
		}
		cmd.Println(line)
		if s.WebpageURL != "" {
			cmd.Println("    " + style.Faint(s.WebpageURL))
		}
	}
}

func printSuccess(cmd *cobra.Command, format string, args ...any) {
	cmd.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}
