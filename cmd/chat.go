package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/melodeck/melodeck/assistant"
	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/util"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	addJSONFlag(chatCmd)
	chatCmd.Flags().BoolP("pick", "p", false, "Pick a suggestion and play it")
	chatCmd.Flags().Bool("no-tui", false, "When picking, print the result instead of showing the now-playing view")
	chatCmd.Flags().BoolP("open", "o", false, "When picking, open the track's web page in the browser")
	chatCmd.MarkFlagsMutuallyExclusive("json", "pick")
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the assistant for music suggestions",
	Long:  "Ask the assistant for music suggestions. Your recent plays are sent along with the message.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		message := strings.Join(args, " ")

		recent, err := history.Get(assistant.HistoryContext)
		if err != nil {
			log.Warnf("chat: read history: %v", err)
		}

		client := newAssistant()

		var reply assistant.Reply
		if wantsJSON(cmd) || !util.IsTerminal() {
			reply, err = client.Chat(cmd.Context(), message, recent)
		} else {
			erase := util.PrintErasable(fmt.Sprintf("%s Thinking...", icon.Get(icon.Progress)))
			reply, err = client.Chat(cmd.Context(), message, recent)
			erase()
		}
		handleErr(err)

		switch {
		case wantsJSON(cmd):
			printJSON(cmd, reply)
		case lo.Must(cmd.Flags().GetBool("pick")):
			printReply(cmd, reply)
			suggestion, ok := pickSuggestion(reply.Suggestions)
			if !ok {
				return
			}
			handleErr(play(cmd, suggestion.Query))
		default:
			printReply(cmd, reply)
		}
	},
}

func printReply(cmd *cobra.Command, reply assistant.Reply) {
	width := 80
	if w, _, err := util.TerminalSize(); err == nil && w > 0 && w < width {
		width = w
	}

	cmd.Println(wordwrap.String(reply.Message, width))
	if len(reply.Suggestions) == 0 {
		return
	}

	cmd.Println()
	for i, s := range reply.Suggestions {
		cmd.Printf("%s %s\n", style.Faint(fmt.Sprintf("%d.", i+1)), style.Bold(style.Fg(color.Purple)(s.Query)))
		if s.Reason != "" {
			cmd.Println("   " + style.Faint(s.Reason))
		}
	}
}

func pickSuggestion(suggestions []assistant.Suggestion) (assistant.Suggestion, bool) {
	if len(suggestions) == 0 {
		return assistant.Suggestion{}, false
	}

	var index int
	handleErr(survey.AskOne(&survey.Select{
		Message: "Play:",
		Options: lo.Map(suggestions, func(s assistant.Suggestion, _ int) string { return s.Query }),
	}, &index))

	return suggestions[index], true
}
