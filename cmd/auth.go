package cmd

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/melodeck/melodeck/auth"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the assistant API key",
	Long:  "Manage the Gemini API key used by the chat assistant. The " + auth.EnvAPIKey + " environment variable takes precedence over the stored key.",
}

func init() {
	authCmd.AddCommand(authSetCmd)
}

var authSetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key in the system keyring",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var apiKey string
		if len(args) == 1 {
			apiKey = args[0]
		} else {
			handleErr(survey.AskOne(&survey.Password{Message: "Gemini API key:"}, &apiKey, survey.WithValidator(survey.Required)))
		}

		handleErr(auth.SetAPIKey(apiKey))
		printSuccess(cmd, "API key saved")
	},
}

func init() {
	authCmd.AddCommand(authDeleteCmd)
}

var authDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove", "logout"},
	Short:   "Remove the stored API key",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteAPIKey())
		printSuccess(cmd, "API key removed")
	},
}

func init() {
	authCmd.AddCommand(authStatusCmd)
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an API key is available",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, err := auth.APIKey()
		handleErr(err)
		printSuccess(cmd, "API key is set")
	},
}
