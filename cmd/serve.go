package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/server"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("http", false, "Serve the HTTP API instead of line-delimited JSON on stdio")
	serveCmd.Flags().Bool("mcp", false, "Serve the Model Context Protocol on stdio")
	serveCmd.Flags().Bool("schema", false, "Print the JSON schema of stdio requests and exit")
	serveCmd.Flags().StringP("addr", "a", "", "Listen address of the HTTP API")
	lo.Must0(viper.BindPFlag(key.ServerAddr, serveCmd.Flags().Lookup("addr")))
	serveCmd.MarkFlagsMutuallyExclusive("http", "mcp", "schema")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Control playback from another program",
	Long: `Control playback from another program.

By default requests are read from stdin as one JSON object per line, {"id":1,"action":"play","args":{"query":"..."}},
and answered on stdout in the same way. The first line written is {"ready":true,"commands":[...]}.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			printJSON(cmd, server.Schema())
			return
		}

		handleErr(serve(cmd))
	},
}

func serve(cmd *cobra.Command) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	svc := s.service()

	switch {
	case lo.Must(cmd.Flags().GetBool("http")):
		addr := viper.GetString(key.ServerAddr)
		printSuccess(cmd, "listening on %s", addr)
		err = svc.ListenAndServe(ctx, addr)
	case lo.Must(cmd.Flags().GetBool("mcp")):
		err = svc.ServeMCP(ctx, os.Stdin, os.Stdout)
	default:
		err = svc.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
