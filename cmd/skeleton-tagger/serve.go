package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/logging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Run the MCP server. Requests are read from stdin and responses written to
stdout; logs go to stderr. Configure the binary in your MCP client.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Debugf("Skeleton Tagger MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)

		opts := []server.Option{
			server.WithRunConfig(cfg.Run),
			server.WithVersion(Version),
		}
		history, err := openHistory()
		if err != nil {
			return err
		}
		if history != nil {
			defer history.Close()
			opts = append(opts, server.WithHistory(history))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(opts...).Serve(ctx, os.Stdin, os.Stdout)
	},
}
