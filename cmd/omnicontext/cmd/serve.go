package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/internal/rpc"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over MCP on stdio",
		Long: `serve starts the MCP server on stdio, reconciling the index once at
startup and then keeping the background health-probe and vector-compaction
scheduler running for the life of the process. Stop it with Ctrl+C.

Per the MCP stdio transport contract, nothing but protocol frames may be
written to stdout once this command starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			root, err := resolveRoot(cmd.Flag("root").Value.String())
			if err != nil {
				return err
			}
			a, err := openApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.pipeline.Reconcile(ctx); err != nil {
				a.logger.Warn("startup reconcile failed", "error", err.Error())
			}
			if err := a.persist(); err != nil {
				a.logger.Warn("failed to persist vector index after startup reconcile", "error", err.Error())
			}

			a.startBackgroundJobs(ctx)
			defer a.stopBackgroundJobs(ctx)

			server := rpc.New(a.pipeline, a.engine, a.reporter, a.graph, a.logger)
			if err := server.Serve(ctx); err != nil {
				return err
			}
			return a.persist()
		},
	}
	return cmd
}
