package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/internal/output"
	"github.com/omnicontext/omnicontext/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or update the local search index",
		Long: `index walks the project, diffs every file's content hash against
the last indexed run, and re-extracts, re-chunks, and re-embeds only what
changed. With --watch it stays running and reconciles on every filesystem
event instead of exiting after one pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(cmd.Flag("root").Value.String())
			if err != nil {
				return err
			}
			a, err := openApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			out := output.New(cmd.OutOrStdout())

			if watch {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				out.Status("👀", "watching for changes, press Ctrl+C to stop")
				debounce := time.Duration(a.cfg.Watcher.DebounceMS) * time.Millisecond
				w, err := watcher.NewHybridWatcher(watcher.Options{DebounceWindow: debounce})
				if err != nil {
					return err
				}
				if err := a.pipeline.Run(ctx, w); err != nil {
					return err
				}
				return a.persist()
			}

			result, err := a.pipeline.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if perr := a.persist(); perr != nil {
				return perr
			}

			out.Successf("indexed %d files (%d failed), %d chunks, %d symbols, %d embeddings",
				result.FilesProcessed, result.FilesFailed, result.ChunksCreated,
				result.SymbolsExtracted, result.EmbeddingsGenerated)
			if result.FilesFailed > 0 {
				return fmt.Errorf("%d file(s) failed to index", result.FilesFailed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and reconcile on every filesystem change")
	return cmd
}
