package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/internal/output"
	"github.com/omnicontext/omnicontext/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var watch bool
	var jsonOut bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report index health and search mode",
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

			out := cmd.OutOrStdout()
			if watch {
				cfg := ui.NewConfig(out, ui.WithNoColor(noColor || ui.DetectNoColor()), ui.WithForcePlain(!ui.IsTTY(out) || ui.DetectCI()))
				return ui.Watch(cmd.Context(), a.reporter, a.latency, cfg)
			}

			snap, err := a.reporter.Report(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			w := output.New(out)
			w.Statusf("📊", "%d files, %d chunks, %d vectors (%.1f%% embedded)",
				snap.FilesIndexed, snap.ChunksIndexed, snap.VectorsIndexed, snap.EmbeddingCoveragePercent)
			w.Statusf("🔎", "search mode: %s", snap.SearchMode)
			if snap.HasCycles {
				w.Warningf("dependency graph has cycles (%d nodes, %d edges)", snap.GraphNodes, snap.GraphEdges)
			} else {
				w.Statusf("🕸️ ", "graph: %d nodes, %d edges", snap.GraphNodes, snap.GraphEdges)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling and render a live dashboard")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit status as JSON instead of text")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable styled dashboard output")
	return cmd
}
