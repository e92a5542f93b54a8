package ui

import (
	"context"
	"fmt"
	"io"
	"time"
)

// runPlain polls source on an interval and prints one line per poll,
// matching the indexer's own CI/pipe-friendly renderer: no cursor
// movement, no alternate screen, just appended lines.
func runPlain(ctx context.Context, source StatusSource, latency LatencySource, cfg Config) error {
	if err := printSnapshot(cfg.Output, source, latency, cfg.NoColor); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printSnapshot(cfg.Output, source, latency, cfg.NoColor); err != nil {
				return err
			}
		}
	}
}

func printSnapshot(out io.Writer, source StatusSource, latency LatencySource, noColor bool) error {
	styles := GetStyles(noColor)
	snap, err := source.Report(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(out, "ERROR: %v\n", err)
		return err
	}

	_, _ = fmt.Fprintf(out, "[%s] files=%d chunks=%d vectors=%d coverage=%.1f%% mode=%s graph=%d nodes/%d edges",
		time.Now().Format("15:04:05"),
		snap.FilesIndexed, snap.ChunksIndexed, snap.VectorsIndexed,
		snap.EmbeddingCoveragePercent, renderMode(styles, snap.SearchMode),
		snap.GraphNodes, snap.GraphEdges)

	if snap.HasCycles {
		_, _ = fmt.Fprint(out, " ", styles.Warning.Render("cycles-detected"))
	}
	_, _ = fmt.Fprintln(out)

	if latency != nil {
		p := latency.Snapshot()
		_, _ = fmt.Fprintf(out, "  search latency: p50=%s p95=%s p99=%s (n=%d)\n",
			p.P50.Round(time.Millisecond), p.P95.Round(time.Millisecond), p.P99.Round(time.Millisecond), p.Count)
	}

	return nil
}

func renderMode(styles Styles, mode string) string {
	if mode == "hybrid" {
		return styles.Healthy.Render(mode)
	}
	return styles.Warning.Render(mode)
}
