package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/internal/output"
	"github.com/omnicontext/omnicontext/internal/search"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Args:  cobra.ExactArgs(1),
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

			query := args[0]
			start := time.Now()
			results, err := a.engine.Search(cmd.Context(), query, search.SearchOptions{Limit: limit})
			a.latency.Record(time.Since(start))
			if err != nil {
				return err
			}

			if jsonOut {
				return formatJSON(cmd, results)
			}
			return formatText(output.New(cmd.OutOrStdout()), query, results)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit results as JSON instead of text")
	return cmd
}

// formatText renders results the way a human reads them at a terminal:
// a one-line location and score, followed by the first few lines of the
// matched chunk.
func formatText(out *output.Writer, query string, results []search.SearchResult) error {
	out.Statusf("🔍", "found %d results for %q", len(results), query)
	out.Newline()

	for i, r := range results {
		location := fmt.Sprintf("%s:%d", r.Chunk.FilePath, r.Chunk.LineRange.Start)
		out.Statusf("", "%d. %s (score: %.3f)", i+1, location, r.Score)
		for _, line := range snippet(r.Chunk.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
	return nil
}

func formatJSON(cmd *cobra.Command, results []search.SearchResult) error {
	type jsonResult struct {
		FilePath  string  `json:"file_path"`
		StartLine int     `json:"start_line"`
		EndLine   int     `json:"end_line"`
		Score     float64 `json:"score"`
		Content   string  `json:"content"`
		Language  string  `json:"language,omitempty"`
	}

	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonResult{
			FilePath:  r.Chunk.FilePath,
			StartLine: r.Chunk.LineRange.Start,
			EndLine:   r.Chunk.LineRange.End,
			Score:     r.Score,
			Content:   r.Chunk.Content,
			Language:  r.Chunk.Language,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// snippet returns the first n non-trailing-blank lines of content.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
