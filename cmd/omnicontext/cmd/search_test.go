package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicontext/omnicontext/internal/output"
	"github.com/omnicontext/omnicontext/internal/search"
	"github.com/omnicontext/omnicontext/internal/types"
)

func sampleResults() []search.SearchResult {
	return []search.SearchResult{
		{
			Chunk: types.Chunk{
				FilePath:  "internal/foo/bar.go",
				LineRange: types.LineRange{Start: 10, End: 20},
				Content:   "func Bar() {\n\treturn\n}\n",
				Language:  "go",
			},
			Score: 0.842,
		},
	}
}

func TestSnippet_TrimsTrailingBlankLinesAndCapsLength(t *testing.T) {
	got := snippet("a\nb\nc\nd\n\n", 3)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestFormatText_IncludesLocationScoreAndSnippet(t *testing.T) {
	var buf bytes.Buffer
	err := formatText(output.New(&buf), "Bar", sampleResults())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "internal/foo/bar.go:10")
	assert.Contains(t, out, "0.842")
	assert.Contains(t, out, "func Bar() {")
}

func TestFormatJSON_EmitsFilePathAndScore(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, formatJSON(cmd, sampleResults()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "internal/foo/bar.go", decoded[0]["file_path"])
	assert.Equal(t, float64(10), decoded[0]["start_line"])
}
