package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/pkg/version"
)

// NewRootCmd builds the omnicontext root command and registers every
// subcommand. Grounded on cmd/amanmcp/cmd's NewRootCmd, trimmed to the
// operations this repository actually implements: indexing, search, status,
// dependency queries, serving, one-time setup, and version reporting.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "omnicontext",
		Short: "Local-first hybrid code search and MCP server",
		Long: `omnicontext indexes a codebase into a local hybrid search index
(lexical + semantic + graph) and serves it to AI coding assistants over
MCP, or directly from the command line.

Run 'omnicontext init' once in a project, then 'omnicontext index' to
build the index.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("root", "", "project root (defaults to the enclosing git repository)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newDepsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and returns the process exit code, mapping
// any returned error through exitCode so callers never need their own
// error-to-exit-status logic.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return exitCode(err)
}
