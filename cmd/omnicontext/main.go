// Command omnicontext indexes a codebase into a local hybrid search index
// and serves it over stdio MCP, the CLI, or both.
package main

import (
	"os"

	"github.com/omnicontext/omnicontext/cmd/omnicontext/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
