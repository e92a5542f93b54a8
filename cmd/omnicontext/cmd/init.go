package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/internal/config"
	"github.com/omnicontext/omnicontext/internal/output"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration for this project",
		Long: `init writes .omnicontext/config.toml with this repository's defaults
and adds .omnicontext/ to .gitignore, if not already present. It does not
build an index; run 'omnicontext index' afterward for that.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(cmd.Flag("root").Value.String())
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())

			dir := filepath.Join(root, config.Dir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			cfgPath := filepath.Join(dir, config.ConfigFileName)
			if _, err := os.Stat(cfgPath); err == nil {
				out.Warningf("%s already exists, leaving it untouched", cfgPath)
			} else if errors.Is(err, os.ErrNotExist) {
				var buf bytes.Buffer
				if err := toml.NewEncoder(&buf).Encode(config.Default()); err != nil {
					return fmt.Errorf("encoding default config: %w", err)
				}
				if err := os.WriteFile(cfgPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", cfgPath, err)
				}
				out.Successf("wrote %s", cfgPath)
			} else {
				return err
			}

			added, err := ensureGitignore(root)
			if err != nil {
				return err
			}
			if added {
				out.Success("added .omnicontext/ to .gitignore")
			}

			out.Newline()
			out.Status("👉", "run 'omnicontext index' to build the search index")
			return nil
		},
	}
	return cmd
}

// hasIndexDirIgnore reports whether content already ignores the index
// state directory.
func hasIndexDirIgnore(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == config.Dir || line == config.Dir+"/" {
			return true
		}
	}
	return false
}

// ensureGitignore appends an entry ignoring the index state directory to
// <projectRoot>/.gitignore, creating the file if needed. Grounded on the
// teacher's ensureGitignore/hasAmanmcpIgnore pair, adapted to this
// project's state directory name.
func ensureGitignore(projectRoot string) (bool, error) {
	path := filepath.Join(projectRoot, ".gitignore")

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("reading .gitignore: %w", err)
	}
	if hasIndexDirIgnore(string(content)) {
		return false, nil
	}

	lineEnding := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		lineEnding = "\r\n"
	}
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		content = append(content, []byte(lineEnding)...)
	}

	var entry string
	if len(content) > 0 {
		entry += lineEnding
	}
	entry += "# omnicontext index data (auto-generated)" + lineEnding + config.Dir + "/" + lineEnding
	content = append(content, []byte(entry)...)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("writing .gitignore: %w", err)
	}
	return true, nil
}
