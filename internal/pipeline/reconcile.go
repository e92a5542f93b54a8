package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/omnicontext/omnicontext/internal/gitignore"
	"github.com/omnicontext/omnicontext/internal/types"
)

// alwaysExcludedDirs are directories never worth descending into regardless
// of gitignore contents: the directory names in config.Default()'s exclude
// list except dist and build, which are skipped only when .gitignore
// matches them.
var alwaysExcludedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"__pycache__": true, ".omnicontext": true,
}

// Reconcile walks the tree rooted at deps.RootPath, compares every file's
// content hash against the metadata store, and processes anything
// added/modified; files recorded in the store but no longer present on
// disk are removed. Re-embedding is skipped for unchanged chunks because
// ProcessFile's embedding coordinator already keys its cache on content
// fingerprint, not file path.
func (p *Pipeline) Reconcile(ctx context.Context) (Result, error) {
	matcher := gitignore.New()
	_ = matcher.AddFromFile(filepath.Join(p.deps.RootPath, ".gitignore"), "")

	seen := make(map[string]bool)
	var total Result

	err := filepath.WalkDir(p.deps.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if path == p.deps.RootPath {
			return nil
		}
		rel, relErr := filepath.Rel(p.deps.RootPath, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if alwaysExcludedDirs[d.Name()] || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher.Match(rel, false) {
			return nil
		}

		seen[rel] = true

		existing, getErr := p.deps.Metadata.GetFileByPath(ctx, rel)
		if getErr == nil && existing != nil {
			content, readErr := os.ReadFile(path)
			if readErr == nil && types.HashContent(content) == existing.ContentHash {
				return nil // unchanged, nothing to do
			}
		}

		result, procErr := p.ProcessFile(ctx, rel)
		if procErr != nil {
			total.FilesFailed++
			return nil
		}
		total.add(result)
		return nil
	})
	if err != nil {
		return total, err
	}

	stored, err := p.deps.Metadata.AllFiles(ctx)
	if err != nil {
		return total, err
	}
	for _, f := range stored {
		if !seen[f.Path] {
			_ = p.RemoveFile(ctx, f.Path)
		}
	}

	return total, nil
}
