package logging

import "path/filepath"

// LogDir returns `<repoRoot>/.omnicontext/logs`, the per-repository log
// directory (logs live alongside metadata.db rather than under the user's
// home, since every other piece of state is already scoped to the repo).
func LogDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".omnicontext", "logs")
}

// LogPath returns `<repoRoot>/.omnicontext/logs/omnicontext.log`.
func LogPath(repoRoot string) string {
	return filepath.Join(LogDir(repoRoot), "omnicontext.log")
}
