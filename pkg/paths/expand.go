package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand expands a leading ~ and any environment variables in a path
// and returns it as an absolute path. Config values like
// transcript_dir and history_db accept paths such as
// "~/builds/transcripts" or "$ANVIL_HOME/history.db".
func Expand(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}

	path = os.ExpandEnv(path)

	return filepath.Abs(path)
}
