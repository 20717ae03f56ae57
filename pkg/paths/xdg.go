// Package paths provides XDG-compliant path resolution for Anvil.
//
// Resolution order:
// 1. ANVIL_HOME (portable root) → $ANVIL_HOME/{config,data,state,cache}
// 2. XDG env vars → $XDG_*_HOME/anvil
// 3. Platform defaults → ~/.config/anvil, ~/.local/share/anvil, etc.
package paths

import (
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if anvilHome := os.Getenv("ANVIL_HOME"); anvilHome != "" {
		return filepath.Join(anvilHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getDataHome returns the base data home directory.
func getDataHome() string {
	if anvilHome := os.Getenv("ANVIL_HOME"); anvilHome != "" {
		return filepath.Join(anvilHome, "data")
	}
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return xdgDataHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "share")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if anvilHome := os.Getenv("ANVIL_HOME"); anvilHome != "" {
		return filepath.Join(anvilHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// getCacheHome returns the base cache home directory.
func getCacheHome() string {
	if anvilHome := os.Getenv("ANVIL_HOME"); anvilHome != "" {
		return filepath.Join(anvilHome, "cache")
	}
	if xdgCacheHome := os.Getenv("XDG_CACHE_HOME"); xdgCacheHome != "" {
		return xdgCacheHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".cache")
	}
	return ""
}

// ConfigDir returns the Anvil configuration directory.
// Used for config files like anvil.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "anvil")
}

// DataDir returns the Anvil data directory.
// Used for the command history database and downloaded toolchains.
func DataDir() string {
	base := getDataHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "anvil")
}

// StateDir returns the Anvil state directory.
// Used for runtime state, session transcripts and logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "anvil")
}

// CacheDir returns the Anvil cache directory.
// Used for temporary/regenerable data.
func CacheDir() string {
	base := getCacheHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "anvil")
}

// RuntimeDir returns the Anvil runtime directory for sockets and pipes.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if anvilHome := os.Getenv("ANVIL_HOME"); anvilHome != "" {
		return filepath.Join(anvilHome, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "anvil")
	}
	// Fallback: use state dir for socket on macOS/systems without XDG_RUNTIME_DIR
	return StateDir()
}

// SocketPath returns the path to the anvil daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "anvild.sock")
}

// PidFilePath returns the path to the anvil daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "anvild.pid")
}

// HistoryDBPath returns the default location of the command history
// database.
func HistoryDBPath() string {
	data := DataDir()
	if data == "" {
		return ""
	}
	return filepath.Join(data, "history.db")
}

// TranscriptDir returns the default location for session transcripts.
func TranscriptDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "transcripts")
}

// EnsureDirs creates all Anvil directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		StateDir(),
		CacheDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
