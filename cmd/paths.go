package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/pkg/paths"
)

// PathsOutput represents the XDG-compliant paths used by Anvil.
type PathsOutput struct {
	ConfigDir     string `json:"config_dir"`
	DataDir       string `json:"data_dir"`
	StateDir      string `json:"state_dir"`
	CacheDir      string `json:"cache_dir"`
	HistoryDB     string `json:"history_db"`
	TranscriptDir string `json:"transcript_dir"`
	Socket        string `json:"socket"`
}

// NewPathsCmd creates the `paths` command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by Anvil",
		Long: `Print the XDG-compliant paths used by Anvil.

This command outputs the paths in JSON format, making it easy to parse
from scripts and other tools.

The paths follow the XDG Base Directory Specification:
- config_dir: Configuration files (anvil.yml)
- data_dir: Persistent data (command history)
- state_dir: Runtime state (transcripts, logs, pidfile)
- cache_dir: Temporary/regenerable data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:     paths.ConfigDir(),
				DataDir:       paths.DataDir(),
				StateDir:      paths.StateDir(),
				CacheDir:      paths.CacheDir(),
				HistoryDB:     paths.HistoryDBPath(),
				TranscriptDir: paths.TranscriptDir(),
				Socket:        paths.SocketPath(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Println(string(jsonData))
			return nil
		},
	}
}
