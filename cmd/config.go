package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anvilide/core/config"
)

// NewConfigCmd creates the `config` command, which prints the resolved
// configuration for the current directory.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Display the resolved anvil.yml for the current directory",
		Long: `Shows the configuration that applies to the current directory. The
file is found by walking up from the working directory; environment
variables in the file are expanded before display.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			path, err := config.FindConfigFile(cwd)
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			fmt.Printf("# Source: %s\n", path)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
