package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anvilide/core/config"
	"github.com/anvilide/core/logging"
)

// CommandOptions holds common options for Anvil commands
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with standard Anvil flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	// Standard flags for all Anvil tools
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to anvil.yml config file")

	// Apply styled help
	SetStyledHelp(cmd)

	return cmd
}

// GetLogger creates a logger based on command flags. Logs go to stderr so
// --json command output on stdout stays parseable.
func GetLogger(cmd *cobra.Command) *logrus.Logger {
	opts := []LoggerOption{
		WithOutput(os.Stderr),
		WithFormatter(&logging.TextFormatter{}),
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts = append(opts, WithLevel(logrus.DebugLevel))
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		opts = append(opts, WithFormatter(&logrus.JSONFormatter{}))
	}

	return NewLogger(opts...)
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// InitConfig initializes the configuration file path
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		// Use config file from flag
		return configFile, nil
	}

	// Find config file
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	foundConfigFile, err := config.FindConfigFile(cwd)
	if err != nil {
		// No config file found, that's okay for some commands
		return "", nil
	}

	return foundConfigFile, nil
}
