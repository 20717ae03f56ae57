package main

import (
	"os"

	"github.com/anvilide/core/cli"
	"github.com/anvilide/core/cmd"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"anvil",
		"Build orchestration and terminal sessions for mobile Rust projects",
	)

	// Add subcommands
	rootCmd.AddCommand(cmd.NewBuildCmd())
	rootCmd.AddCommand(cmd.NewCleanCmd())
	rootCmd.AddCommand(cmd.NewTestCmd())
	rootCmd.AddCommand(cmd.NewDepCmd())
	rootCmd.AddCommand(cmd.NewTasksCmd())
	rootCmd.AddCommand(cmd.NewProjectCmd())
	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewTerminalCmd())
	rootCmd.AddCommand(cmd.NewAnvildCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewPathsCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	cli.ApplyStyledHelpRecursive(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
