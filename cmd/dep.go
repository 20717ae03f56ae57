package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/cli"
	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/daemon"
	"github.com/anvilide/core/pkg/gradlefile"
	"github.com/anvilide/core/pkg/project"
)

// NewDepCmd creates the `dep` command group.
func NewDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Add or remove project dependencies",
		Long: `Manage dependencies for the detected backend. Cargo dependencies go
through 'cargo add' and 'cargo remove'; gradle dependencies are edited
directly in the build file.

Examples:
  # Add a crate
  anvil dep add serde --version 1.0

  # Add a gradle coordinate
  anvil dep add androidx.core:core-ktx:1.12.0 --backend gradle

  # Remove a crate
  anvil dep remove serde`,
	}
	cmd.AddCommand(newDepAddCmd())
	cmd.AddCommand(newDepRemoveCmd())
	return cmd
}

func depBackend(cmd *cobra.Command) (string, backend.Type, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		dir = cwd
	}
	info, err := project.Inspect(dir)
	if err != nil {
		return "", "", err
	}
	backendFlag, _ := cmd.Flags().GetString("backend")
	t, err := project.ResolveType(info, backendFlag)
	if err != nil {
		return "", "", err
	}
	return dir, t, nil
}

// runCargoDepOp drives addDependency/removeDependency through the build
// pipeline so output classification and history behave like any build.
func runCargoDepOp(cmd *cobra.Command, dir string, op backend.Operation, name, version string) error {
	client := daemon.New()
	defer client.Close()

	_, frames, err := client.StartBuild(cmd.Context(), daemon.BuildSpec{
		ProjectDir: dir,
		Backend:    string(backend.TypeCargo),
		Operation:  string(op),
		Dependency: name,
		Version:    version,
	})
	if err != nil {
		return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
	}

	result := streamBuild(frames)
	if result == nil || result.Status != build.StatusSucceeded {
		return fmt.Errorf("dependency operation failed")
	}
	return nil
}

func newDepAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a dependency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, t, err := depBackend(cmd)
			if err != nil {
				return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
			}
			version, _ := cmd.Flags().GetString("version")

			switch t {
			case backend.TypeGradle:
				configuration, _ := cmd.Flags().GetString("configuration")
				path, err := gradlefile.Find(dir)
				if err != nil {
					return err
				}
				if err := gradlefile.Add(path, args[0], configuration); err != nil {
					return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
				}
				fmt.Printf("Added %s to %s\n", args[0], path)
				return nil
			default:
				// cargo handles its own manifest; hybrid dependencies are
				// crate dependencies.
				return runCargoDepOp(cmd, dir, backend.OpAddDependency, args[0], version)
			}
		},
	}
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().StringP("backend", "b", "", "Force a backend: gradle, cargo, hybrid")
	cmd.Flags().String("version", "", "Dependency version constraint")
	cmd.Flags().String("configuration", "", "Gradle configuration (default: implementation)")
	return cmd
}

func newDepRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, t, err := depBackend(cmd)
			if err != nil {
				return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
			}

			switch t {
			case backend.TypeGradle:
				path, err := gradlefile.Find(dir)
				if err != nil {
					return err
				}
				if err := gradlefile.Remove(path, args[0]); err != nil {
					return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
				}
				fmt.Printf("Removed %s from %s\n", args[0], path)
				return nil
			default:
				return runCargoDepOp(cmd, dir, backend.OpRemoveDependency, args[0], "")
			}
		},
	}
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().StringP("backend", "b", "", "Force a backend: gradle, cargo, hybrid")
	return cmd
}
