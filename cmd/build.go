// Package cmd holds the anvil CLI subcommands.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/cli"
	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/daemon"
	"github.com/anvilide/core/pkg/paths"
	"github.com/anvilide/core/pkg/project"
)

// resolveBuildSpec turns command flags into a BuildSpec, detecting the
// backend from the project layout when none is forced.
func resolveBuildSpec(cmd *cobra.Command, operation string) (daemon.BuildSpec, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return daemon.BuildSpec{}, err
		}
		dir = cwd
	} else {
		expanded, err := paths.Expand(dir)
		if err != nil {
			return daemon.BuildSpec{}, err
		}
		dir = expanded
	}

	info, err := project.Inspect(dir)
	if err != nil {
		return daemon.BuildSpec{}, err
	}

	backendFlag, _ := cmd.Flags().GetString("backend")
	backendType, err := project.ResolveType(info, backendFlag)
	if err != nil {
		return daemon.BuildSpec{}, err
	}

	variant, _ := cmd.Flags().GetString("variant")
	if release, _ := cmd.Flags().GetBool("release"); release && variant == "" {
		variant = "release"
	}
	target, _ := cmd.Flags().GetString("target")

	spec := daemon.BuildSpec{
		ProjectDir: dir,
		Backend:    string(backendType),
		Operation:  operation,
		Variant:    variant,
		Target:     target,
	}
	if target != "" && operation == string(backend.OpBuild) {
		spec.Operation = string(backend.OpCrossTargetBuild)
	}
	return spec, nil
}

// addBuildFlags registers the flags shared by build, clean and test.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().StringP("backend", "b", "", "Force a backend: gradle, cargo, hybrid, native-driver")
	cmd.Flags().String("variant", "", "Build variant (e.g. debug, release, or a gradle task suffix)")
	cmd.Flags().Bool("release", false, "Shorthand for --variant release")
	cmd.Flags().StringP("target", "t", "", "Cross-compilation target triple")
}

// streamBuild consumes frames from a running build, printing classified
// lines as they arrive. It returns the final result.
func streamBuild(frames <-chan daemon.Frame) *build.Result {
	for frame := range frames {
		switch frame.Type {
		case "event":
			printEvent(frame.Event)
		case "result":
			return frame.Result
		}
	}
	return nil
}

func printEvent(ev *classify.Event) {
	if ev == nil {
		return
	}
	switch ev.Kind {
	case classify.KindError:
		fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
	case classify.KindWarning:
		fmt.Fprintf(os.Stderr, "warning: %s\n", ev.Message)
	case classify.KindTask:
		fmt.Printf("→ %s\n", ev.Message)
	case classify.KindArtifact:
		fmt.Printf("artifact: %s\n", ev.Artifact)
	case classify.KindSuccess:
		fmt.Println(ev.Message)
	default:
		fmt.Println(ev.Message)
	}
}

// runOperation is the shared driver for build, clean and test.
func runOperation(cmd *cobra.Command, operation string) error {
	handler := cli.NewErrorHandler(mustVerbose(cmd))

	spec, err := resolveBuildSpec(cmd, operation)
	if err != nil {
		return handler.Handle(err)
	}

	client := daemon.New()
	defer client.Close()

	snap, frames, err := client.StartBuild(cmd.Context(), spec)
	if err != nil {
		return handler.Handle(err)
	}
	fmt.Printf("Started %s (%s, %s)\n", snap.ID, spec.Backend, spec.Operation)

	result := streamBuild(frames)
	if result == nil {
		return fmt.Errorf("build stream ended without a result")
	}

	fmt.Printf("\n%s in %s\n", result.Status, result.Duration.Round(time.Millisecond))
	for _, a := range result.Artifacts {
		fmt.Printf("  %s (%d bytes)\n", a.Path, a.Size)
	}
	if result.Status != build.StatusSucceeded {
		return fmt.Errorf("build finished %s", result.Status)
	}
	return nil
}

func mustVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}

// NewBuildCmd creates the `build` command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project with its detected or forced backend",
		Long: `Build the project in the current directory. The backend is detected
from the project layout: Cargo.toml selects cargo, a gradle build file
selects gradle, and both together select the hybrid pipeline.

Examples:
  # Debug build with the detected backend
  anvil build

  # Release build
  anvil build --release

  # Cross-compile for an Android target
  anvil build --target aarch64-linux-android

  # Force the gradle stage only of a hybrid project
  anvil build --backend gradle`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "build")
		},
	}
	addBuildFlags(cmd)

	cmd.AddCommand(newBuildListCmd())
	cmd.AddCommand(newBuildCancelCmd())
	return cmd
}

// NewCleanCmd creates the `clean` command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "clean")
		},
	}
	addBuildFlags(cmd)
	return cmd
}

// NewTestCmd creates the `test` command.
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the project's test suites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "test")
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func newBuildListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List build sessions known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.New()
			defer client.Close()

			snaps, err := client.ListBuilds(cmd.Context())
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No build sessions")
				return nil
			}
			for _, s := range snaps {
				fmt.Printf("%s  %-10s %s %s\n", s.ID, s.Status, s.Backend, s.Operation)
			}
			return nil
		},
	}
}

func newBuildCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a running build session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.New()
			defer client.Close()

			if err := client.CancelBuild(cmd.Context(), args[0]); err != nil {
				return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
			}
			fmt.Printf("Cancelled %s\n", args[0])
			return nil
		},
	}
}
