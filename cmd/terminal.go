package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/cli"
	"github.com/anvilide/core/pkg/daemon"
	"github.com/anvilide/core/pkg/history"
	"github.com/anvilide/core/pkg/paths"
)

// NewTerminalCmd creates the `terminal` command group.
func NewTerminalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "terminal",
		Aliases: []string{"term"},
		Short:   "Manage interactive terminal sessions",
		Long: `Create and drive terminal sessions. Sessions keep their own working
directory, environment and history; built-ins (cd, clear, help) are
handled without spawning a shell.

Examples:
  # Open a session and run a command in it
  anvil terminal new
  anvil terminal exec terminal_abc123 "cargo check"

  # Review frequently used commands
  anvil terminal history --limit 20`,
	}
	cmd.AddCommand(newTerminalNewCmd())
	cmd.AddCommand(newTerminalListCmd())
	cmd.AddCommand(newTerminalExecCmd())
	cmd.AddCommand(newTerminalCloseCmd())
	cmd.AddCommand(newTerminalHistoryCmd())
	return cmd
}

func newTerminalNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Open a new terminal session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, _ := cmd.Flags().GetString("cwd")

			client := daemon.New()
			defer client.Close()

			info, err := client.CreateTerminal(cmd.Context(), cwd)
			if err != nil {
				return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
			}
			fmt.Printf("%s\t%s\n", info.ID, info.Cwd)
			return nil
		},
	}
	cmd.Flags().String("cwd", "", "Initial working directory (default: current directory)")
	return cmd
}

func newTerminalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open terminal sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.New()
			defer client.Close()

			infos, err := client.ListTerminals(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No open sessions")
				return nil
			}
			for _, info := range infos {
				state := "idle"
				if info.Busy {
					state = "busy"
				}
				fmt.Printf("%s\t%s\t%s\n", info.ID, state, info.Cwd)
			}
			return nil
		},
	}
}

func newTerminalExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <session-id> <command...>",
		Short: "Run a command in a terminal session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.New()
			defer client.Close()

			command := strings.Join(args[1:], " ")
			frames, err := client.Exec(cmd.Context(), args[0], command)
			if err != nil {
				return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
			}

			exitCode := 0
			for frame := range frames {
				switch frame.Type {
				case "event":
					printEvent(frame.Event)
				case "exit":
					exitCode = frame.ExitCode
				case "error":
					return fmt.Errorf("%s", frame.Error)
				}
			}
			if exitCode != 0 {
				return fmt.Errorf("command exited %d", exitCode)
			}
			return nil
		},
	}
}

func newTerminalCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.New()
			defer client.Close()

			if err := client.CloseTerminal(cmd.Context(), args[0]); err != nil {
				return cli.NewErrorHandler(mustVerbose(cmd)).Handle(err)
			}
			fmt.Printf("Closed %s\n", args[0])
			return nil
		},
	}
}

func newTerminalHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the shared command history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewSQLiteStore(paths.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			query, _ := cmd.Flags().GetString("search")
			bookmarked, _ := cmd.Flags().GetBool("bookmarks")

			var entries []history.Entry
			switch {
			case bookmarked:
				entries, err = store.Bookmarks(cmd.Context())
			case query != "":
				entries, err = store.Search(cmd.Context(), query, limit)
			default:
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			for _, e := range entries {
				marker := " "
				if e.Favorite {
					marker = "*"
				}
				fmt.Printf("%s %4dx  %s\n", marker, e.UseCount, e.Command)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum entries to show")
	cmd.Flags().String("search", "", "Filter history by substring")
	cmd.Flags().Bool("bookmarks", false, "Show bookmarked commands only")
	return cmd
}
