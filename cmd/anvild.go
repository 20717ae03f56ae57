package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anvilide/core/config"
	"github.com/anvilide/core/internal/daemon/pidfile"
	"github.com/anvilide/core/internal/daemon/server"
	"github.com/anvilide/core/logging"
	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/daemon"
	"github.com/anvilide/core/pkg/history"
	"github.com/anvilide/core/pkg/paths"
	"github.com/anvilide/core/pkg/terminal"
)

// NewAnvildCmd returns the anvild daemon command with subcommands.
func NewAnvildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Anvil background daemon",
		Long:  "Long-lived daemon that owns build sessions and terminals for IDE frontends.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

// daemonSettings are the tunables resolved from anvil.yml.
type daemonSettings struct {
	idleTimeout   time.Duration
	transcriptDir string
	shell         string
	historyDB     string
}

// resolveSettings loads anvil.yml (walking up from cwd) and applies
// defaults for anything unset.
func resolveSettings() daemonSettings {
	s := daemonSettings{
		transcriptDir: paths.TranscriptDir(),
		historyDB:     paths.HistoryDBPath(),
	}

	cwd, err := os.Getwd()
	if err != nil {
		return s
	}
	cfg, err := config.LoadFrom(cwd)
	if err != nil || cfg == nil {
		return s
	}

	if cfg.Build != nil && cfg.Build.IdleTimeout != "" {
		if d, err := time.ParseDuration(cfg.Build.IdleTimeout); err == nil {
			s.idleTimeout = d
		}
	}
	if cfg.Terminal != nil {
		if cfg.Terminal.TranscriptDir != "" {
			if dir, err := paths.Expand(cfg.Terminal.TranscriptDir); err == nil {
				s.transcriptDir = dir
			}
		}
		if cfg.Terminal.Shell != "" {
			s.shell = cfg.Terminal.Shell
		}
		if cfg.Terminal.HistoryDB != "" {
			if db, err := paths.Expand(cfg.Terminal.HistoryDB); err == nil {
				s.historyDB = db
			}
		}
	}
	return s
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the anvil daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger("anvild")
			pidPath := paths.PidFilePath()
			sockPath := paths.SocketPath()

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("failed to create state directories: %w", err)
			}

			// 1. Acquire Lock
			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Build the session engines from config
			settings := resolveSettings()

			var buildOpts []build.Option
			if settings.idleTimeout > 0 {
				buildOpts = append(buildOpts, build.WithIdleTimeout(settings.idleTimeout))
			}
			if settings.transcriptDir != "" {
				buildOpts = append(buildOpts, build.WithTranscriptDir(settings.transcriptDir))
			}
			dispatcher := build.NewDispatcher(buildOpts...)

			var termOpts []terminal.Option
			if settings.shell != "" {
				termOpts = append(termOpts, terminal.WithShell(settings.shell))
			}
			if settings.historyDB != "" {
				if store, err := history.NewSQLiteStore(settings.historyDB); err == nil {
					defer store.Close()
					termOpts = append(termOpts, terminal.WithStore(store))
				} else {
					logger.WithError(err).Warn("History store unavailable")
				}
			}
			terminals := terminal.NewManager(termOpts...)

			// 3. Setup Server
			srv := server.New(logger, dispatcher, terminals)
			srv.SetRunningConfig(&server.RunningConfig{
				IdleTimeout:   settings.idleTimeout,
				TranscriptDir: settings.transcriptDir,
				Shell:         settings.shell,
				StartedAt:     time.Now(),
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// 4. Watch for config changes
			cwd, _ := os.Getwd()
			watcher, err := daemon.NewConfigWatcher(cwd, 250, func(file string) {
				logger.WithField("file", file).Info("Configuration changed; restart to apply")
			})
			if err != nil {
				logger.WithError(err).Warn("Config watcher unavailable")
			} else {
				defer watcher.Close()
				go watcher.Start(ctx)
			}

			// 5. Handle Signals
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()

				// Create shutdown context with timeout
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}

				// Explicitly release pidfile before exit in signal handler
				_ = pidfile.Release(pidPath)
				os.Exit(0)
			}()

			// 6. Start Server (Blocking)
			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			if err := srv.ListenAndServe(sockPath); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			// Send SIGTERM
			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Printf("Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()
			running, pid, err := pidfile.IsRunning(pidPath)

			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			if running {
				fmt.Printf("Running (PID: %d)\nSocket: %s\n", pid, paths.SocketPath())
			} else {
				fmt.Println("Stopped")
				os.Exit(1) // Return non-zero for stopped state (useful for scripts)
			}
			return nil
		},
	}
}
