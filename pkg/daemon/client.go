// Package daemon provides a client interface for interacting with the
// anvil daemon (anvild). It implements a transparent fallback pattern:
// if the daemon is running, use its socket API; if not, fall back to
// direct library calls in-process.
package daemon

import (
	"context"

	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/project"
	"github.com/anvilide/core/pkg/terminal"
)

// BuildSpec describes one build request submitted through a Client.
type BuildSpec struct {
	ProjectDir string `json:"project_dir"`
	Backend    string `json:"backend"`
	Operation  string `json:"operation"`
	Variant    string `json:"variant,omitempty"`
	Dependency string `json:"dependency,omitempty"`
	Version    string `json:"version,omitempty"`
	Target     string `json:"target,omitempty"`
}

// Frame is one message on a streamed build or exec channel.
type Frame struct {
	Type     string          `json:"type"` // event, result, exit, error
	Event    *classify.Event `json:"event,omitempty"`
	Result   *build.Result   `json:"result,omitempty"`
	ExitCode int             `json:"exit_code,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Client defines the interface for driving builds and terminals.
// Both RemoteClient (socket API) and LocalClient (direct calls)
// implement this interface.
type Client interface {
	// Status returns toolchain versions and health probes.
	Status(ctx context.Context) (project.ToolchainStatus, project.Health, error)

	// InspectProject reports the detected backend type and manifest
	// summary of the project at dir.
	InspectProject(ctx context.Context, dir string) (*project.Info, error)

	// StartBuild creates a build session and starts it. Consume the
	// returned frames until the channel closes; the last frame carries
	// the result.
	StartBuild(ctx context.Context, spec BuildSpec) (build.Snapshot, <-chan Frame, error)

	// ListBuilds returns snapshots of all known build sessions.
	ListBuilds(ctx context.Context) ([]build.Snapshot, error)

	// CancelBuild kills the session's live process.
	CancelBuild(ctx context.Context, id string) error

	// CreateTerminal opens an interactive session rooted at cwd.
	CreateTerminal(ctx context.Context, cwd string) (terminal.Info, error)

	// ListTerminals returns all open terminal sessions.
	ListTerminals(ctx context.Context) ([]terminal.Info, error)

	// CloseTerminal kills any foreground process and discards the session.
	CloseTerminal(ctx context.Context, id string) error

	// Exec runs one command in a terminal session and streams the
	// classified output. The final frame reports the exit code.
	Exec(ctx context.Context, id, command string) (<-chan Frame, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}
