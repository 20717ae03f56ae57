package daemon

import (
	"context"

	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/project"
	"github.com/anvilide/core/pkg/terminal"
)

// LocalClient implements Client with direct library calls, used when the
// daemon is not running. Behavior matches the daemon API; sessions live
// only as long as the process.
type LocalClient struct {
	builds    *build.Dispatcher
	terminals *terminal.Manager
	prober    *project.Prober
}

// NewLocalClient creates a client that runs everything in-process.
func NewLocalClient(opts ...LocalOption) *LocalClient {
	c := &LocalClient{
		builds:    build.NewDispatcher(),
		terminals: terminal.NewManager(),
		prober:    project.NewProber(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LocalOption configures a LocalClient.
type LocalOption func(*LocalClient)

// WithDispatcher substitutes the build dispatcher.
func WithDispatcher(d *build.Dispatcher) LocalOption {
	return func(c *LocalClient) { c.builds = d }
}

// WithTerminalManager substitutes the terminal manager.
func WithTerminalManager(m *terminal.Manager) LocalOption {
	return func(c *LocalClient) { c.terminals = m }
}

// Status probes the installed toolchains directly.
func (c *LocalClient) Status(ctx context.Context) (project.ToolchainStatus, project.Health, error) {
	return c.prober.Status(), c.prober.CheckHealth(), nil
}

// InspectProject reports the detected project layout at dir.
func (c *LocalClient) InspectProject(ctx context.Context, dir string) (*project.Info, error) {
	return project.Inspect(dir)
}

// StartBuild creates and starts a session in-process.
func (c *LocalClient) StartBuild(ctx context.Context, spec BuildSpec) (build.Snapshot, <-chan Frame, error) {
	sess := c.builds.NewSession()
	err := c.builds.Start(ctx, sess.ID(), build.Request{
		ProjectDir: spec.ProjectDir,
		Backend:    backend.Type(spec.Backend),
		Operation:  backend.Operation(spec.Operation),
		Params: backend.Params{
			Variant:    spec.Variant,
			Dependency: spec.Dependency,
			Version:    spec.Version,
			Target:     spec.Target,
		},
	})
	if err != nil {
		_ = c.builds.Remove(sess.ID())
		return build.Snapshot{}, nil, err
	}

	ch := make(chan Frame, 64)
	go func() {
		defer close(ch)
		for ev := range sess.Events() {
			ev := ev
			ch <- Frame{Type: "event", Event: &ev}
		}
		ch <- Frame{Type: "result", Result: sess.Result()}
	}()
	return sess.Snapshot(), ch, nil
}

// ListBuilds returns snapshots of all known build sessions.
func (c *LocalClient) ListBuilds(ctx context.Context) ([]build.Snapshot, error) {
	return c.builds.List(), nil
}

// CancelBuild kills the session's live process.
func (c *LocalClient) CancelBuild(ctx context.Context, id string) error {
	return c.builds.Cancel(id)
}

// CreateTerminal opens an interactive session rooted at cwd.
func (c *LocalClient) CreateTerminal(ctx context.Context, cwd string) (terminal.Info, error) {
	sess, err := c.terminals.Create(cwd)
	if err != nil {
		return terminal.Info{}, err
	}
	return sess.Info(), nil
}

// ListTerminals returns all open terminal sessions.
func (c *LocalClient) ListTerminals(ctx context.Context) ([]terminal.Info, error) {
	return c.terminals.List(), nil
}

// CloseTerminal discards the session.
func (c *LocalClient) CloseTerminal(ctx context.Context, id string) error {
	return c.terminals.Close(id)
}

// Exec runs one command in a terminal session.
func (c *LocalClient) Exec(ctx context.Context, id, command string) (<-chan Frame, error) {
	sess, err := c.terminals.Get(id)
	if err != nil {
		return nil, err
	}
	events, err := c.terminals.Execute(ctx, id, command)
	if err != nil {
		return nil, err
	}

	ch := make(chan Frame, 64)
	go func() {
		defer close(ch)
		for ev := range events {
			ev := ev
			ch <- Frame{Type: "event", Event: &ev}
		}
		ch <- Frame{Type: "exit", ExitCode: sess.LastExit()}
	}()
	return ch, nil
}

// IsRunning always returns true for the local client.
func (c *LocalClient) IsRunning() bool {
	return true
}

// Close is a no-op for the local client.
func (c *LocalClient) Close() error {
	return nil
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
