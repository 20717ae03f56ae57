package terminal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/logging"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/executor"
	"github.com/anvilide/core/pkg/history"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const eventBuffer = 256

// Manager owns the terminal session registry.
type Manager struct {
	exec  *executor.Executor
	store history.Store
	shell string

	mu       sync.Mutex
	sessions map[string]*Session

	logger *logrus.Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore attaches the shared command history store. Without it,
// commands are only remembered in each session's in-memory history.
func WithStore(s history.Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithShell overrides the shell used for non-built-in commands.
func WithShell(shell string) Option {
	return func(m *Manager) { m.shell = shell }
}

// WithExecutor substitutes the process executor, for tests.
func WithExecutor(e *executor.Executor) Option {
	return func(m *Manager) { m.exec = e }
}

// NewManager returns an empty session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		exec:     executor.New(),
		shell:    "/bin/sh",
		sessions: make(map[string]*Session),
		logger:   logging.NewLogger("terminal"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a session rooted at cwd. An empty cwd falls back to the
// process working directory.
func (m *Manager) Create(cwd string) (*Session, error) {
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "resolve working directory")
		}
	}
	st, err := os.Stat(cwd)
	if err != nil || !st.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "working directory does not exist: "+cwd)
	}

	now := time.Now()
	s := &Session{
		id:           "terminal_" + uuid.NewString(),
		cwd:          cwd,
		env:          make(map[string]string),
		createdAt:    now,
		lastActivity: now,
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.logger.WithFields(logrus.Fields{"session": s.id, "cwd": cwd}).Debug("Created terminal session")
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	return s, nil
}

// Close kills any live foreground process and removes the session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return errors.SessionNotFound(id)
	}

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc != nil {
		proc.Kill()
	}
	m.logger.WithField("session", id).Debug("Closed terminal session")
	return nil
}

// List snapshots all sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.Unlock()
	sortInfos(infos)
	return infos
}

// Info returns one session's snapshot.
func (m *Manager) Info(id string) (Info, error) {
	s, err := m.Get(id)
	if err != nil {
		return Info{}, err
	}
	return s.Info(), nil
}

// CleanupIdle closes sessions whose last activity is older than maxIdle
// and returns their ids. Sessions with a live process are never reaped.
func (m *Manager) CleanupIdle(maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		info := s.Info()
		if !info.Busy && info.LastActivity.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		_ = m.Close(id)
	}
	if len(stale) > 0 {
		m.logger.WithField("count", len(stale)).Info("Reaped idle terminal sessions")
	}
	return stale
}

// Stop kills the session's foreground process, if any. Stopping an idle
// session is a no-op.
func (m *Manager) Stop(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc != nil {
		proc.Kill()
	}
	return nil
}

// Execute runs one command in the session and returns its event stream.
// The channel closes when the command finishes. A session with a live
// foreground process rejects new commands instead of queueing them.
func (m *Manager) Execute(ctx context.Context, id, command string) (<-chan classify.Event, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty command")
	}

	s.mu.Lock()
	if s.proc != nil {
		s.mu.Unlock()
		return nil, errors.SessionBusy(id)
	}
	s.mu.Unlock()
	s.touch()

	// Built-ins are not recorded; history holds shell commands only.
	if events, handled := m.runBuiltin(s, trimmed); handled {
		return events, nil
	}

	s.mu.Lock()
	s.history = append(s.history, trimmed)
	s.mu.Unlock()

	if m.store != nil {
		if _, err := m.store.Append(ctx, trimmed); err != nil {
			m.logger.WithError(err).Warn("History store append failed")
		}
	}
	return m.spawn(ctx, s, trimmed)
}

// runBuiltin intercepts clear, cd and help. Built-ins never spawn a
// process.
func (m *Manager) runBuiltin(s *Session, command string) (<-chan classify.Event, bool) {
	events := make(chan classify.Event, eventBuffer)

	switch {
	case command == "clear":
		events <- classify.Event{Kind: classify.KindClear, Timestamp: time.Now()}
		close(events)
		return events, true

	case command == "cd" || strings.HasPrefix(command, "cd "):
		dir := strings.TrimSpace(strings.TrimPrefix(command, "cd"))
		m.changeDir(s, dir, events)
		close(events)
		return events, true

	case command == "help":
		for _, line := range []string{
			"Built-in commands:",
			"  clear        clear the terminal",
			"  cd <dir>     change the working directory",
			"  help         show this message",
			"Everything else runs through " + m.shell + ".",
		} {
			events <- classify.Event{Kind: classify.KindInfo, Message: line, Timestamp: time.Now()}
		}
		close(events)
		return events, true
	}

	return nil, false
}

// changeDir resolves and applies cd. On failure the working directory is
// left untouched.
func (m *Manager) changeDir(s *Session, dir string, events chan<- classify.Event) {
	s.mu.Lock()
	cwd := s.cwd
	s.mu.Unlock()

	var target string
	switch {
	case dir == "" || dir == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			events <- classify.Event{Kind: classify.KindError, Message: "cd: cannot resolve home directory", Timestamp: time.Now()}
			return
		}
		target = home
	case filepath.IsAbs(dir):
		target = dir
	default:
		target = filepath.Join(cwd, dir)
	}
	target = filepath.Clean(target)

	st, err := os.Stat(target)
	if err != nil || !st.IsDir() {
		events <- classify.Event{
			Kind:      classify.KindError,
			Message:   "cd: " + dir + ": No such file or directory",
			Timestamp: time.Now(),
		}
		s.mu.Lock()
		s.lastExit = 1
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.cwd = target
	s.lastExit = 0
	s.mu.Unlock()
	events <- classify.Event{Kind: classify.KindSuccess, Message: target, Timestamp: time.Now()}
}

// spawn runs a command through the shell and classifies its output with
// the generic shell rule table.
func (m *Manager) spawn(ctx context.Context, s *Session, command string) (<-chan classify.Event, error) {
	s.mu.Lock()
	cwd := s.cwd
	env := make(map[string]string, len(s.env))
	for k, v := range s.env {
		env[k] = v
	}
	s.mu.Unlock()

	proc, err := m.exec.Spawn(ctx, executor.Spec{
		Dir:  cwd,
		Env:  env,
		Argv: []string{m.shell, "-c", command},
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.proc != nil {
		// Lost the race with a concurrent Execute on the same session.
		s.mu.Unlock()
		proc.Kill()
		return nil, errors.SessionBusy(s.id)
	}
	s.proc = proc
	s.mu.Unlock()

	events := make(chan classify.Event, eventBuffer)
	go func() {
		defer close(events)
		for line := range proc.Lines() {
			events <- classify.Classify(classify.FamilyShell, line)
		}
		res := proc.Wait()

		s.mu.Lock()
		s.proc = nil
		s.lastExit = res.ExitCode
		s.lastActivity = time.Now()
		s.mu.Unlock()

		m.logger.WithFields(logrus.Fields{
			"session":  s.id,
			"exitCode": res.ExitCode,
			"duration": res.Duration,
		}).Debug("Command finished")
	}()
	return events, nil
}

// SaveHistory writes the session history to a file, one command per line.
func (m *Manager) SaveHistory(id, path string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	data := strings.Join(s.History(), "\n")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "write history file")
	}
	return nil
}

// LoadHistory replaces the session history with the file's contents.
func (m *Manager) LoadHistory(id, path string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "read history file")
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	s.mu.Lock()
	s.history = lines
	s.mu.Unlock()
	return nil
}

// Bookmark saves a command as a favorite in the shared store.
func (m *Manager) Bookmark(ctx context.Context, command, description string, tags []string) (*history.Entry, error) {
	if m.store == nil {
		return nil, errors.New(errors.ErrCodeStoreUnavailable, "no history store configured")
	}
	return m.store.Bookmark(ctx, command, description, tags)
}

// Bookmarks lists the favorites from the shared store.
func (m *Manager) Bookmarks(ctx context.Context) ([]history.Entry, error) {
	if m.store == nil {
		return nil, errors.New(errors.ErrCodeStoreUnavailable, "no history store configured")
	}
	return m.store.Bookmarks(ctx)
}
