// Package terminal multiplexes interactive command sessions. Each session
// owns a working directory, environment overrides and an append-only
// command history; at most one foreground process runs per session. The
// built-ins clear, cd and help are intercepted before anything is spawned.
package terminal

import (
	"sort"
	"sync"
	"time"

	"github.com/anvilide/core/pkg/executor"
)

// Session is one interactive terminal. All mutation goes through the
// Manager; direct reads are safe for concurrent use.
type Session struct {
	id string

	mu           sync.Mutex
	cwd          string
	env          map[string]string
	history      []string
	proc         *executor.Process
	lastExit     int
	createdAt    time.Time
	lastActivity time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Cwd returns the current working directory.
func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// History returns a snapshot of the command history, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// LastExit returns the exit code of the most recent foreground process.
func (s *Session) LastExit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExit
}

// Busy reports whether a foreground process is live.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// SetEnv sets an environment override for subsequent commands.
func (s *Session) SetEnv(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[name] = value
}

// Env returns a snapshot of the session's environment overrides.
func (s *Session) Env() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.env))
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Info is a session snapshot for listings.
type Info struct {
	ID           string    `json:"id"`
	Cwd          string    `json:"cwd"`
	HistorySize  int       `json:"historySize"`
	Busy         bool      `json:"busy"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Info captures the current session state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.id,
		Cwd:          s.cwd,
		HistorySize:  len(s.history),
		Busy:         s.proc != nil,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}

// Navigate resolves history recall as a pure function: history is oldest
// first, index len(history) means the fresh input line, and delta moves
// through it (-1 toward older, +1 toward newer). The returned index is
// clamped; recalling from the fresh line returns the entry text.
func Navigate(history []string, index, delta int) (string, int) {
	next := index + delta
	if next < 0 {
		next = 0
	}
	if next > len(history) {
		next = len(history)
	}
	if next == len(history) {
		return "", next
	}
	return history[next], next
}

// sortInfos orders session listings by creation time.
func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
}
