// Package build orchestrates toolchain builds. A dispatcher owns the
// session registry; each session runs at most one live process, streams
// classified events on a buffered channel, and ends in exactly one of the
// SUCCEEDED, FAILED or CANCELLED states.
package build

import (
	"sync"
	"time"

	"github.com/anvilide/core/pkg/artifacts"
	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/executor"
)

// Status is the lifecycle state of a build session.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Request describes one build operation.
type Request struct {
	ProjectDir string
	Backend    backend.Type
	Operation  backend.Operation
	Params     backend.Params
}

// Result is the final outcome of a session run.
type Result struct {
	Status    Status                `json:"status"`
	Duration  time.Duration         `json:"duration"`
	ExitCode  int                   `json:"exitCode"`
	Artifacts []artifacts.Artifact  `json:"artifacts,omitempty"`
	Errors    []classify.Diagnostic `json:"errors,omitempty"`
	Warnings  []classify.Diagnostic `json:"warnings,omitempty"`
}

// Session is one build lifecycle. All mutation happens through the
// dispatcher; consumers read Events until the channel closes, then Result.
type Session struct {
	id string

	mu        sync.Mutex
	status    Status
	cancelled bool
	proc      *executor.Process
	result    *Result
	startedAt time.Time
	request   *Request

	emitMu sync.Mutex
	closed bool
	events chan classify.Event
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events is the session's classified output stream. The channel closes
// when the session reaches a terminal state.
func (s *Session) Events() <-chan classify.Event {
	return s.events
}

// Result returns the outcome, or nil while the session has not finished.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Request returns the build request of the current or last run.
func (s *Session) Request() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// emit delivers one event unless the stream is already closed. Sends from
// the run loop and the artifact watcher race with closeEvents, so both go
// through here.
func (s *Session) emit(ev classify.Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// emitAsync is for the artifact watcher, which runs outside the session
// goroutine. It drops instead of blocking; the post-build scan is the
// authoritative artifact list.
func (s *Session) emitAsync(ev classify.Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Session) closeEvents() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Snapshot is a point-in-time view of a session for listings and the
// daemon API.
type Snapshot struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Backend   string    `json:"backend,omitempty"`
	Operation string    `json:"operation,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Result    *Result   `json:"result,omitempty"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		Status:    s.status,
		StartedAt: s.startedAt,
		Result:    s.result,
	}
	if s.request != nil {
		snap.Backend = string(s.request.Backend)
		snap.Operation = string(s.request.Operation)
	}
	return snap
}
