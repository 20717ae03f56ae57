// Package classify turns raw toolchain output lines into typed events.
//
// Classification is a pure function of the line text, the stream it arrived
// on, and the backend family that produced it. Each family has an ordered
// rule table; the first matching rule wins and unmatched lines fall through
// to INFO. Adding a backend means adding a table, never touching shared
// logic.
package classify

import "time"

// Kind is the semantic category of one output event.
type Kind string

const (
	KindInfo     Kind = "INFO"
	KindError    Kind = "ERROR"
	KindWarning  Kind = "WARNING"
	KindSuccess  Kind = "SUCCESS"
	KindTask     Kind = "TASK"
	KindArtifact Kind = "ARTIFACT"

	// KindClear is emitted by the terminal manager for the clear built-in;
	// no rule table produces it.
	KindClear Kind = "CLEAR"
)

// Family selects which rule table classifies a line. Different toolchains
// mark failure differently (error[E...] vs FAILURE: vs plain stderr), so
// the executor's consumer must say who produced the output.
type Family string

const (
	FamilyGradle Family = "gradle"
	FamilyCargo  Family = "cargo"
	FamilyNative Family = "native"
	FamilyShell  Family = "shell"
)

// Event is one classified line of output.
type Event struct {
	Kind      Kind        `json:"kind"`
	Message   string      `json:"message"`
	Source    string      `json:"source,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Artifact  string      `json:"artifact,omitempty"`
	Diag      *Diagnostic `json:"diagnostic,omitempty"`
}
