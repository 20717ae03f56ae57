package classify

import (
	"regexp"
	"strconv"
)

// Diagnostic is a compiler message with source location and optional code,
// extracted from rustc, kotlinc or javac style lines.
type Diagnostic struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Code     string `json:"code,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

var (
	// file:line:col: error: message (clang, javac with -Xdiags, kotlinc)
	locatedRe = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(error|warning):\s*(.*)$`)
	// error[E0308]: message / warning: message (rustc headline)
	rustcRe = regexp.MustCompile(`^\s*(error|warning)(?:\[(\w+)\])?:\s*(.*)$`)
	// --> src/main.rs:4:5 (rustc location line)
	rustcLocRe = regexp.MustCompile(`^\s*-->\s*(.+?):(\d+):(\d+)\s*$`)
)

// ParseDiagnostic extracts structured data from a single compiler line.
// Returns nil when the line carries no recognizable diagnostic shape.
func ParseDiagnostic(text string) *Diagnostic {
	if m := locatedRe.FindStringSubmatch(text); m != nil {
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		return &Diagnostic{
			File:     m[1],
			Line:     line,
			Column:   col,
			Severity: m[4],
			Message:  m[5],
		}
	}
	if m := rustcRe.FindStringSubmatch(text); m != nil {
		return &Diagnostic{
			Severity: m[1],
			Code:     m[2],
			Message:  m[3],
		}
	}
	return nil
}

// ParseLocation recognizes rustc's "--> file:line:col" pointer lines so a
// caller can attach the location to the preceding headline diagnostic.
func ParseLocation(text string) (file string, line, column int, ok bool) {
	m := rustcLocRe.FindStringSubmatch(text)
	if m == nil {
		return "", 0, 0, false
	}
	line, _ = strconv.Atoi(m[2])
	column, _ = strconv.Atoi(m[3])
	return m[1], line, column, true
}

// Collector accumulates diagnostics across a build, stitching rustc
// headline+location pairs together and splitting errors from warnings.
type Collector struct {
	Errors   []Diagnostic
	Warnings []Diagnostic

	pending *Diagnostic
}

// Observe feeds one classified event into the collector.
func (c *Collector) Observe(ev Event) {
	if c.pending != nil {
		if file, line, col, ok := ParseLocation(ev.Message); ok {
			c.pending.File = file
			c.pending.Line = line
			c.pending.Column = col
		}
		c.flush()
	}
	if ev.Diag == nil {
		return
	}
	d := *ev.Diag
	if d.File == "" {
		// Hold rustc headlines for one line in case a --> follows.
		c.pending = &d
		return
	}
	c.record(d)
}

// Finish flushes any held headline and returns the collected lists.
func (c *Collector) Finish() (errs, warns []Diagnostic) {
	c.flush()
	return c.Errors, c.Warnings
}

func (c *Collector) flush() {
	if c.pending == nil {
		return
	}
	c.record(*c.pending)
	c.pending = nil
}

func (c *Collector) record(d Diagnostic) {
	if d.Severity == "error" {
		c.Errors = append(c.Errors, d)
	} else {
		c.Warnings = append(c.Warnings, d)
	}
}
