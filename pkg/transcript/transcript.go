// Package transcript persists classified session output as plain text,
// one "<KIND>: <message>" line per event, and streams transcripts back
// while they are still being written.
package transcript

import (
	"bufio"
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/classify"
	"github.com/hpcloud/tail"
)

// Writer appends events to a session transcript file.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewWriter creates a transcript file named after the session in dir,
// creating dir if needed.
func NewWriter(dir, sessionID string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create transcript directory")
	}
	name := fmt.Sprintf("%s-%s.log", sessionID, time.Now().Format("2006-01-02-150405"))
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create transcript file")
	}
	return &Writer{f: f, path: path}, nil
}

// Path returns the transcript file location.
func (w *Writer) Path() string { return w.path }

// Record appends one event. Multi-line messages are flattened; the
// transcript format is strictly one event per line.
func (w *Writer) Record(ev classify.Event) error {
	msg := strings.ReplaceAll(ev.Message, "\n", " ")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return errors.New(errors.ErrCodeInternal, "transcript already closed")
	}
	if _, err := fmt.Fprintf(w.f, "%s: %s\n", ev.Kind, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "write transcript line")
	}
	return nil
}

// Close flushes and closes the transcript.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// ParseLine decodes one transcript line back into an event. Lines without
// a kind prefix are treated as INFO, matching the classifier default.
func ParseLine(line string) classify.Event {
	kind, msg, found := strings.Cut(line, ": ")
	if found {
		switch classify.Kind(kind) {
		case classify.KindInfo, classify.KindError, classify.KindWarning,
			classify.KindSuccess, classify.KindTask, classify.KindArtifact, classify.KindClear:
			return classify.Event{Kind: classify.Kind(kind), Message: msg}
		}
	}
	return classify.Event{Kind: classify.KindInfo, Message: line}
}

// Read loads a whole transcript.
func Read(path string) ([]classify.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "open transcript")
	}
	defer f.Close()

	var events []classify.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		events = append(events, ParseLine(scanner.Text()))
	}
	return events, scanner.Err()
}

// Follow streams a transcript from the beginning and keeps delivering new
// events as the session writes them, until the context is cancelled.
func Follow(ctx context.Context, path string) (<-chan classify.Event, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow: true,
		ReOpen: true,
		// Always start from the beginning to replay the whole session.
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:   stdlog.New(io.Discard, "", 0), // Suppress tail library debug output
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "tail transcript")
	}

	out := make(chan classify.Event, 64)
	go func() {
		defer close(out)
		defer t.Stop()
		for {
			select {
			case line, ok := <-t.Lines:
				if !ok {
					return
				}
				if line.Err != nil {
					continue
				}
				select {
				case out <- ParseLine(line.Text):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
