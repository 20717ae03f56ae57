package terminal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/history"
)

func collect(t *testing.T, events <-chan classify.Event) []classify.Event {
	t.Helper()
	var out []classify.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func newSession(t *testing.T, m *Manager) *Session {
	t.Helper()
	s, err := m.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return s
}

func TestExecuteShellCommand(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "echo hello")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	got := collect(t, events)
	if len(got) != 1 || got[0].Kind != classify.KindInfo || got[0].Message != "hello" {
		t.Errorf("events = %+v", got)
	}
	if s.LastExit() != 0 {
		t.Errorf("LastExit() = %d", s.LastExit())
	}
}

func TestStderrLeansError(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "echo broken >&2; exit 2")
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, events)
	if len(got) != 1 || got[0].Kind != classify.KindError {
		t.Errorf("events = %+v", got)
	}
	if s.LastExit() != 2 {
		t.Errorf("LastExit() = %d, want 2", s.LastExit())
	}
}

func TestClearNeverSpawns(t *testing.T) {
	m := NewManager(WithShell("/nonexistent/shell"))
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "clear")
	if err != nil {
		t.Fatalf("Execute(clear) error = %v", err)
	}
	got := collect(t, events)
	if len(got) != 1 || got[0].Kind != classify.KindClear {
		t.Errorf("events = %+v, want single CLEAR", got)
	}
}

func TestCdChangesCwdForNextCommand(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	sub := filepath.Join(s.Cwd(), "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	events, err := m.Execute(context.Background(), s.ID(), "cd sub")
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, events)
	if len(got) != 1 || got[0].Kind != classify.KindSuccess {
		t.Errorf("cd events = %+v, want single SUCCESS", got)
	}
	if s.Cwd() != sub {
		t.Errorf("Cwd() = %q, want %q", s.Cwd(), sub)
	}

	events, err = m.Execute(context.Background(), s.ID(), "pwd")
	if err != nil {
		t.Fatal(err)
	}
	got = collect(t, events)
	if len(got) != 1 || got[0].Message != sub {
		t.Errorf("pwd = %+v, want %q", got, sub)
	}
}

func TestCdFailureLeavesCwd(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)
	before := s.Cwd()

	events, err := m.Execute(context.Background(), s.ID(), "cd missing-dir")
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, events)
	if len(got) != 1 || got[0].Kind != classify.KindError {
		t.Errorf("events = %+v, want single ERROR", got)
	}
	if s.Cwd() != before {
		t.Errorf("Cwd() changed to %q", s.Cwd())
	}
	if s.LastExit() != 1 {
		t.Errorf("LastExit() = %d, want 1", s.LastExit())
	}
}

func TestHelpListsBuiltins(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "help")
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, events)
	if len(got) == 0 {
		t.Fatal("no help output")
	}
	for _, ev := range got {
		if ev.Kind != classify.KindInfo {
			t.Errorf("help event kind = %v", ev.Kind)
		}
	}
}

func TestSingleForegroundProcess(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "sleep 30")
	if err != nil {
		t.Fatal(err)
	}
	// Busy state is set before Execute returns.
	if _, err := m.Execute(context.Background(), s.ID(), "echo nope"); errors.GetCode(err) != errors.ErrCodeSessionBusy {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeSessionBusy)
	}

	if err := m.Stop(s.ID()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	collect(t, events)
	if s.Busy() {
		t.Error("Busy() = true after stop")
	}

	// The session accepts commands again.
	events, err = m.Execute(context.Background(), s.ID(), "echo again")
	if err != nil {
		t.Fatalf("Execute() after stop error = %v", err)
	}
	collect(t, events)
}

func TestHistoryAppendOnly(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	for _, cmd := range []string{"echo one", "clear", "cd .", "echo two", "echo one"} {
		events, err := m.Execute(context.Background(), s.ID(), cmd)
		if err != nil {
			t.Fatal(err)
		}
		collect(t, events)
	}

	// Built-ins never enter history; repeats are kept in order.
	h := s.History()
	want := []string{"echo one", "echo two", "echo one"}
	if len(h) != len(want) {
		t.Fatalf("history = %v", h)
	}
	for i := range want {
		if h[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, h[i], want[i])
		}
	}
}

func TestNavigate(t *testing.T) {
	h := []string{"a", "b", "c"}

	text, idx := Navigate(h, len(h), -1)
	if text != "c" || idx != 2 {
		t.Errorf("up from fresh = %q, %d", text, idx)
	}
	text, idx = Navigate(h, 0, -1)
	if text != "a" || idx != 0 {
		t.Errorf("up past oldest = %q, %d", text, idx)
	}
	text, idx = Navigate(h, 2, 1)
	if text != "" || idx != 3 {
		t.Errorf("down to fresh = %q, %d", text, idx)
	}
	text, idx = Navigate(nil, 0, -1)
	if text != "" || idx != 0 {
		t.Errorf("empty history = %q, %d", text, idx)
	}
}

func TestSaveAndLoadHistory(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	for _, cmd := range []string{"echo a", "echo b"} {
		events, _ := m.Execute(context.Background(), s.ID(), cmd)
		collect(t, events)
	}

	path := filepath.Join(t.TempDir(), "history.txt")
	if err := m.SaveHistory(s.ID(), path); err != nil {
		t.Fatalf("SaveHistory() error = %v", err)
	}

	other := newSession(t, m)
	if err := m.LoadHistory(other.ID(), path); err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	h := other.History()
	if len(h) != 2 || h[0] != "echo a" || h[1] != "echo b" {
		t.Errorf("loaded history = %v", h)
	}
}

func TestListInfoCleanup(t *testing.T) {
	m := NewManager()
	a := newSession(t, m)
	b := newSession(t, m)

	if got := m.List(); len(got) != 2 {
		t.Fatalf("List() = %d, want 2", len(got))
	}
	info, err := m.Info(a.ID())
	if err != nil || info.ID != a.ID() {
		t.Errorf("Info() = %+v, %v", info, err)
	}

	// Make a stale, b fresh.
	a.mu.Lock()
	a.lastActivity = time.Now().Add(-time.Hour)
	a.mu.Unlock()

	removed := m.CleanupIdle(30 * time.Minute)
	if len(removed) != 1 || removed[0] != a.ID() {
		t.Errorf("removed = %v", removed)
	}
	if _, err := m.Get(a.ID()); errors.GetCode(err) != errors.ErrCodeSessionNotFound {
		t.Errorf("stale session still present")
	}
	if _, err := m.Get(b.ID()); err != nil {
		t.Errorf("fresh session reaped: %v", err)
	}
}

func TestSharedHistoryStore(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	m := NewManager(WithStore(store))
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "echo shared")
	if err != nil {
		t.Fatal(err)
	}
	collect(t, events)

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Command != "echo shared" {
		t.Errorf("store entries = %+v", entries)
	}

	if _, err := m.Bookmark(context.Background(), "echo shared", "greeting", nil); err != nil {
		t.Fatalf("Bookmark() error = %v", err)
	}
	marks, _ := m.Bookmarks(context.Background())
	if len(marks) != 1 {
		t.Errorf("bookmarks = %+v", marks)
	}
}

func TestCloseKillsProcess(t *testing.T) {
	m := NewManager()
	s := newSession(t, m)

	events, err := m.Execute(context.Background(), s.ID(), "sleep 30")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(s.ID()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	collect(t, events)
	if _, err := m.Get(s.ID()); err == nil {
		t.Error("session still registered after Close")
	}
}
