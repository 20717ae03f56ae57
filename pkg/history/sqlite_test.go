package history

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, cmd := range []string{"ls -la", "cargo build", "git status"} {
		if _, err := s.Append(ctx, cmd); err != nil {
			t.Fatalf("Append(%q) error = %v", cmd, err)
		}
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent() = %d entries, want 3", len(entries))
	}
	if entries[0].Command != "git status" {
		t.Errorf("most recent = %q, want git status", entries[0].Command)
	}
}

func TestAppendDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, "cargo build"); err != nil {
		t.Fatal(err)
	}
	e, err := s.Append(ctx, "cargo build")
	if err != nil {
		t.Fatal(err)
	}
	if e.UseCount != 2 {
		t.Errorf("UseCount = %d, want 2", e.UseCount)
	}

	entries, _ := s.Recent(ctx, 10)
	if len(entries) != 1 {
		t.Errorf("Recent() = %d entries, want 1", len(entries))
	}
}

func TestAppendEmptyRejected(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append(context.Background(), ""); err == nil {
		t.Error("Append(\"\") succeeded, want error")
	}
}

func TestBookmarkLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, err := s.Bookmark(ctx, "./gradlew assembleDebug", "debug build", []string{"gradle", "build"})
	if err != nil {
		t.Fatalf("Bookmark() error = %v", err)
	}
	if !e.Favorite || e.Description != "debug build" || len(e.Tags) != 2 {
		t.Errorf("entry = %+v", e)
	}

	marks, err := s.Bookmarks(ctx)
	if err != nil {
		t.Fatalf("Bookmarks() error = %v", err)
	}
	if len(marks) != 1 {
		t.Fatalf("Bookmarks() = %d, want 1", len(marks))
	}

	if err := s.Unbookmark(ctx, e.ID); err != nil {
		t.Fatalf("Unbookmark() error = %v", err)
	}
	marks, _ = s.Bookmarks(ctx)
	if len(marks) != 0 {
		t.Errorf("Bookmarks() after unbookmark = %d, want 0", len(marks))
	}

	// The entry stays in history.
	entries, _ := s.Recent(ctx, 10)
	if len(entries) != 1 {
		t.Errorf("Recent() = %d, want 1", len(entries))
	}
}

func TestBookmarkExistingHistoryEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, "cargo test")
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.Bookmark(ctx, "cargo test", "run tests", nil)
	if err != nil {
		t.Fatalf("Bookmark() error = %v", err)
	}
	if e.ID != first.ID {
		t.Errorf("bookmark created a new row: %d != %d", e.ID, first.ID)
	}
	if e.UseCount != 1 {
		t.Errorf("UseCount = %d, want 1 preserved", e.UseCount)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "cargo build --release")
	s.Append(ctx, "git log")
	s.Bookmark(ctx, "./gradlew clean", "wipe build dir", nil)

	got, err := s.Search(ctx, "build", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search(build) = %v, want 2 entries", got)
	}
}

func TestIncrementUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, _ := s.Append(ctx, "ls")
	if err := s.IncrementUse(ctx, e.ID); err != nil {
		t.Fatalf("IncrementUse() error = %v", err)
	}
	entries, _ := s.Recent(ctx, 1)
	if entries[0].UseCount != 2 {
		t.Errorf("UseCount = %d, want 2", entries[0].UseCount)
	}

	if err := s.IncrementUse(ctx, 9999); err == nil {
		t.Error("IncrementUse(9999) succeeded, want error")
	}
}
