// Package history keeps the command history and bookmarks shared by every
// terminal session. The store is append-mostly; sessions read and append
// concurrently without coordinating with each other.
package history

import (
	"context"
	"time"
)

// Entry is one remembered command. Bookmarked entries carry a description
// and tags; plain history entries do not.
type Entry struct {
	ID          int64     `json:"id"`
	Command     string    `json:"command"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Favorite    bool      `json:"favorite"`
	UseCount    int       `json:"useCount"`
	LastUsed    time.Time `json:"lastUsed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is the persistence contract the terminal manager consumes.
type Store interface {
	// Append records an executed command. Repeating a known command
	// bumps its use count instead of inserting a duplicate row.
	Append(ctx context.Context, command string) (*Entry, error)

	// Recent returns up to limit entries, most recently used first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Search returns entries whose command or description contains the
	// query, most recently used first.
	Search(ctx context.Context, query string, limit int) ([]Entry, error)

	// Bookmark marks a command as a favorite with metadata, creating the
	// entry if it is not in the history yet.
	Bookmark(ctx context.Context, command, description string, tags []string) (*Entry, error)

	// Unbookmark clears the favorite flag. The entry stays in history.
	Unbookmark(ctx context.Context, id int64) error

	// Bookmarks returns all favorites, most recently used first.
	Bookmarks(ctx context.Context) ([]Entry, error)

	// IncrementUse records a replay of an existing entry.
	IncrementUse(ctx context.Context, id int64) error

	Close() error
}
