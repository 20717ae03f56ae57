package daemon

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/anvilide/core/logging"
	"github.com/anvilide/core/pkg/paths"
)

// ConfigWatcher watches anvil.yml locations for changes so the daemon
// can reload its configuration without a restart.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	debounceMs int
	lastChange time.Time
	mu         sync.Mutex
	logger     *logrus.Entry
	onReload   func(file string) // Callback to broadcast event
}

// NewConfigWatcher creates a ConfigWatcher covering the global config
// directory and, when projectDir is non-empty, the project root where a
// local anvil.yml may live. The debounceMs parameter controls how long
// to wait before processing rapid changes. The onReload callback is
// called when config changes occur.
func NewConfigWatcher(projectDir string, debounceMs int, onReload func(string)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("config-watcher")

	if configDir := paths.ConfigDir(); configDir != "" {
		if err := watcher.Add(configDir); err != nil {
			logger.WithError(err).Debug("Global config directory not watchable")
		}
	}
	if projectDir != "" {
		if err := watcher.Add(projectDir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	if debounceMs <= 0 {
		debounceMs = 100
	}

	return &ConfigWatcher{
		watcher:    watcher,
		debounceMs: debounceMs,
		logger:     logger,
		onReload:   onReload,
	}, nil
}

// Start begins watching for config changes. It blocks until the context is cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isConfigFile(event.Name) {
				w.handleChange(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// isConfigFile reports whether the path is a configuration file the
// daemon cares about.
func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "anvil.yml" || base == "anvil.yaml" ||
		strings.HasSuffix(base, ".yml") && filepath.Dir(path) == paths.ConfigDir()
}

// handleChange processes a config file change with debouncing.
func (w *ConfigWatcher) handleChange(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Debounce rapid writes
	elapsed := time.Since(w.lastChange)
	if elapsed < time.Duration(w.debounceMs)*time.Millisecond {
		w.logger.Debugf("Debounced: %s (only %v since last change)", filepath.Base(file), elapsed)
		return
	}
	w.lastChange = time.Now()

	w.logger.Infof("Config changed: %s", filepath.Base(file))

	if w.onReload != nil {
		w.onReload(file)
	}
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}
