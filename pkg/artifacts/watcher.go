package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anvilide/core/logging"
	"github.com/anvilide/core/pkg/backend"
	"github.com/fsnotify/fsnotify"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// Watcher reports artifacts as the toolchain writes them, so a running
// build can stream ARTIFACT events before its final scan. Output
// directories appear mid-build, so new directories under the watched roots
// are added on the fly.
type Watcher struct {
	watcher    *fsnotify.Watcher
	include    *patternmatcher.PatternMatcher
	skip       *patternmatcher.PatternMatcher
	projectDir string
	rootRels   []string
	debounce   time.Duration
	onArtifact func(Artifact)

	mu       sync.Mutex
	lastSeen map[string]time.Time

	logger *logrus.Entry
}

// NewWatcher watches the output roots for family t under projectDir and
// calls onArtifact for each new or rewritten artifact. Roots that do not
// exist yet are picked up when the build creates them.
func NewWatcher(projectDir string, t backend.Type, variant, target string, debounce time.Duration, onArtifact func(Artifact)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	patterns := includePatterns[t]
	if t == backend.TypeHybrid {
		patterns = append(append([]string{}, includePatterns[backend.TypeCargo]...), includePatterns[backend.TypeGradle]...)
	}
	include, err := patternmatcher.New(patterns)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	skip, err := patternmatcher.New(cargoSkipPatterns)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	w := &Watcher{
		watcher:    fsw,
		include:    include,
		skip:       skip,
		projectDir: projectDir,
		debounce:   debounce,
		onArtifact: onArtifact,
		lastSeen:   make(map[string]time.Time),
		logger:     logging.NewLogger("artifact-watcher"),
	}

	watchRoots := roots(t, variant, target)
	if t == backend.TypeHybrid {
		watchRoots = append(roots(backend.TypeCargo, variant, target), roots(backend.TypeGradle, variant, target)...)
	}
	w.rootRels = watchRoots
	for _, rel := range watchRoots {
		w.addTree(filepath.Join(projectDir, rel))
	}
	// The project root catches output directories created mid-build.
	if err := fsw.Add(projectDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and its subdirectories with fsnotify.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.WithError(err).Debugf("Cannot watch %s", path)
		}
		return nil
	})
}

// Start consumes filesystem events until the context is cancelled. It
// blocks; run it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.addTree(event.Name)
				continue
			}
			w.handleFile(event.Name)
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

// handleFile reports a matching file once per debounce window.
func (w *Watcher) handleFile(path string) {
	rel, err := filepath.Rel(w.projectDir, path)
	if err != nil {
		return
	}
	underRoot := false
	for _, root := range w.rootRels {
		if rel == root || strings.HasPrefix(rel, root+string(filepath.Separator)) {
			underRoot = true
			break
		}
	}
	if !underRoot {
		return
	}
	if ok, _ := w.include.MatchesOrParentMatches(rel); !ok {
		return
	}
	if skipped, _ := w.skip.MatchesOrParentMatches(rel); skipped {
		return
	}

	w.mu.Lock()
	last, seen := w.lastSeen[path]
	now := time.Now()
	if seen && now.Sub(last) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastSeen[path] = now
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	w.logger.WithField("path", path).Debug("Artifact written")
	if w.onArtifact != nil {
		w.onArtifact(Artifact{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
