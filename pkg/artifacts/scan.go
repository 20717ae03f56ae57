// Package artifacts locates build outputs. A post-build scan walks the
// family's output directories with pattern sets, and a filesystem watcher
// surfaces artifacts while a build is still running.
package artifacts

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/anvilide/core/pkg/backend"
	"github.com/moby/patternmatcher"
)

// Artifact is one produced build output.
type Artifact struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// includePatterns lists what counts as an artifact per family.
var includePatterns = map[backend.Type][]string{
	backend.TypeGradle: {"**/*.apk", "**/*.aab"},
	backend.TypeCargo:  {"**"},
	backend.TypeNative: {"**/*.so", "**/*.a"},
}

// cargoSkipPatterns excludes cargo's bookkeeping outputs; everything else
// in the profile directory is a deliverable.
var cargoSkipPatterns = []string{"**/*.d", "**/*.rlib", "**/*.rmeta", "**/*.pdb"}

// roots returns the directories to scan for a family, relative to the
// project directory. variant selects the profile, target narrows cargo
// cross builds.
func roots(t backend.Type, variant, target string) []string {
	profile := "debug"
	if variant == "release" {
		profile = variant
	}
	switch t {
	case backend.TypeGradle:
		return []string{
			filepath.Join("app", "build", "outputs", "apk", profile),
			filepath.Join("app", "build", "outputs", "bundle", profile),
			filepath.Join("build", "outputs", "apk", profile),
		}
	case backend.TypeCargo:
		if target != "" {
			return []string{filepath.Join("target", target, profile)}
		}
		return []string{filepath.Join("target", profile)}
	case backend.TypeNative:
		return []string{"libs", filepath.Join("obj", "local")}
	}
	return nil
}

// Scan walks the output directories of the given family and returns the
// artifacts found, sorted by path. Hybrid builds scan both stages.
func Scan(projectDir string, t backend.Type, variant, target string) ([]Artifact, error) {
	if t == backend.TypeHybrid {
		first, err := Scan(projectDir, backend.TypeCargo, variant, target)
		if err != nil {
			return nil, err
		}
		second, err := Scan(projectDir, backend.TypeGradle, variant, target)
		if err != nil {
			return nil, err
		}
		return append(first, second...), nil
	}

	include, err := patternmatcher.New(includePatterns[t])
	if err != nil {
		return nil, err
	}
	var skip *patternmatcher.PatternMatcher
	if t == backend.TypeCargo {
		if skip, err = patternmatcher.New(cargoSkipPatterns); err != nil {
			return nil, err
		}
	}

	var found []Artifact
	for _, rel := range roots(t, variant, target) {
		root := filepath.Join(projectDir, rel)
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				// Cargo deliverables sit directly in the profile
				// directory; deps/ and incremental/ hold intermediates.
				if t == backend.TypeCargo && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			relPath, err := filepath.Rel(projectDir, path)
			if err != nil {
				return nil
			}
			if ok, _ := include.MatchesOrParentMatches(relPath); !ok {
				return nil
			}
			if skip != nil {
				if skipped, _ := skip.MatchesOrParentMatches(relPath); skipped {
					return nil
				}
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			found = append(found, Artifact{Path: path, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}
