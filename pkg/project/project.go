// Package project inspects a project directory: which backend families
// apply, what the Cargo manifest declares, and whether the required
// toolchains are installed.
package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/backend"
	"github.com/pelletier/go-toml/v2"
)

// Info is a snapshot of a project directory.
type Info struct {
	Name            string       `json:"name"`
	Path            string       `json:"path"`
	Type            backend.Type `json:"type"`
	CargoManifest   bool         `json:"cargoManifest"`
	GradleBuildFile bool         `json:"gradleBuildFile"`
	SrcDirExists    bool         `json:"srcDirExists"`
	TargetDirExists bool         `json:"targetDirExists"`
	Dependencies    []string     `json:"dependencies,omitempty"`
	Features        []string     `json:"features,omitempty"`
}

// Inspect detects the project type from the build files present. A
// directory holding both a Cargo manifest and a gradle build file is
// hybrid; neither makes it invalid.
func Inspect(path string) (*Info, error) {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return nil, errors.ProjectInvalid(path, "not a directory")
	}

	cargo := fileExists(filepath.Join(path, "Cargo.toml"))
	gradle := fileExists(filepath.Join(path, "build.gradle")) ||
		fileExists(filepath.Join(path, "build.gradle.kts"))

	var typ backend.Type
	switch {
	case cargo && gradle:
		typ = backend.TypeHybrid
	case cargo:
		typ = backend.TypeCargo
	case gradle:
		typ = backend.TypeGradle
	default:
		return nil, errors.ProjectInvalid(path, "no Cargo.toml or build.gradle found")
	}

	info := &Info{
		Name:            filepath.Base(path),
		Path:            path,
		Type:            typ,
		CargoManifest:   cargo,
		GradleBuildFile: gradle,
		SrcDirExists:    dirExists(filepath.Join(path, "src")),
		TargetDirExists: dirExists(filepath.Join(path, "target")),
	}

	if cargo {
		if m, err := LoadManifest(filepath.Join(path, "Cargo.toml")); err == nil {
			if m.Package.Name != "" {
				info.Name = m.Package.Name
			}
			info.Dependencies = m.DependencyNames()
			info.Features = m.FeatureNames()
		}
	}
	return info, nil
}

// Manifest is the subset of Cargo.toml the IDE cares about.
type Manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Lib struct {
		CrateType []string `toml:"crate-type"`
	} `toml:"lib"`

	deps     map[string]any
	features map[string]any
}

type rawManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Lib struct {
		CrateType []string `toml:"crate-type"`
	} `toml:"lib"`
	Dependencies map[string]any `toml:"dependencies"`
	Features     map[string]any `toml:"features"`
}

// LoadManifest parses a Cargo.toml.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ProjectInvalid(path, "cannot read Cargo.toml")
	}
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProjectInvalid, "malformed Cargo.toml")
	}
	m := &Manifest{deps: raw.Dependencies, features: raw.Features}
	m.Package = raw.Package
	m.Lib = raw.Lib
	return m, nil
}

// DependencyNames returns the declared dependency crates, sorted.
func (m *Manifest) DependencyNames() []string {
	return sortedKeys(m.deps)
}

// FeatureNames returns the declared features, sorted.
func (m *Manifest) FeatureNames() []string {
	return sortedKeys(m.features)
}

// IsCdylib reports whether the crate builds a C dynamic library, the shape
// Android packaging expects.
func (m *Manifest) IsCdylib() bool {
	for _, ct := range m.Lib.CrateType {
		if ct == "cdylib" {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// normalizeType maps config spellings to backend types.
func normalizeType(s string) (backend.Type, bool) {
	switch strings.ToLower(s) {
	case "gradle", "managed":
		return backend.TypeGradle, true
	case "cargo", "rust":
		return backend.TypeCargo, true
	case "hybrid":
		return backend.TypeHybrid, true
	case "native-driver", "native":
		return backend.TypeNative, true
	}
	return "", false
}

// ResolveType picks the backend for a build request: an explicit selection
// wins, otherwise the detected project type is used.
func ResolveType(info *Info, selected string) (backend.Type, error) {
	if selected == "" {
		return info.Type, nil
	}
	t, ok := normalizeType(selected)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown backend: "+selected)
	}
	return t, nil
}
