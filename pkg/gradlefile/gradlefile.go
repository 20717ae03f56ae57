// Package gradlefile edits gradle build files in place. The managed
// toolchain has no command-line dependency operation, so adding and
// removing dependencies means rewriting build.gradle or build.gradle.kts.
package gradlefile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/anvilide/core/command"
	"github.com/anvilide/core/errors"
)

// Dependency is one declared dependency line.
type Dependency struct {
	Configuration string `json:"configuration"` // implementation, api, testImplementation...
	Group         string `json:"group"`
	Name          string `json:"name"`
	Version       string `json:"version"`
}

// Coordinate renders the group:name:version form.
func (d Dependency) Coordinate() string {
	return d.Group + ":" + d.Name + ":" + d.Version
}

var (
	dependencyRe = regexp.MustCompile(`(\w+)\s+['"]([^:'"]+):([^:'"]+):([^'"]+)['"]`)
	pluginRe     = regexp.MustCompile(`id\s*[\s(]['"]([^'"]+)['"]`)
	depsBlockRe  = regexp.MustCompile(`dependencies\s*\{`)
	builder      = command.NewSafeBuilder()
)

const defaultConfig = "implementation"

// Find locates the build file for a project, preferring the app module's
// over the root one.
func Find(projectDir string) (string, error) {
	candidates := []string{
		filepath.Join(projectDir, "app", "build.gradle"),
		filepath.Join(projectDir, "app", "build.gradle.kts"),
		filepath.Join(projectDir, "build.gradle"),
		filepath.Join(projectDir, "build.gradle.kts"),
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", errors.ProjectInvalid(projectDir, "no gradle build file found")
}

// List extracts the declared dependencies from a build file.
func List(path string) ([]Dependency, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProjectInvalid, "cannot read build file")
	}
	var deps []Dependency
	for _, m := range dependencyRe.FindAllStringSubmatch(string(content), -1) {
		deps = append(deps, Dependency{
			Configuration: m[1],
			Group:         m[2],
			Name:          m[3],
			Version:       m[4],
		})
	}
	return deps, nil
}

// Plugins extracts the applied plugin ids from a build file.
func Plugins(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProjectInvalid, "cannot read build file")
	}
	var plugins []string
	for _, m := range pluginRe.FindAllStringSubmatch(string(content), -1) {
		plugins = append(plugins, m[1])
	}
	return plugins, nil
}

// Add inserts a dependency coordinate under the given configuration.
// Adding an already-declared coordinate is a no-op. A file without a
// dependencies block gets one appended.
func Add(path, coordinate, configuration string) error {
	if err := builder.Validate("coordinate", coordinate); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid dependency coordinate")
	}
	if configuration == "" {
		configuration = defaultConfig
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProjectInvalid, "cannot read build file")
	}
	content := string(raw)

	present := regexp.MustCompile(regexp.QuoteMeta(configuration) + `\s*[\s(]['"]` + regexp.QuoteMeta(coordinate) + `['"]`)
	if present.MatchString(content) {
		return nil
	}

	line := fmt.Sprintf("    %s '%s'", configuration, coordinate)
	if strings.HasSuffix(path, ".kts") {
		line = fmt.Sprintf("    %s(\"%s\")", configuration, coordinate)
	}

	if loc := depsBlockRe.FindStringIndex(content); loc != nil {
		content = content[:loc[1]] + "\n" + line + content[loc[1]:]
	} else {
		content += fmt.Sprintf("\ndependencies {\n%s\n}\n", line)
	}
	return writeBack(path, content)
}

// Remove deletes every declaration of the coordinate regardless of its
// configuration. Removing an absent coordinate is a no-op.
func Remove(path, coordinate string) error {
	if err := builder.Validate("coordinate", coordinate); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid dependency coordinate")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProjectInvalid, "cannot read build file")
	}

	lineRe := regexp.MustCompile(`(?m)^[ \t]*\w+\s*[\s(]['"]` + regexp.QuoteMeta(coordinate) + `['"]\)?[ \t]*\n`)
	content := lineRe.ReplaceAllString(string(raw), "")
	if content == string(raw) {
		return nil
	}
	return writeBack(path, content)
}

// writeBack replaces the build file atomically.
func writeBack(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot write build file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot replace build file")
	}
	return nil
}
