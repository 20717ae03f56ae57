// Package testutil fabricates fake toolchains and temp projects so tests
// never invoke the real gradle or cargo.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeTool installs a shell script named name on a temp PATH entry and
// prepends that entry to PATH for the test's duration. The script body is
// plain sh; use it to emit canned toolchain output and exit codes.
func FakeTool(t *testing.T, name, body string) string {
	t.Helper()

	binDir := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))

	script := fmt.Sprintf("#!/bin/sh\n%s\n", body)
	path := filepath.Join(binDir, name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return path
}

// FakeToolSet installs several fake tools on one PATH entry.
func FakeToolSet(t *testing.T, tools map[string]string) string {
	t.Helper()

	binDir := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	for name, body := range tools {
		script := fmt.Sprintf("#!/bin/sh\n%s\n", body)
		require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755))
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return binDir
}

// CargoProject creates a minimal cargo project layout.
func CargoProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	manifest := "[package]\nname = \"app\"\nversion = \"0.1.0\"\nedition = \"2021\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.rs"), []byte("fn main() {}\n"), 0o644))
	return dir
}

// GradleProject creates a minimal gradle project layout.
func GradleProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	build := "plugins {\n    id 'com.android.application'\n}\n\ndependencies {\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.gradle"), []byte(build), 0o644))
	return dir
}

// HybridProject creates a project carrying both build files.
func HybridProject(t *testing.T) string {
	t.Helper()

	dir := CargoProject(t)
	build := "plugins {\n    id 'com.android.application'\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.gradle"), []byte(build), 0o644))
	return dir
}
