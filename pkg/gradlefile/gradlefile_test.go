package gradlefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anvilide/core/errors"
)

const groovyBuildFile = `plugins {
    id 'com.android.application'
    id 'org.jetbrains.kotlin.android'
}

dependencies {
    implementation 'androidx.core:core-ktx:1.12.0'
    implementation 'com.google.android.material:material:1.11.0'
    testImplementation 'junit:junit:4.13.2'
}
`

func writeBuildFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestList(t *testing.T) {
	path := writeBuildFile(t, "build.gradle", groovyBuildFile)
	deps, err := List(path)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(deps) != 3 {
		t.Fatalf("List() = %d deps, want 3", len(deps))
	}
	if deps[0].Coordinate() != "androidx.core:core-ktx:1.12.0" || deps[0].Configuration != "implementation" {
		t.Errorf("deps[0] = %+v", deps[0])
	}
	if deps[2].Configuration != "testImplementation" {
		t.Errorf("deps[2] = %+v", deps[2])
	}
}

func TestPlugins(t *testing.T) {
	path := writeBuildFile(t, "build.gradle", groovyBuildFile)
	plugins, err := Plugins(path)
	if err != nil {
		t.Fatalf("Plugins() error = %v", err)
	}
	if len(plugins) != 2 || plugins[0] != "com.android.application" {
		t.Errorf("Plugins() = %v", plugins)
	}
}

func TestAdd(t *testing.T) {
	path := writeBuildFile(t, "build.gradle", groovyBuildFile)
	if err := Add(path, "io.coil-kt:coil:2.5.0", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	deps, err := List(path)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, d := range deps {
		if d.Coordinate() == "io.coil-kt:coil:2.5.0" && d.Configuration == "implementation" {
			found = true
		}
	}
	if !found {
		t.Errorf("added dependency not listed: %v", deps)
	}

	// Adding again must not duplicate.
	if err := Add(path, "io.coil-kt:coil:2.5.0", ""); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if strings.Count(string(content), "io.coil-kt:coil:2.5.0") != 1 {
		t.Error("dependency duplicated")
	}
}

func TestAddWithoutDependenciesBlock(t *testing.T) {
	path := writeBuildFile(t, "build.gradle", "plugins {\n    id 'java'\n}\n")
	if err := Add(path, "junit:junit:4.13.2", "testImplementation"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "dependencies {") {
		t.Error("dependencies block not created")
	}
	deps, _ := List(path)
	if len(deps) != 1 || deps[0].Configuration != "testImplementation" {
		t.Errorf("deps = %v", deps)
	}
}

func TestAddKotlinScript(t *testing.T) {
	path := writeBuildFile(t, "build.gradle.kts", "dependencies {\n    implementation(\"androidx.core:core-ktx:1.12.0\")\n}\n")
	if err := Add(path, "io.coil-kt:coil:2.5.0", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), `implementation("io.coil-kt:coil:2.5.0")`) {
		t.Errorf("kts syntax not used:\n%s", content)
	}
}

func TestAddInvalidCoordinate(t *testing.T) {
	path := writeBuildFile(t, "build.gradle", groovyBuildFile)
	err := Add(path, "not a coordinate", "")
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestRemove(t *testing.T) {
	path := writeBuildFile(t, "build.gradle", groovyBuildFile)
	if err := Remove(path, "junit:junit:4.13.2"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	deps, _ := List(path)
	for _, d := range deps {
		if d.Name == "junit" {
			t.Errorf("junit still present: %v", deps)
		}
	}
	if len(deps) != 2 {
		t.Errorf("deps = %d, want 2", len(deps))
	}

	// Removing an absent coordinate is a no-op.
	if err := Remove(path, "absent:thing:1.0"); err != nil {
		t.Errorf("Remove(absent) error = %v", err)
	}
}

func TestFindPrefersAppModule(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "app"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"build.gradle", filepath.Join("app", "build.gradle")} {
		if err := os.WriteFile(filepath.Join(dir, p), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Find(dir)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != filepath.Join(dir, "app", "build.gradle") {
		t.Errorf("Find() = %q", got)
	}

	if _, err := Find(t.TempDir()); errors.GetCode(err) != errors.ErrCodeProjectInvalid {
		t.Errorf("missing: code = %v", errors.GetCode(err))
	}
}
