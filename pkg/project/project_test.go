package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/backend"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sampleManifest = `[package]
name = "anvil-native"
version = "0.1.0"
edition = "2021"

[lib]
crate-type = ["cdylib"]

[dependencies]
serde = "1"
jni = { version = "0.21", features = ["invocation"] }

[features]
default = []
vendored = []
`

func TestInspectTypes(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  backend.Type
	}{
		{"cargo only", []string{"Cargo.toml"}, backend.TypeCargo},
		{"gradle only", []string{"build.gradle"}, backend.TypeGradle},
		{"kts gradle", []string{"build.gradle.kts"}, backend.TypeGradle},
		{"hybrid", []string{"Cargo.toml", "build.gradle"}, backend.TypeHybrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				content := ""
				if f == "Cargo.toml" {
					content = sampleManifest
				}
				writeFile(t, filepath.Join(dir, f), content)
			}
			info, err := Inspect(dir)
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if info.Type != tt.want {
				t.Errorf("Type = %v, want %v", info.Type, tt.want)
			}
		})
	}
}

func TestInspectEmptyDirRejected(t *testing.T) {
	_, err := Inspect(t.TempDir())
	if errors.GetCode(err) != errors.ErrCodeProjectInvalid {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeProjectInvalid)
	}
}

func TestInspectReadsManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), sampleManifest)
	if err := os.Mkdir(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := Inspect(dir)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Name != "anvil-native" {
		t.Errorf("Name = %q, want anvil-native", info.Name)
	}
	if !info.SrcDirExists {
		t.Error("SrcDirExists = false")
	}
	wantDeps := []string{"jni", "serde"}
	if len(info.Dependencies) != 2 || info.Dependencies[0] != wantDeps[0] || info.Dependencies[1] != wantDeps[1] {
		t.Errorf("Dependencies = %v, want %v", info.Dependencies, wantDeps)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	writeFile(t, path, sampleManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Package.Version != "0.1.0" || m.Package.Edition != "2021" {
		t.Errorf("package = %+v", m.Package)
	}
	if !m.IsCdylib() {
		t.Error("IsCdylib() = false")
	}
	if feats := m.FeatureNames(); len(feats) != 2 {
		t.Errorf("features = %v", feats)
	}
}

func TestLoadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	writeFile(t, path, "[package\nname=")

	if _, err := LoadManifest(path); errors.GetCode(err) != errors.ErrCodeProjectInvalid {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeProjectInvalid)
	}
}

func TestResolveType(t *testing.T) {
	info := &Info{Type: backend.TypeHybrid}

	got, err := ResolveType(info, "")
	if err != nil || got != backend.TypeHybrid {
		t.Errorf("default = %v, %v", got, err)
	}

	got, err = ResolveType(info, "rust")
	if err != nil || got != backend.TypeCargo {
		t.Errorf("rust = %v, %v", got, err)
	}

	if _, err := ResolveType(info, "maven"); err == nil {
		t.Error("maven accepted, want error")
	}
}
