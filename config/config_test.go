package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anvilide/core/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "anvil.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadBasic(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
version: "1"
project:
  name: demo
  backend: hybrid
build:
  idle_timeout: 2m
  gradle_args: ["--stacktrace"]
env:
  ANDROID_HOME: /opt/android-sdk
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Project == nil || cfg.Project.Backend != "hybrid" {
		t.Errorf("expected hybrid backend, got %+v", cfg.Project)
	}
	if cfg.Build.IdleTimeout != "2m" {
		t.Errorf("expected idle_timeout 2m, got %q", cfg.Build.IdleTimeout)
	}
	if cfg.Env["ANDROID_HOME"] != "/opt/android-sdk" {
		t.Errorf("expected env override, got %v", cfg.Env)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "anvil.yml"))
	if !errors.Is(err, errors.ErrCodeConfigNotFound) {
		t.Errorf("expected CONFIG_NOT_FOUND, got %v", err)
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
version: "1"
project:
  backend: maven
`)

	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID for unknown backend, got %v", err)
	}
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version: \"1\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfigFile(nested)
	if err != nil {
		t.Fatalf("FindConfigFile returned error: %v", err)
	}
	if filepath.Dir(found) != root {
		t.Errorf("expected config in %s, got %s", root, found)
	}
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("ANVIL_TEST_SHELL", "/bin/zsh")

	cfg, err := LoadFromBytes([]byte(`
version: "1"
terminal:
  shell: ${ANVIL_TEST_SHELL}
`))
	if err != nil {
		t.Fatalf("LoadFromBytes returned error: %v", err)
	}
	if cfg.Terminal.Shell != "/bin/zsh" {
		t.Errorf("expected expanded shell path, got %q", cfg.Terminal.Shell)
	}
}

func TestUnmarshalExtension(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
version: "1"
logging:
  level: debug
  report_caller: true
`))
	if err != nil {
		t.Fatalf("LoadFromBytes returned error: %v", err)
	}

	var logCfg struct {
		Level        string `yaml:"level"`
		ReportCaller bool   `yaml:"report_caller"`
	}
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		t.Fatalf("UnmarshalExtension returned error: %v", err)
	}
	if logCfg.Level != "debug" || !logCfg.ReportCaller {
		t.Errorf("unexpected logging extension: %+v", logCfg)
	}

	// Missing extension is not an error
	var other struct{ X string }
	if err := cfg.UnmarshalExtension("missing", &other); err != nil {
		t.Errorf("missing extension should not error: %v", err)
	}
}
