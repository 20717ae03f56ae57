package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the root of the anvil.yml configuration file.
type Config struct {
	Version string `yaml:"version"`

	Project  *ProjectConfig  `yaml:"project,omitempty"`
	Build    *BuildConfig    `yaml:"build,omitempty"`
	Terminal *TerminalConfig `yaml:"terminal,omitempty"`

	// Env holds environment variable overrides applied to every spawned
	// toolchain or shell process. Unset variables inherit from the host.
	Env map[string]string `yaml:"env,omitempty"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline"`
}

// ProjectConfig describes the project the core operates on.
type ProjectConfig struct {
	Name string `yaml:"name,omitempty"`
	// Backend selects the default toolchain: "gradle", "cargo", "hybrid",
	// or "native-driver".
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// BuildConfig holds build orchestration tunables.
type BuildConfig struct {
	// IdleTimeout kills a build that produces no output for this duration
	// (Go duration string, e.g. "2m"). Zero disables the watchdog.
	IdleTimeout string `yaml:"idle_timeout,omitempty"`
	// Timeout bounds the total build duration.
	Timeout string `yaml:"timeout,omitempty"`
	// GradleArgs are extra arguments appended to every gradle invocation.
	GradleArgs []string `yaml:"gradle_args,omitempty"`
	// CargoArgs are extra arguments appended to every cargo invocation.
	CargoArgs []string `yaml:"cargo_args,omitempty"`
}

// TerminalConfig holds interactive session tunables.
type TerminalConfig struct {
	// Shell is the shell binary used for non-built-in commands.
	// When empty, $SHELL and then a list of common locations is probed.
	Shell string `yaml:"shell,omitempty"`
	// HistoryDB is the path of the SQLite command history database.
	HistoryDB string `yaml:"history_db,omitempty"`
	// TranscriptDir is where session transcripts are written.
	TranscriptDir string `yaml:"transcript_dir,omitempty"`
	// MaxIdle closes sessions idle for longer than this duration when
	// CleanupIdle runs. Zero keeps sessions forever.
	MaxIdle string `yaml:"max_idle,omitempty"`
}

// UnmarshalExtension decodes an extension section (an unrecognized top-level
// key) into a strongly-typed target struct. Missing keys are not an error;
// the target simply remains zero-valued.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	// Use mapstructure to decode the generic map[string]interface{} into the
	// strongly-typed target struct, honoring `yaml` tags for consistency.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
