package project

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/anvilide/core/command"
)

// ToolchainStatus reports which external toolchains are reachable and
// their version strings.
type ToolchainStatus struct {
	RustVersion   string `json:"rustVersion,omitempty"`
	CargoVersion  string `json:"cargoVersion,omitempty"`
	GradleVersion string `json:"gradleVersion,omitempty"`
	NDKInstalled  bool   `json:"ndkInstalled"`
}

// Check is one health probe result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // passed, warning, failed
	Message string `json:"message"`
}

// Health is the aggregate toolchain health report.
type Health struct {
	Status  string  `json:"status"` // healthy, unhealthy
	Message string  `json:"message"`
	Checks  []Check `json:"checks"`
}

// Prober runs version probes through an injected command.Executor so tests
// can fake the toolchains.
type Prober struct {
	cmds command.Executor
}

// NewProber returns a Prober using the real toolchains on PATH.
func NewProber() *Prober {
	return NewProberWithExecutor(&command.RealExecutor{})
}

// NewProberWithExecutor returns a Prober that creates commands through ce.
func NewProberWithExecutor(ce command.Executor) *Prober {
	return &Prober{cmds: ce}
}

func (p *Prober) probeVersion(name string, args ...string) (string, bool) {
	out, err := p.cmds.Command(name, args...).Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

// Status probes the installed toolchains.
func (p *Prober) Status() ToolchainStatus {
	s := ToolchainStatus{NDKInstalled: ndkInstalled()}
	s.RustVersion, _ = p.probeVersion("rustc", "--version")
	s.CargoVersion, _ = p.probeVersion("cargo", "--version")
	if v, ok := p.probeVersion("gradle", "--version"); ok {
		for _, line := range strings.Split(v, "\n") {
			if strings.HasPrefix(line, "Gradle ") {
				s.GradleVersion = strings.TrimSpace(line)
				break
			}
		}
	}
	return s
}

// CheckHealth runs the individual probes and aggregates them. The build
// system counts as healthy when rustc and cargo respond; a missing NDK
// only degrades cross-target builds.
func (p *Prober) CheckHealth() Health {
	_, rust := p.probeVersion("rustc", "--version")
	_, cargo := p.probeVersion("cargo", "--version")
	ndk := ndkInstalled()

	pass := func(ok bool) string {
		if ok {
			return "passed"
		}
		return "failed"
	}

	checks := []Check{
		{Name: "Rust Installation", Status: pass(rust), Message: installMessage("Rust", rust)},
		{Name: "Cargo Installation", Status: pass(cargo), Message: installMessage("Cargo", cargo)},
	}
	ndkCheck := Check{Name: "NDK Installation", Status: "warning", Message: installMessage("Android NDK", false)}
	if ndk {
		ndkCheck.Status = "passed"
		ndkCheck.Message = installMessage("Android NDK", true)
	}
	checks = append(checks, ndkCheck)

	h := Health{Status: "healthy", Message: "Build system is healthy", Checks: checks}
	if !rust || !cargo {
		h.Status = "unhealthy"
		h.Message = "Build system is unhealthy"
	}
	return h
}

func installMessage(tool string, ok bool) string {
	if ok {
		return tool + " is installed"
	}
	return tool + " is not installed"
}

// ndkInstalled looks for the NDK in the usual environment slots.
func ndkInstalled() bool {
	for _, env := range []string{"ANDROID_NDK_HOME", "ANDROID_NDK_ROOT", "NDK_HOME"} {
		if dir := os.Getenv(env); dir != "" && dirExists(dir) {
			return true
		}
	}
	if sdk := os.Getenv("ANDROID_HOME"); sdk != "" {
		if dirExists(filepath.Join(sdk, "ndk")) || dirExists(filepath.Join(sdk, "ndk-bundle")) {
			return true
		}
	}
	return false
}
