package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *AnvilError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *AnvilError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// SpawnFailed creates a process spawn failure error
func SpawnFailed(argv []string, err error) *AnvilError {
	name := ""
	if len(argv) > 0 {
		name = argv[0]
	}
	return Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to spawn process: %s", name)).
		WithDetail("argv", argv)
}

// CommandTimeout creates a command idle timeout error
func CommandTimeout(command string, timeout string) *AnvilError {
	return New(ErrCodeCommandTimeout,
		fmt.Sprintf("command '%s' produced no output for %s and was killed", command, timeout)).
		WithDetail("command", command).
		WithDetail("timeout", timeout)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *AnvilError {
	anvilErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		anvilErr = anvilErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return anvilErr
}

// InvalidOperation creates an unsupported backend operation error
func InvalidOperation(backend string, operation string) *AnvilError {
	return New(ErrCodeInvalidOperation,
		fmt.Sprintf("operation '%s' is not supported by the %s backend", operation, backend)).
		WithDetail("backend", backend).
		WithDetail("operation", operation)
}

// ProjectInvalid creates an invalid project error
func ProjectInvalid(path string, reason string) *AnvilError {
	return New(ErrCodeProjectInvalid, fmt.Sprintf("invalid project at %s: %s", path, reason)).
		WithDetail("path", path).
		WithDetail("reason", reason)
}

// SessionBusy creates an error for a session that already has a live process
func SessionBusy(sessionID string) *AnvilError {
	return New(ErrCodeSessionBusy,
		fmt.Sprintf("session '%s' already has a running process", sessionID)).
		WithDetail("sessionId", sessionID)
}

// SessionNotFound creates a session not found error
func SessionNotFound(sessionID string) *AnvilError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session '%s' not found", sessionID)).
		WithDetail("sessionId", sessionID)
}

// HybridStageFailed creates an error for a failed first stage of a hybrid build
func HybridStageFailed(stage string) *AnvilError {
	return New(ErrCodeHybridStageFailed,
		fmt.Sprintf("hybrid build stage '%s' failed; remaining stages skipped", stage)).
		WithDetail("stage", stage)
}
