package cli

import (
	"fmt"
	"os"

	"github.com/anvilide/core/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create an anvil.yml in your project root.\n")
		return err

	case errors.ErrCodeProjectInvalid:
		if anvilErr, ok := err.(*errors.AnvilError); ok {
			fmt.Fprintf(os.Stderr, "❌ Not a buildable project: %v\n", anvilErr.Details["reason"])
			fmt.Fprintf(os.Stderr, "Expected a Cargo.toml, a build.gradle, or both.\n")
		}
		return err

	case errors.ErrCodeInvalidOperation:
		if anvilErr, ok := err.(*errors.AnvilError); ok {
			fmt.Fprintf(os.Stderr, "❌ The %v backend does not support '%v'\n",
				anvilErr.Details["backend"], anvilErr.Details["operation"])
		}
		return err

	case errors.ErrCodeCommandTimeout:
		if anvilErr, ok := err.(*errors.AnvilError); ok {
			fmt.Fprintf(os.Stderr, "❌ Build produced no output for %v and was killed\n",
				anvilErr.Details["timeout"])
		}
		return err

	case errors.ErrCodeSessionBusy:
		fmt.Fprintf(os.Stderr, "❌ Session is busy. Wait for the running command or cancel it.\n")
		return err

	case errors.ErrCodeSessionNotFound:
		fmt.Fprintf(os.Stderr, "❌ Session not found. Run 'anvil build list' to see active sessions.\n")
		return err

	case errors.ErrCodeSpawnFailed:
		fmt.Fprintf(os.Stderr, "❌ Toolchain not found. Run 'anvil status' to check what is installed.\n")
		return err

	default:
		// Generic error handling
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		// If verbose mode, show full error details
		if h.Verbose {
			if anvilErr, ok := err.(*errors.AnvilError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", anvilErr.ToJSON())
			}
		}
		return err
	}
}
