package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const maxWidth = 60
const minWidth = 40

// ANSI styles used by the help renderer. Disabled when stdout is not a
// terminal.
type helpStyle struct {
	title   string
	section string
	command string
	flag    string
	muted   string
	reset   string
}

func newHelpStyle() helpStyle {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return helpStyle{}
	}
	return helpStyle{
		title:   "\033[1;33m",
		section: "\033[3;33m",
		command: "\033[1;34m",
		flag:    "\033[35m",
		muted:   "\033[2m",
		reset:   "\033[0m",
	}
}

func (s helpStyle) render(style, text string) string {
	if style == "" {
		return text
	}
	return style + text + s.reset
}

// getTerminalWidth returns the terminal width capped at maxWidth.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minWidth {
		return maxWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps text to the specified width, preserving existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}

	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}

		// Wrap long lines
		var line string
		for _, word := range strings.Fields(paragraph) {
			if line == "" {
				line = word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// SetStyledHelp applies consistent Anvil styling to a command's help output.
// Call this on the root command before Execute().
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// ApplyStyledHelpRecursive applies styled help and usage to a command and all its subcommands.
// Call this after all subcommands have been added, before Execute().
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(styledUsageFunc)
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// styledUsageFunc provides minimal usage output (shown on errors).
// Returns nothing since error handling is done by the caller of Execute.
func styledUsageFunc(cmd *cobra.Command) error {
	return nil
}

// PrintError prints a styled error message to stderr with help hint.
func PrintError(cmd *cobra.Command, err error) {
	s := newHelpStyle()
	red := ""
	if s.reset != "" {
		red = "\033[1;31m"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", s.render(red, "Error:"), err.Error())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", s.render(s.muted, fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())))
}

// parseDescription splits a command's long description into main text and examples.
func parseDescription(long string) (description string, examples string) {
	markers := []string{"\nExamples:\n", "\nExample:\n", "\nEXAMPLES:\n", "\nEXAMPLE:\n"}
	for _, marker := range markers {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

func styledHelpFunc(cmd *cobra.Command, args []string) {
	s := newHelpStyle()

	// Get terminal width for wrapping (subtract 2 for indent)
	width := getTerminalWidth() - 2

	// Title - uppercase command path
	fmt.Println(" " + s.render(s.title, strings.ToUpper(cmd.CommandPath())))

	// Parse description and examples from Long
	var description, examples string
	if cmd.Long != "" {
		description, examples = parseDescription(cmd.Long)
	} else {
		description = cmd.Short
	}

	if cmd.Short != "" {
		for _, line := range strings.Split(wrapText(cmd.Short, width), "\n") {
			fmt.Println(" " + s.render(s.muted, line))
		}
	}
	if description != "" && description != cmd.Short {
		fmt.Println()
		wrapped := wrapText(description, width)
		for _, line := range strings.Split(wrapped, "\n") {
			fmt.Println(" " + line)
		}
	}

	// Usage section
	if cmd.Runnable() || cmd.HasSubCommands() {
		fmt.Println("\n " + s.render(s.section, "USAGE"))
		if cmd.Runnable() {
			fmt.Printf(" %s\n", cmd.UseLine())
		}
		if cmd.HasSubCommands() {
			fmt.Printf(" %s [command]\n", cmd.CommandPath())
		}
	}

	// Commands section
	if cmd.HasAvailableSubCommands() {
		maxLen := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() && len(sub.Name()) > maxLen {
				maxLen = len(sub.Name())
			}
		}

		fmt.Println("\n " + s.render(s.section, "COMMANDS"))
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				padding := strings.Repeat(" ", maxLen-len(sub.Name()))
				fmt.Printf(" %s%s  %s\n", s.render(s.command, sub.Name()), padding, sub.Short)
			}
		}
	}

	// Flags section - show detailed flags for leaf commands, inline for parent commands
	var visibleFlags []*pflag.Flag
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			visibleFlags = append(visibleFlags, f)
		}
	})

	if len(visibleFlags) > 0 {
		if cmd.HasAvailableSubCommands() {
			// Parent commands: show inline flags (compact)
			var flags []string
			for _, f := range visibleFlags {
				if f.Shorthand != "" {
					flags = append(flags, fmt.Sprintf("-%s/--%s", f.Shorthand, f.Name))
				} else {
					flags = append(flags, fmt.Sprintf("--%s", f.Name))
				}
			}
			fmt.Println("\n " + s.render(s.muted, "Flags: "+strings.Join(flags, ", ")))
		} else {
			// Leaf commands: show detailed flags
			fmt.Println("\n " + s.render(s.section, "FLAGS"))
			maxFlagLen := 0
			for _, f := range visibleFlags {
				flagStr := formatFlagName(f)
				if len(flagStr) > maxFlagLen {
					maxFlagLen = len(flagStr)
				}
			}
			for _, f := range visibleFlags {
				flagStr := formatFlagName(f)
				padding := strings.Repeat(" ", maxFlagLen-len(flagStr))

				usage := f.Usage
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
					usage += s.render(s.muted, fmt.Sprintf(" (default: %s)", f.DefValue))
				}
				fmt.Printf(" %s%s  %s\n", s.render(s.flag, flagStr), padding, usage)
			}
		}
	}

	// Examples section (from cmd.Example field or parsed from Long description)
	exampleText := cmd.Example
	if exampleText == "" {
		exampleText = examples
	}
	if exampleText != "" {
		fmt.Println("\n " + s.render(s.section, "EXAMPLES"))
		for _, line := range strings.Split(exampleText, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				fmt.Println()
				continue
			}
			if strings.HasPrefix(trimmed, "#") {
				fmt.Println("  " + s.render(s.muted, trimmed))
			} else {
				fmt.Println("  " + trimmed)
			}
		}
	}

	// Help hint
	if cmd.HasSubCommands() {
		fmt.Printf("\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

// formatFlagName returns a formatted flag string like "-f, --flag" or "--flag".
func formatFlagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return fmt.Sprintf("    --%s", f.Name)
}
