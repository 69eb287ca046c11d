package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsAgentMode reports whether td is driven by a non-human consumer
// (TD_AGENT set or stdout not a terminal). Agent mode keeps output plain
// for parsing.
func IsAgentMode() bool {
	if os.Getenv("TD_AGENT") != "" {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor reports whether styled output is appropriate: a terminal
// on stdout and no NO_COLOR/CLICOLOR suppression.
func ShouldUseColor() bool {
	if termenv.EnvNoColor() {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the stdout terminal width, or fallback when the
// size cannot be detected.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
