// Package ui provides terminal styling for td CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/trackdownhq/trackdown/internal/types"
)

// Ayu theme color palette (adaptive light/dark)
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

// Status styles - consistent across all commands
var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
)

// CategoryStyle for section headers - bold with accent color
var CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

// Status icons - consistent semantic indicators
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
)

// StateStyle renders a unified state with its semantic color.
func StateStyle(s types.UnifiedState, text string) string {
	if !ShouldUseColor() {
		return text
	}
	switch s {
	case types.StateDone:
		return PassStyle.Render(text)
	case types.StateWontDo:
		return MutedStyle.Render(text)
	case types.StatePlanning:
		return AccentStyle.Render(text)
	default:
		return WarnStyle.Render(text)
	}
}

// PRStatusStyle renders a PR status with its semantic color.
func PRStatusStyle(s types.PRStatus, text string) string {
	if !ShouldUseColor() {
		return text
	}
	switch s {
	case types.PRStatusMerged:
		return PassStyle.Render(text)
	case types.PRStatusClosed:
		return MutedStyle.Render(text)
	case types.PRStatusApproved:
		return AccentStyle.Render(text)
	default:
		return WarnStyle.Render(text)
	}
}
