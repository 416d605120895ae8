// Package tui provides Bubble Tea TUI components for the vikini CLI.
//
// Views are opt-in (--tui) and read-only. They render the same payloads as
// the json/table output of inspect zip, inspect replay and stats metrics.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wyemhu12/vikini-sub002/types"
	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// MutedStyle for expected, informational states.
	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// ControlStyle colours a replayed control frame by kind.
func ControlStyle(kind types.ControlKind) lipgloss.Style {
	switch kind {
	case types.ControlConversationCreated, types.ControlFinalTitle:
		return SuccessStyle
	case types.ControlOptimisticTitle:
		return WarningStyle
	default:
		return ValueStyle
	}
}

// WarningCodeStyle colours a summary warning by its code. Only a failed
// parse loses the whole archive; budget stops are expected.
func WarningCodeStyle(warning string) lipgloss.Style {
	code, _, _ := strings.Cut(warning, ":")
	switch code {
	case zipsum.WarnParseFailed:
		return ErrorStyle
	case zipsum.WarnTooManyEntries, zipsum.WarnUncompressedLimit:
		return MutedStyle
	default:
		return WarningStyle
	}
}
