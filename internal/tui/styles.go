package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the progress view and the summary box.
//
//nolint:gochecknoglobals // Style values are immutable after init.
var (
	ColorHeader  = lipgloss.AdaptiveColor{Light: "#1F4E79", Dark: "#7AB8F5"}
	ColorLabel   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#A0A0A0"}
	ColorValue   = lipgloss.AdaptiveColor{Light: "#111111", Dark: "#EEEEEE"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6C6C6C"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#1E7B34", Dark: "#5FD787"}
	ColorFailure = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF6B6B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFD75F"}

	HeaderStyle  = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	FailureStyle = lipgloss.NewStyle().Foreground(ColorFailure).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorHeader).
			Padding(0, 1)
)
