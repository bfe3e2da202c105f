// Package ui renders console output: the shared palette, run summaries and
// a progress spinner for interactive terminals.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ─── Palette ─────────────────────────────────────────────────────────────────

var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#0891b2", Dark: "#22d3ee"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	ColorTextDim   = lipgloss.AdaptiveColor{Light: "#9ca3af", Dark: "#6b7280"}
)

// ─── Icons ───────────────────────────────────────────────────────────────────

const (
	IconCheck   = "✓"
	IconError   = "✗"
	IconBullet  = "•"
	IconChevron = "›"
	IconDiamond = "◆"
	IconFolder  = "▸"
)

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted).Width(16)
	ValueStyle = lipgloss.NewStyle().Bold(true)
	NoteStyle  = lipgloss.NewStyle().Foreground(ColorWarning).Italic(true)
	DimStyle   = lipgloss.NewStyle().Foreground(ColorTextDim)
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	OKStyle    = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	BoxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2)
)

// IsInteractive reports whether stdout is a terminal.
func IsInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
