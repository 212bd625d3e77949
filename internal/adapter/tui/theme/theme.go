// Package theme provides a unified visual design system for the TUI.
// All styles use adaptive colors that work on both light and dark terminals.
//
// NO_COLOR (https://no-color.org/) is respected automatically by lipgloss via
// its color profile detection.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/domain"
)

// --- Adaptive Color Palette ---

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#00695c", Dark: "#4db6ac"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#283593", Dark: "#9fa8da"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}

	ColorBorder       = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
	ColorBorderActive = lipgloss.AdaptiveColor{Light: "#00796b", Dark: "#26a69a"}

	ColorBgAlt    = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#2d2d2d"}
	ColorFgDim    = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
	ColorTabBg    = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}
	ColorTabFg    = lipgloss.AdaptiveColor{Light: "#616161", Dark: "#9e9e9e"}
	ColorTabActBg = lipgloss.AdaptiveColor{Light: "#00796b", Dark: "#26a69a"}
	ColorTabActFg = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1e1e1e"}
)

// --- Symbol variables (set by UseASCII in symbols.go) ---

var (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolWarning  = "⚠"
	SymbolInfo     = "●"
	SymbolSpinner  = "⏳"
	SymbolArrowR   = "→"
	SymbolBullet   = "•"
	SymbolEllipsis = "…"
	SymbolGear     = "⚙️ "
	SymbolThought  = "…"
	SymbolPending  = "○"
	SymbolActive   = "◐"
	SymbolTool     = "⚒"
	SymbolUser     = "You"
	SymbolBot      = "DocNexus"
)

// --- Base styles ---

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextAccent  = lipgloss.NewStyle().Foreground(ColorAccent)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// --- Message role styles ---

var (
	UserLabel   = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	BotLabel    = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	SystemLabel = lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
	ErrorLabel  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	ToolLabel   = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	Timestamp = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Faint(true)
)

// --- Reasoning log ---

var (
	// ReasoningStep renders NODE: entries, the pipeline steps.
	ReasoningStep = lipgloss.NewStyle().Foreground(ColorInfo)
	// ReasoningThought renders free-form model thoughts.
	ReasoningThought = lipgloss.NewStyle().Foreground(ColorMuted).Faint(true).Italic(true)

	ReasoningBox = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorBorder).
			PaddingLeft(1)
)

// --- Tab bar styles ---

var (
	TabNormal = lipgloss.NewStyle().
			Foreground(ColorTabFg).
			Background(ColorTabBg).
			Padding(0, 2)

	TabActive = lipgloss.NewStyle().
			Foreground(ColorTabActFg).
			Background(ColorTabActBg).
			Bold(true).
			Padding(0, 2)
)

// --- Status bar ---

var (
	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Background(ColorBgAlt).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)
)

// --- Input area ---

var (
	InputPrompt = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	InputPlaceholder = lipgloss.NewStyle().
				Foreground(ColorFgDim)
)

// --- Welcome panel and file cards ---

var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	CardSelected = Card.
			BorderForeground(ColorBorderActive)

	Title = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)
)

// StageStyle returns the style and symbol for a pipeline stage state.
func StageStyle(s domain.StageStatus) (lipgloss.Style, string) {
	switch s {
	case domain.StageCompleted:
		return TextSuccess, SymbolSuccess
	case domain.StageProcessing:
		return TextWarning, SymbolActive
	default:
		return TextMuted, SymbolPending
	}
}

// MaxContentWidth is the recommended max width for readable text content.
const MaxContentWidth = 100

// MinSplitWidth is the minimum terminal width that shows the split pane.
const MinSplitWidth = 100

// MinTabWidth is the minimum terminal width that shows tab labels (else collapse).
const MinTabWidth = 60

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
