package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gliv-dev/gliv/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Dracula-inspired
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.Color("#363949")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")

	ColorStatusOpenBg   = lipgloss.Color("#1A3D2A")
	ColorStatusClosedBg = lipgloss.Color("#2A2A3D")
)

// Theme bundles the renderer and the adaptive colours the views use.
type Theme struct {
	Renderer *lipgloss.Renderer

	Base       lipgloss.Style
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Subtext    lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
	Open       lipgloss.AdaptiveColor
	Closed     lipgloss.AdaptiveColor
	InProgress lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
}

// DefaultTheme returns the theme for r; a nil renderer uses the default one.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Theme{
		Renderer:   r,
		Base:       r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1E1F29", Dark: "#F8F8F2"}),
		Primary:    lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:    lipgloss.AdaptiveColor{Light: "#777777", Dark: "#BFBFBF"},
		Border:     lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#44475A"},
		Open:       lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#50FA7B"},
		Closed:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		InProgress: lipgloss.AdaptiveColor{Light: "#1E90FF", Dark: "#8BE9FD"},
		Warning:    lipgloss.AdaptiveColor{Light: "#CC7A00", Dark: "#FFB86C"},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

// PanelStyle returns the border style of a panel.
func (t Theme) PanelStyle(focused bool) lipgloss.Style {
	c := t.Border
	if focused {
		c = t.Primary
	}
	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c)
}

// RenderStatusBadge returns a styled status badge
func RenderStatusBadge(status model.Status, t Theme) string {
	fg, bg, label := ColorSuccess, ColorStatusOpenBg, "OPEN"
	if status.IsClosed() {
		fg, bg, label = ColorMuted, ColorStatusClosedBg, "DONE"
	}
	return t.Renderer.NewStyle().
		Foreground(fg).
		Background(bg).
		Render(label)
}

// RenderMiniBar renders a mini horizontal bar for a value between 0 and 1
func RenderMiniBar(value float64, width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}

	filled := int(value * float64(width))

	var barColor lipgloss.AdaptiveColor
	switch {
	case value >= 1:
		barColor = t.Closed
	case value >= 0.5:
		barColor = t.InProgress
	default:
		barColor = t.Open
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(barColor).Render(bar)
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}
