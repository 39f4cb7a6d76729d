package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
var (
	colorAccent  = lipgloss.Color("74")  // blue
	colorMuted   = lipgloss.Color("245") // medium gray
	colorBlocked = lipgloss.Color("196") // red
	colorAging   = lipgloss.Color("214") // orange
	colorDone    = lipgloss.Color("42")  // green
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(colorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	badgeStyles = map[string]lipgloss.Style{
		"BLOCKED": lipgloss.NewStyle().Bold(true).Foreground(colorBlocked),
		"AGING":   lipgloss.NewStyle().Foreground(colorAging),
		"DONE":    lipgloss.NewStyle().Foreground(colorDone),
	}
)

var noColor bool

func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return render(accentStyle, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return render(mutedStyle, s)
}

// RenderHeader returns s styled as a section header.
func RenderHeader(s string) string {
	return render(headerStyle, s)
}

// HealthBadges renders the set health flags as bracketed badges, in the
// order blocked, aging, done. Nil or all-false indicators render as "".
func HealthBadges(h *model.HealthIndicators) string {
	if h == nil {
		return ""
	}
	var parts []string
	for _, b := range []struct {
		set  bool
		name string
	}{
		{h.IsBlocked, "BLOCKED"},
		{h.IsAging, "AGING"},
		{h.IsCompleted, "DONE"},
	} {
		if b.set {
			parts = append(parts, render(badgeStyles[b.name], "["+b.name+"]"))
		}
	}
	return strings.Join(parts, " ")
}

// RenderPct formats a completion percentage, colored green at 100%,
// orange below 50% and accent otherwise.
func RenderPct(pct float64) string {
	s := fmt.Sprintf("%5.1f%%", pct)
	switch {
	case pct >= 100:
		return render(badgeStyles["DONE"], s)
	case pct < 50:
		return render(badgeStyles["AGING"], s)
	default:
		return render(accentStyle, s)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
