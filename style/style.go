// Package style provides a functional API for composing and applying lipgloss-based terminal styles.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/melodeck/melodeck/color"
)

// Palette
var (
	Text        = lipgloss.Color("#cdd6f4")
	Subtext     = lipgloss.Color("#a6adc8")
	Surface     = lipgloss.Color("#313244")
	AccentColor = lipgloss.Color("#cba6f7")
	HiRed       = lipgloss.Color("#f38ba8")
	Green       = lipgloss.Color("#a6e3a1")
	Yellow      = lipgloss.Color("#f9e2af")
	Sky         = lipgloss.Color("#89dceb")
)

// New returns an empty lipgloss.Style used as a foundation for visual composition.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Colored initializes a new style with the specified foreground and background colors.
func Colored(fg, bg lipgloss.Color) lipgloss.Style {
	return New().Foreground(fg).Background(bg)
}

// Fg returns a stateless rendering function that applies the specified foreground color to a string.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(c, "").Render(s) }
}

var (
	Faint  = func(s string) string { return New().Faint(true).Render(s) }
	Bold   = func(s string) string { return New().Bold(true).Render(s) }
	Italic = func(s string) string { return New().Italic(true).Render(s) }
)

// Title renders a padded banner.
var Title = func(s string) string {
	return Colored(color.New("230"), color.New("62")).Padding(0, 1).Render(s)
}

// Tag returns a rendering function that encapsulates a string in a colored, padded tag block.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(fg, bg).Padding(0, 1).Render(s) }
}

// Status renders a playback status as a colored tag.
func Status(status string) string {
	bg := Surface
	switch status {
	case "playing":
		bg = Green
	case "paused":
		bg = Yellow
	case "resolving":
		bg = Sky
	case "cancelled":
		bg = HiRed
	}
	return Tag(color.New("0"), bg)(status)
}
