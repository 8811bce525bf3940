// Package style provides a functional API for composing and applying lipgloss-based terminal styles.
package style

import "github.com/charmbracelet/lipgloss"

// Palette defines the application's color scheme.
var (
	Text    = lipgloss.Color("#cdd6f4")
	Overlay = lipgloss.Color("#6c7086")
	Surface = lipgloss.Color("#313244")

	Mauve    = lipgloss.Color("#cba6f7")
	Red      = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")
	Yellow   = lipgloss.Color("#f9e2af")
	Green    = lipgloss.Color("#a6e3a1")
	Sky      = lipgloss.Color("#89dceb")
	Blue     = lipgloss.Color("#89b4fa")
	Lavender = lipgloss.Color("#b4befe")

	// Semantic mappings
	AccentColor  = Mauve
	SuccessColor = Green
	WarningColor = Yellow
	ErrorColor   = Red
	FaintColor   = Overlay
	BorderColor  = Surface
)

// stateColors maps playback states onto the palette.
var stateColors = map[string]lipgloss.Color{
	"playing":   Green,
	"paused":    Yellow,
	"resolving": Sky,
	"preparing": Sky,
	"completed": Lavender,
	"errored":   Red,
	"idle":      Overlay,
}

// StateColor returns the color used to render the named playback state.
func StateColor(state string) lipgloss.Color {
	if c, ok := stateColors[state]; ok {
		return c
	}
	return Text
}
