// Package style provides shared color and glyph primitives for the CLI's
// log and script-output rendering.
package style

import "github.com/charmbracelet/lipgloss"

// Palette colors shared by the logger and the linear renderer.
var (
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Glyphs used to prefix rendered lines.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
)
