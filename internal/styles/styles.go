// Package styles holds the terminal colors and lipgloss styles shared by user
// output and report rendering.
package styles

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	HasDarkBackground = lipgloss.HasDarkBackground()

	PrimaryColor = func() string {
		if HasDarkBackground {
			return "213"
		}
		return "53"
	}()

	WarningColor = "214"

	// BorderColor is used for borders and dividers
	BorderColor = "240"

	// AccentColor is used for diff paths and request identifiers
	AccentColor = "205"

	ErrorColor = "196"

	SuccessColor = func() string {
		if HasDarkBackground {
			return "42"
		}
		return "34"
	}()

	// Removed and added lines of a unified diff
	DiffRemovedColor = "160"
	DiffAddedColor   = func() string {
		if HasDarkBackground {
			return "42"
		}
		return "28"
	}()
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(PrimaryColor)).
			MarginBottom(1)

	HeadingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(PrimaryColor))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(SuccessColor))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ErrorColor))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(WarningColor))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(AccentColor))

	DiffRemovedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(DiffRemovedColor))

	DiffAddedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(DiffAddedColor))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	FailureBoxStyle = BoxStyle.
			BorderForeground(lipgloss.Color(ErrorColor))

	SuccessBoxStyle = BoxStyle.
			BorderForeground(lipgloss.Color(SuccessColor))
)

func NoColor() bool {
	return termenv.EnvNoColor()
}

// Render applies style unless colors are disabled.
func Render(style lipgloss.Style, s string) string {
	if NoColor() {
		return s
	}
	return style.Render(s)
}

// HuhTheme returns a huh theme matching the rest of the output.
func HuhTheme() *huh.Theme {
	t := huh.ThemeBase()
	primary := lipgloss.Color(PrimaryColor)

	t.Focused.Title = lipgloss.NewStyle().Bold(true).Foreground(primary)
	t.Focused.Base = lipgloss.NewStyle().PaddingLeft(0)
	t.Blurred.Base = lipgloss.NewStyle().PaddingLeft(0)
	t.Focused.Description = DimStyle
	t.Focused.ErrorMessage = ErrorStyle

	return t
}
