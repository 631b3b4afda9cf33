package ui

import (
	"github.com/charmbracelet/lipgloss"

	"vmanager/internal/frontend"
)

// Palette shared by the dashboard and the line-mode commands.
const (
	colorAccent  = lipgloss.Color("62")
	colorLight   = lipgloss.Color("230")
	colorMuted   = lipgloss.Color("241")
	colorGood    = lipgloss.Color("#04B575")
	colorWarn    = lipgloss.Color("220")
	colorBad     = lipgloss.Color("196")
	colorPrompt  = lipgloss.Color("214")
	colorChoices = lipgloss.Color("87")
)

var (
	InfoStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorGood)
	WarnStyle    = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorBad)
	PromptStyle  = lipgloss.NewStyle().Foreground(colorPrompt)
	ChoiceStyle  = lipgloss.NewStyle().Foreground(colorChoices)
	HeadingStyle = lipgloss.NewStyle().Foreground(colorChoices).Bold(true)
)

// Dashboard chrome.
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorLight).
			Background(colorAccent).
			Bold(true).
			Padding(0, 1)

	keyStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	descStyle = InfoStyle
)

// NoticeStyle picks the style a host notice is rendered with.
func NoticeStyle(l frontend.Level) lipgloss.Style {
	switch l {
	case frontend.LevelSuccess:
		return SuccessStyle
	case frontend.LevelWarning:
		return WarnStyle
	case frontend.LevelError:
		return ErrorStyle
	case frontend.LevelPrompt:
		return PromptStyle
	case frontend.LevelHeading:
		return HeadingStyle
	default:
		return InfoStyle
	}
}
