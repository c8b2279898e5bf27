package ui

import "charm.land/lipgloss/v2"

var (
	colorAccent  = lipgloss.Color("#7aa2f7")
	colorMuted   = lipgloss.Color("#565f89")
	colorMain    = lipgloss.Color("#9ece6a")
	colorScatter = lipgloss.Color("#e0af68")
	colorError   = lipgloss.Color("#f7768e")
	colorBorder  = lipgloss.Color("#292e42")
)

// styles used by the view
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle  = lipgloss.NewStyle().Bold(true).Reverse(true)
	mainStyle    = lipgloss.NewStyle().Foreground(colorMain).Bold(true)
	scatterStyle = lipgloss.NewStyle().Foreground(colorScatter).Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(colorAccent)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.BorderForeground(colorAccent)

	noticeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(1, 2)

	noticeTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)
