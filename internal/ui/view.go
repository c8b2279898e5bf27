package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"spectrecon/internal/models"
)

// View implements tea.Model
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.SetContent(m.render())
	return view
}

func (m *Model) render() string {
	if m.notice != nil {
		return m.renderNotice()
	}

	sections := []string{
		titleStyle.Render("spectrecon") + "  " + mutedStyle.Render(m.studyLine()),
		m.renderTable(),
		m.renderParameters(),
	}

	switch m.mode {
	case modeOpen:
		sections = append(sections, "Study file: "+m.path.View())
	case modeSave:
		sections = append(sections, "Folder name: "+m.folder.View())
	}

	if m.status != "" {
		sections = append(sections, statusStyle.Render(m.fit(m.status)))
	}
	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) studyLine() string {
	st := m.session.Study()
	if st == nil {
		return "no study loaded"
	}
	line := st.Path
	if st.SeriesDescription != "" {
		line += " (" + st.SeriesDescription + ")"
	}
	return m.fit(line)
}

// columns of the window table
const (
	nameWidth  = 24
	valueWidth = 9
	labelWidth = 8
)

func (m *Model) renderTable() string {
	windows := m.session.Windows()

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %*s %*s %*s %-*s",
		nameWidth, "Name",
		valueWidth, "Lower",
		valueWidth, "Upper",
		valueWidth, "Center",
		labelWidth, "Label")))

	if len(windows) == 0 {
		b.WriteString("\n" + mutedStyle.Render("no energy windows"))
	}
	for i, w := range windows {
		// Names may hold wide runes, so pad by display width
		name := runewidth.FillRight(ansi.Truncate(w.Name, nameWidth, "…"), nameWidth)
		row := fmt.Sprintf("%s %*.2f %*.2f %*.2f ",
			name,
			valueWidth, w.LowerLimit,
			valueWidth, w.UpperLimit,
			valueWidth, w.Center())
		label := fmt.Sprintf("%-*s", labelWidth, w.Label.String())
		switch w.Label {
		case models.Main:
			label = mainStyle.Render(label)
		case models.Scatter:
			label = scatterStyle.Render(label)
		}
		if i == m.cursor && m.focus == focusTable && m.mode == modeBrowse {
			row = cursorStyle.Render(row)
		}
		b.WriteString("\n" + row + label)
	}

	style := paneStyle
	if m.focus == focusTable {
		style = focusedPaneStyle
	}
	return style.Render(b.String())
}

func (m *Model) renderParameters() string {
	line := "Iterations " + m.iterations.View() + "   Subsets " + m.subsets.View()
	style := paneStyle
	if m.focus != focusTable {
		style = focusedPaneStyle
	}
	return style.Render(line)
}

func (m *Model) renderHelp() string {
	if m.mode == modeRunning {
		return mutedStyle.Render("esc cancel • ctrl+c quit")
	}
	if m.mode != modeBrowse {
		return mutedStyle.Render("enter confirm • esc back")
	}
	var parts []string
	for _, b := range m.keys.shortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return mutedStyle.Render(m.fit(strings.Join(parts, " • ")))
}

func (m *Model) renderNotice() string {
	body := noticeTitleStyle.Render(m.notice.Title) + "\n\n" + m.notice.Message + "\n\n" +
		mutedStyle.Render("press enter to continue")
	return noticeStyle.Render(body)
}

// fit truncates s to the terminal width, once it is known
func (m *Model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return ansi.Truncate(s, m.width, "…")
}
