package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const viewerChrome = 2 // title and help lines

// viewerModel pages through a block of text.
type viewerModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

func newViewerModel(title, content string) viewerModel {
	return viewerModel{title: title, content: content}
}

// Init implements tea.Model
func (m viewerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		height := max(msg.Height-viewerChrome, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m viewerModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	help := helpStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll • q quit", m.viewport.ScrollPercent()*100))
	return titleStyle.Render(m.title) + "\n" + m.viewport.View() + "\n" + help
}

// Browse shows content in a full-screen pager until the user quits.
func Browse(title, content string) error {
	_, err := tea.NewProgram(newViewerModel(title, content), tea.WithAltScreen()).Run()
	return err
}
