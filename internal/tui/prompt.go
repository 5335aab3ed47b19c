// Package tui provides the interactive terminal pieces of stashsweep.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/stashsweep/internal/connectors"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	warningColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warningColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// confirmModel asks a yes/no question, falling back to a default answer when
// the optional countdown runs out.
type confirmModel struct {
	question      string
	defaultAnswer bool
	answer        bool
	done          bool
	timed         bool
	timer         timer.Model
}

func newConfirmModel(question string, timeout time.Duration, defaultAnswer bool) confirmModel {
	m := confirmModel{question: question, defaultAnswer: defaultAnswer, answer: defaultAnswer}
	if timeout > 0 {
		m.timed = true
		m.timer = timer.NewWithInterval(timeout, time.Second)
	}
	return m
}

// Init implements tea.Model
func (m confirmModel) Init() tea.Cmd {
	if m.timed {
		return m.timer.Init()
	}
	return nil
}

// Update implements tea.Model
func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			return m.finish(true)
		case "n", "N":
			return m.finish(false)
		case "enter", "esc", "ctrl+c":
			return m.finish(m.defaultAnswer)
		}

	case timer.TickMsg:
		var cmd tea.Cmd
		m.timer, cmd = m.timer.Update(msg)
		return m, cmd

	case timer.TimeoutMsg:
		if msg.ID == m.timer.ID() {
			return m.finish(m.defaultAnswer)
		}
	}
	return m, nil
}

func (m confirmModel) finish(answer bool) (tea.Model, tea.Cmd) {
	m.answer = answer
	m.done = true
	return m, tea.Quit
}

// View implements tea.Model
func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	choices := "[y/N]"
	if m.defaultAnswer {
		choices = "[Y/n]"
	}

	var b strings.Builder
	b.WriteString(questionStyle.Render(m.question) + " " + choices)
	if m.timed {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  (default in %s)", m.timer.View())))
	}
	b.WriteString("\n")
	return b.String()
}

// Prompt asks questions on a terminal. It implements connectors.Confirmer.
type Prompt struct {
	in  io.Reader
	out io.Writer
}

// NewPrompt creates a prompt reading keys from in and drawing to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

// Confirm asks question and waits for y or n. A timeout of zero waits
// indefinitely; otherwise defaultAnswer is returned once it passes.
func (p *Prompt) Confirm(ctx context.Context, question string, timeout time.Duration, defaultAnswer bool) (bool, error) {
	prog := tea.NewProgram(
		newConfirmModel(question, timeout, defaultAnswer),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		return defaultAnswer, fmt.Errorf("prompt: %w", err)
	}
	return final.(confirmModel).answer, nil
}

var _ connectors.Confirmer = (*Prompt)(nil)
