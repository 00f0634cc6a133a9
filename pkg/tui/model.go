// Package tui is an interactive terminal session over a single workflow controller.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/helmcode/zeropatch/pkg/workflow"
)

const headerHeight = 7

type opDoneMsg struct {
	err error
}

// Model renders whatever state the controller is in. It holds no workflow
// state of its own beyond the last View it read.
type Model struct {
	ctrl     *workflow.Controller
	timeout  time.Duration
	input    textinput.Model
	spinner  spinner.Model
	results  viewport.Model
	view     workflow.View
	quitting bool
}

// New binds a session model to ctrl. The input starts with ctrl's reference.
func New(ctrl *workflow.Controller, timeout time.Duration) *Model {
	in := textinput.New()
	in.Placeholder = "Paste GitHub Repository URL here..."
	in.Prompt = "› "
	in.CharLimit = 512
	in.Width = 72
	in.SetValue(ctrl.Reference())
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

	m := &Model{
		ctrl:    ctrl,
		timeout: timeout,
		input:   in,
		spinner: sp,
		results: viewport.New(80, 20),
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.ctrl.Close()
			return m, tea.Quit
		case "enter":
			if !m.view.CanAnalyze {
				return m, nil
			}
			m.ctrl.SetReference(m.input.Value())
			return m, m.run(m.ctrl.Analyze)
		case "ctrl+p":
			if !m.view.CanGeneratePatch {
				return m, nil
			}
			return m, m.run(m.ctrl.GeneratePatch)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.SetReference(m.input.Value())
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-4, 20)
		m.results.Width = msg.Width
		m.results.Height = max(msg.Height-headerHeight, 3)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case opDoneMsg:
		m.results.GotoTop()
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

// run executes op off the render loop. The controller flips into its busy
// phase before the request goes out; the spinner tick picks that up.
func (m *Model) run(op func(context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{err: op(ctx)}
	}
}

func (m *Model) refresh() {
	m.view = m.ctrl.View()

	var b strings.Builder
	if m.view.Findings != nil {
		b.WriteString(renderFindings(m.view.Findings))
	}
	if m.view.Patches != nil {
		b.WriteString(renderPatches(m.view.Patches))
	}
	m.results.SetContent(b.String())
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🛡  ZeroPatch AI · Code Analysis & Patch Generator"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch m.view.Phase {
	case workflow.PhaseAnalyzing:
		b.WriteString(m.spinner.View() + " Analyzing...")
	case workflow.PhasePatching:
		b.WriteString(m.spinner.View() + " Generating patch...")
	default:
		b.WriteString(helpStyle.Render(m.help()))
	}
	b.WriteString("\n")

	if m.view.HasError() {
		b.WriteString(errorStyle.Render("⚠ " + m.view.LastError))
		b.WriteString("\n")
	}

	b.WriteString(m.results.View())
	return b.String()
}

func (m *Model) help() string {
	keys := []string{"enter analyze"}
	if m.view.CanGeneratePatch {
		keys = append(keys, "ctrl+p generate patch")
	}
	keys = append(keys, "↑/↓ scroll", "esc quit")
	return strings.Join(keys, " • ")
}
