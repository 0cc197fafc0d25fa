package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Step represents the current step in the wizard
type Step int

const (
	StepName Step = iota
	StepStarter
	StepSummary
	StepComplete
)

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
	Help  key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.Quit, k.Help}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Enter, k.Back},
		{k.Quit, k.Help},
	}
}

// Model represents the wizard state
type Model struct {
	step Step

	config TemplateConfig

	nameInput    textinput.Model
	selectedItem int
	help         help.Model

	quitting     bool
	errorMessage string
}

// NewModel creates the wizard. A non-empty name is filled in for the user.
func NewModel(name string, config TemplateConfig) Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "blog/first-post"
	nameInput.Focus()
	nameInput.CharLimit = 100
	nameInput.Width = 40
	if name != "" {
		nameInput.SetValue(name)
	}

	if config.Starter == "" {
		config.Starter = Starters[0].Name
	}

	return Model{
		step:      StepName,
		config:    config,
		nameInput: nameInput,
		help:      help.New(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepName:
			if cmd, handled := m.handleNameKeys(msg); handled {
				return m, cmd
			}

		case StepStarter:
			return m, m.handleStarterKeys(msg)

		case StepSummary:
			switch {
			case key.Matches(msg, DefaultKeyMap.Enter):
				m.step = StepComplete
				return m, tea.Quit
			case key.Matches(msg, DefaultKeyMap.Back):
				m.step = StepStarter
				return m, nil
			}
			return m, nil
		}
	}

	if m.step == StepName {
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNameKeys reports whether it consumed msg; anything else goes to the
// text input
func (m *Model) handleNameKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Enter):
		name := strings.TrimSpace(m.nameInput.Value())
		if err := ValidateTemplateName(name); err != nil {
			m.errorMessage = err.Error()
			return nil, true
		}
		m.errorMessage = ""
		m.config.Name = name
		m.nameInput.Blur()
		m.step = StepStarter
		return nil, true

	case key.Matches(msg, DefaultKeyMap.Back):
		m.quitting = true
		return tea.Quit, true
	}
	return nil, false
}

// handleStarterKeys handles keyboard input for the starter selection step
func (m *Model) handleStarterKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.selectedItem > 0 {
			m.selectedItem--
		}

	case key.Matches(msg, DefaultKeyMap.Down):
		if m.selectedItem < len(Starters)-1 {
			m.selectedItem++
		}

	case key.Matches(msg, DefaultKeyMap.Enter):
		m.config.Starter = Starters[m.selectedItem].Name
		m.step = StepSummary

	case key.Matches(msg, DefaultKeyMap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, DefaultKeyMap.Back):
		m.step = StepName
		m.nameInput.Focus()
		return textinput.Blink
	}
	return nil
}

// View renders the UI
func (m Model) View() string {
	if m.quitting || m.step == StepComplete {
		return ""
	}

	var content string
	switch m.step {
	case StepName:
		content = m.renderName()
	case StepStarter:
		content = m.renderStarter()
	case StepSummary:
		content = m.renderSummary()
	}

	return content + "\n\n" + m.help.View(DefaultKeyMap) + "\n"
}

func (m Model) renderName() string {
	parts := []string{
		titleStyle.Render("📄 New template"),
		subtitleStyle.Render(fmt.Sprintf("Name, relative to %s", m.config.Dir)),
		"",
		m.nameInput.View(),
	}
	if m.errorMessage != "" {
		parts = append(parts, "", ErrorStyle.Render(m.errorMessage))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderStarter() string {
	var items []string
	for i, s := range Starters {
		if i == m.selectedItem {
			items = append(items, selectedStyle.Render("▶ "+strings.ToUpper(s.Name))+
				"\n  "+s.Description)
		} else {
			items = append(items, "  "+strings.ToUpper(s.Name)+
				"\n  "+MutedStyle.Render(s.Description))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("🎨 Starter"),
		boxStyle.Render(strings.Join(items, "\n\n")),
	)
}

func (m Model) renderSummary() string {
	tmpl, data := m.config.Paths()
	lines := []string{
		"Template: " + selectedStyle.Render(tmpl),
		"Starter:  " + m.config.Starter,
	}
	if s, ok := FindStarter(m.config.Starter); ok && s.Data != "" {
		lines = append(lines, "Data:     "+data)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("✨ Ready"),
		boxStyle.Render(strings.Join(lines, "\n")),
		MutedStyle.Render("Press enter to create"),
	)
}

// Config returns the template configuration chosen so far
func (m Model) Config() TemplateConfig {
	return m.config
}

// Done reports whether the user confirmed the summary
func (m Model) Done() bool {
	return m.step == StepComplete
}
