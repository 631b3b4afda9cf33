package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vmanager/internal/frontend"
)

const maxTranscript = 14

// wizardView is the chat-style transcript of a creation wizard.
type wizardView struct {
	input      textinput.Model
	transcript []string
	choices    string
	active     bool
}

func newWizardView() wizardView {
	ti := textinput.New()
	ti.Placeholder = "type an answer, or 'cancel'"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()
	return wizardView{input: ti}
}

func (w *wizardView) add(n frontend.Notice) {
	w.transcript = append(w.transcript, NoticeStyle(n.Level).Render(n.Text))
	if len(w.transcript) > maxTranscript {
		w.transcript = w.transcript[len(w.transcript)-maxTranscript:]
	}
	w.choices = ""
}

func (w *wizardView) setChoices(options []string, def string) {
	if def != "" {
		w.choices = "Latest: " + ChoiceStyle.Render("["+def+"]")
		return
	}
	parts := make([]string, len(options))
	for i, o := range options {
		parts[i] = ChoiceStyle.Render("[" + o + "]")
	}
	w.choices = strings.Join(parts, " ")
}

func (w wizardView) view() string {
	rows := []string{badgeStyle.Render("Create Server"), ""}
	rows = append(rows, w.transcript...)
	if w.choices != "" {
		rows = append(rows, w.choices)
	}
	rows = append(rows, "")
	if w.active {
		rows = append(rows, w.input.View(), "", helpLine("enter", "send", "esc", "cancel"))
	} else {
		rows = append(rows, helpLine("enter", "back to list", "q", "quit"))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) updateWizard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.wizard.active {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "enter", "esc":
			m.loading = true
			m.screen = screenList
			return m, m.openList()
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, m.chat("cancel")
	case "enter":
		text := m.wizard.input.Value()
		m.wizard.input.Reset()
		m.wizard.transcript = append(m.wizard.transcript, descStyle.Render("> "+text))
		return m, m.chat(text)
	}

	var cmd tea.Cmd
	m.wizard.input, cmd = m.wizard.input.Update(msg)
	return m, cmd
}

func (m Model) chat(text string) tea.Cmd {
	host, user := m.host, m.user
	return func() tea.Msg {
		if _, err := host.HandleChat(user, text); err != nil {
			return errMsg{err}
		}
		return chatResultMsg{active: host.WizardActive(user)}
	}
}
