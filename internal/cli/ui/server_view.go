package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vmanager/internal/action"
	"vmanager/internal/domain"
)

var verbKeys = map[domain.Verb]string{
	domain.VerbStart:   "s",
	domain.VerbStop:    "x",
	domain.VerbRestart: "r",
}

func (m Model) updateServer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != "" {
		switch msg.String() {
		case "y":
			verb := m.pending
			m.pending = ""
			return m, m.dispatch(action.Request{Verb: action.Verb(verb), Target: m.server.Name, Confirmed: true})
		case "n", "esc":
			m.pending = ""
			m.addNotice(descStyle.Render("Cancelled."))
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "b", "esc":
		m.loading = true
		m.screen = screenList
		return m, m.dispatch(action.Request{Verb: action.VerbBack})
	}

	for _, v := range m.verbs {
		if verbKeys[v] == msg.String() {
			m.lastCmd = v
			return m, m.dispatch(action.Request{Verb: action.Verb(v), Target: m.server.Name})
		}
	}
	return m, nil
}

func (m Model) serverView() string {
	s := m.server
	rows := []string{
		badgeStyle.Render(s.Name),
		"",
		fmt.Sprintf("%s %s", descStyle.Render("Status: "), s.Status),
		fmt.Sprintf("%s %s", descStyle.Render("Address:"), s.Address()),
		fmt.Sprintf("%s %s %s", descStyle.Render("Type:   "), s.SoftwareType, s.SoftwareVersion),
		"",
	}

	if m.pending != "" {
		rows = append(rows, WarnStyle.Render(fmt.Sprintf("Really %s %s?", m.pending, s.Name)), helpLine("y", "confirm", "n", "cancel"))
		return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	var pairs []string
	for _, v := range m.verbs {
		pairs = append(pairs, verbKeys[v], string(v))
	}
	if len(pairs) == 0 {
		rows = append(rows, descStyle.Render(fmt.Sprintf("No actions available while %s.", strings.ToLower(string(s.Status)))))
	}
	pairs = append(pairs, "b", "back", "q", "quit")
	rows = append(rows, helpLine(pairs...))

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
