package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"vmanager/internal/action"
	"vmanager/internal/domain"
	"vmanager/internal/listcache"
)

type item struct {
	server domain.ServerDescriptor
}

func (i item) Title() string { return i.server.Name }
func (i item) Description() string {
	statusIcon := "🔴"
	switch i.server.Status.Normalize() {
	case domain.StatusOnline:
		statusIcon = "🟢"
	case domain.StatusStarting, domain.StatusRestarting:
		statusIcon = "🟡"
	case domain.StatusStopping:
		statusIcon = "🟠"
	case domain.StatusUnknown:
		statusIcon = "⚪"
	}
	return fmt.Sprintf("%s %s | %s | %s %s", statusIcon, i.server.Status, i.server.Address(), i.server.SoftwareType, i.server.SoftwareVersion)
}
func (i item) FilterValue() string { return i.server.Name }

func pageItems(page listcache.Page) []list.Item {
	items := make([]list.Item, 0, len(page.Items))
	for _, s := range page.Items {
		items = append(items, item{server: s})
	}
	return items
}

type listKeyMap struct {
	next    key.Binding
	prev    key.Binding
	refresh key.Binding
	create  key.Binding
	close   key.Binding
	quit    key.Binding
}

func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next page"),
		),
		prev: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous page"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create server"),
		),
		close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k *listKeyMap) bindings() []key.Binding {
	return []key.Binding{k.next, k.prev, k.refresh, k.create, k.close}
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.close):
		return m, m.dispatch(action.Request{Verb: action.VerbClose})
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		return m, m.openList()
	case key.Matches(msg, m.keys.create):
		return m.startWizard()
	case key.Matches(msg, m.keys.next):
		if m.page.HasNext {
			return m, m.dispatch(action.Request{Verb: action.VerbNextPage, Page: m.page.Index + 1})
		}
		return m, nil
	case key.Matches(msg, m.keys.prev):
		if m.page.HasPrev {
			return m, m.dispatch(action.Request{Verb: action.VerbPrevPage, Page: m.page.Index - 1})
		}
		return m, nil
	case msg.String() == "enter":
		if i, ok := m.list.SelectedItem().(item); ok {
			return m, m.dispatch(action.Request{Verb: action.VerbSelect, Target: i.server.Name})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// listTitle shows the page position once there is more than one page.
func listTitle(page listcache.Page) string {
	if page.Total <= 1 {
		return "Servers"
	}
	return fmt.Sprintf("Servers (page %d/%d)", page.Index+1, page.Total)
}
