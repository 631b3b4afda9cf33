package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vmanager/internal/action"
	"vmanager/internal/domain"
	"vmanager/internal/frontend"
	"vmanager/internal/listcache"
)

const maxNotices = 6

// Host is the part of the front-end host the dashboard drives.
type Host interface {
	OpenList(user string) error
	HandleUI(req action.Request) error
	HandleChat(user, text string) (bool, error)
	WizardActive(user string) bool
}

type screen int

const (
	screenIdle screen = iota
	screenList
	screenServer
	screenWizard
)

type chatResultMsg struct {
	active bool
}

// Model is the dashboard. Everything it learns about servers arrives from the
// host through the Presenter.
type Model struct {
	host   Host
	user   string
	proxy  string
	screen screen

	list    list.Model
	keys    *listKeyMap
	page    listcache.Page
	loading bool

	server  domain.ServerDescriptor
	verbs   []domain.Verb
	lastCmd domain.Verb
	pending domain.Verb

	wizard wizardView

	notices []string
	width   int
	height  int
}

func NewModel(host Host, user, proxy string) Model {
	keys := newListKeyMap()
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Servers"
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	return Model{
		host:    host,
		user:    user,
		proxy:   proxy,
		screen:  screenList,
		list:    l,
		keys:    keys,
		loading: true,
		wizard:  newWizardView(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.openList()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-maxNotices-2)
		m.wizard.input.Width = msg.Width - 10
		return m, nil

	case pageMsg:
		m.loading = false
		m.page = listcache.Page(msg)
		m.screen = screenList
		m.list.Title = listTitle(m.page)
		return m, m.list.SetItems(pageItems(m.page))

	case serverMsg:
		m.server = msg.server
		m.verbs = msg.verbs
		m.pending = ""
		m.screen = screenServer
		return m, nil

	case closeMsg:
		if m.screen != screenWizard {
			m.screen = screenIdle
		}
		return m, nil

	case noticeMsg:
		return m.onNotice(frontend.Notice(msg))

	case choicesMsg:
		m.wizard.setChoices(msg.options, msg.def)
		return m, nil

	case chatResultMsg:
		m.wizard.active = msg.active
		return m, nil

	case errMsg:
		if !alreadyReported(msg.err) {
			m.addNotice(ErrorStyle.Render(msg.err.Error()))
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen {
		case screenList:
			return m.updateList(msg)
		case screenServer:
			return m.updateServer(msg)
		case screenWizard:
			return m.updateWizard(msg)
		default:
			return m.updateIdle(msg)
		}
	}

	if m.screen == screenList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	if m.screen == screenWizard {
		var cmd tea.Cmd
		m.wizard.input, cmd = m.wizard.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) onNotice(n frontend.Notice) (tea.Model, tea.Cmd) {
	if m.screen == screenWizard {
		m.wizard.add(n)
		return m, nil
	}

	m.addNotice(NoticeStyle(n.Level).Render(n.Text))
	switch {
	case n.Level == frontend.LevelWarning && m.screen == screenServer:
		m.pending = m.lastCmd
	case n.Level == frontend.LevelSuccess && m.screen == screenIdle:
		// An action went through; show the new state.
		m.loading = true
		return m, m.openList()
	}
	return m, nil
}

func (m Model) updateIdle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh), msg.String() == "enter":
		m.loading = true
		return m, m.openList()
	case key.Matches(msg, m.keys.create):
		return m.startWizard()
	}
	return m, nil
}

func (m *Model) addNotice(line string) {
	m.notices = append(m.notices, line)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m Model) openList() tea.Cmd {
	host, user := m.host, m.user
	return func() tea.Msg {
		if err := host.OpenList(user); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) dispatch(req action.Request) tea.Cmd {
	host := m.host
	req.User = m.user
	return func() tea.Msg {
		if err := host.HandleUI(req); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) startWizard() (tea.Model, tea.Cmd) {
	m.screen = screenWizard
	m.wizard = newWizardView()
	m.wizard.active = true
	return m, tea.Batch(textinput.Blink, m.dispatch(action.Request{Verb: action.VerbCreate}))
}

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenList:
		switch {
		case m.loading:
			body = descStyle.Render("Fetching server list...")
		case len(m.page.Items) == 0:
			body = descStyle.Render("No servers found.") + "\n\n" + helpLine("r", "refresh", "c", "create server", "q", "quit")
		default:
			body = m.list.View()
		}
	case screenServer:
		body = m.serverView()
	case screenWizard:
		body = m.wizard.view()
	default:
		body = descStyle.Render("Menu closed.") + "\n\n" + helpLine(
			"r", "open server list",
			"c", "create server",
			"q", "quit",
		)
	}

	header := badgeStyle.Render("VMANAGER") + " " + descStyle.Render(fmt.Sprintf("%s @ %s", m.user, m.proxy))

	parts := []string{header, "", body}
	if len(m.notices) > 0 {
		parts = append(parts, "", strings.Join(m.notices, "\n"))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, keyStyle.Render(pairs[i])+" "+descStyle.Render(pairs[i+1]))
	}
	return strings.Join(parts, descStyle.Render(" • "))
}

// alreadyReported is true for errors the host has already shown as a notice.
func alreadyReported(err error) bool {
	return errors.Is(err, action.ErrServerNotFound) ||
		errors.Is(err, action.ErrUnknownVerb) ||
		errors.Is(err, listcache.ErrPageOutOfRange) ||
		errors.Is(err, frontend.ErrNotConnected)
}

// Run drives the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, host Host, presenter *Presenter, user, proxy string) error {
	program := tea.NewProgram(NewModel(host, user, proxy), tea.WithAltScreen(), tea.WithContext(ctx))
	presenter.attach(program)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
