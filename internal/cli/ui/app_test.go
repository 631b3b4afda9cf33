package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmanager/internal/action"
	"vmanager/internal/domain"
	"vmanager/internal/frontend"
	"vmanager/internal/listcache"
)

type fakeHost struct {
	opened   int
	requests []action.Request
	chats    []string
	active   bool
}

func (h *fakeHost) OpenList(user string) error {
	h.opened++
	return nil
}

func (h *fakeHost) HandleUI(req action.Request) error {
	h.requests = append(h.requests, req)
	return nil
}

func (h *fakeHost) HandleChat(user, text string) (bool, error) {
	h.chats = append(h.chats, text)
	return true, nil
}

func (h *fakeHost) WizardActive(user string) bool { return h.active }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok)
	return got, cmd
}

// run executes a host command synchronously and feeds its result back.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	if msg := cmd(); msg != nil {
		m, _ = update(t, m, msg)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func twoPages(t *testing.T) listcache.Page {
	var servers []domain.ServerDescriptor
	for _, name := range []string{"lobby", "survival", "proxy"} {
		servers = append(servers, domain.ServerDescriptor{Name: name, Status: domain.StatusOnline, Port: 25565})
	}
	page, err := listcache.New(servers, 2).Page(0)
	require.NoError(t, err)
	return page
}

func newTestModel(t *testing.T) (Model, *fakeHost) {
	host := &fakeHost{}
	m := NewModel(host, "steve", "ws://proxy/channel")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, host
}

func TestInitRequestsList(t *testing.T) {
	m, host := newTestModel(t)
	run(t, m, m.Init())
	assert.Equal(t, 1, host.opened)
}

func TestListPagingAndSelect(t *testing.T) {
	m, host := newTestModel(t)
	m, _ = update(t, m, pageMsg(twoPages(t)))
	assert.Equal(t, screenList, m.screen)
	assert.False(t, m.loading)
	assert.Equal(t, "Servers (page 1/2)", m.list.Title)

	_, cmd := update(t, m, keyMsg("n"))
	run(t, m, cmd)
	require.Len(t, host.requests, 1)
	assert.Equal(t, action.Request{User: "steve", Verb: action.VerbNextPage, Page: 1}, host.requests[0])

	// No previous page from the first one.
	_, cmd = update(t, m, keyMsg("p"))
	assert.Nil(t, cmd)

	_, cmd = update(t, m, keyMsg("enter"))
	run(t, m, cmd)
	require.Len(t, host.requests, 2)
	assert.Equal(t, action.VerbSelect, host.requests[1].Verb)
	assert.Equal(t, "lobby", host.requests[1].Target)
}

func TestProxyWarningAsksForConfirmation(t *testing.T) {
	m, host := newTestModel(t)
	srv := domain.ServerDescriptor{Name: "proxy", Status: domain.StatusOnline}
	m, _ = update(t, m, serverMsg{server: srv, verbs: []domain.Verb{domain.VerbStop, domain.VerbRestart}})
	require.Equal(t, screenServer, m.screen)

	m, cmd := update(t, m, keyMsg("x"))
	m = run(t, m, cmd)
	assert.Equal(t, action.Request{User: "steve", Verb: action.VerbStop, Target: "proxy"}, host.requests[0])

	m, _ = update(t, m, noticeMsg(frontend.Notice{Text: "Warning: You are trying to stop the proxy you are connected to.", Level: frontend.LevelWarning}))
	assert.Equal(t, domain.VerbStop, m.pending)
	assert.Contains(t, m.View(), "Really stop proxy?")

	m, cmd = update(t, m, keyMsg("y"))
	run(t, m, cmd)
	require.Len(t, host.requests, 2)
	assert.True(t, host.requests[1].Confirmed)
	assert.Equal(t, domain.Verb(""), m.pending)
}

func TestUnavailableVerbKeyIsIgnored(t *testing.T) {
	m, host := newTestModel(t)
	m, _ = update(t, m, serverMsg{server: domain.ServerDescriptor{Name: "lobby", Status: domain.StatusOffline}, verbs: []domain.Verb{domain.VerbStart}})

	_, cmd := update(t, m, keyMsg("x"))
	assert.Nil(t, cmd)
	assert.Empty(t, host.requests)
}

func TestWizardChat(t *testing.T) {
	m, host := newTestModel(t)
	m, _ = update(t, m, pageMsg(twoPages(t)))

	m, cmd := update(t, m, keyMsg("c"))
	require.Equal(t, screenWizard, m.screen)
	require.NotNil(t, cmd)
	// The batch carries the create request; run its parts directly.
	m.dispatch(action.Request{Verb: action.VerbCreate})()
	assert.Equal(t, action.VerbCreate, host.requests[0].Verb)

	// Close from the host must not leave the wizard screen.
	m, _ = update(t, m, closeMsg{})
	assert.Equal(t, screenWizard, m.screen)

	m, _ = update(t, m, noticeMsg(frontend.Notice{Text: "Enter the server name:", Level: frontend.LevelPrompt}))
	assert.Contains(t, m.View(), "Enter the server name:")

	host.active = true
	m, _ = update(t, m, keyMsg("hub"))
	m, cmd = update(t, m, keyMsg("enter"))
	m = run(t, m, cmd)
	assert.Equal(t, []string{"hub"}, host.chats)
	assert.True(t, m.wizard.active)

	host.active = false
	m, cmd = update(t, m, keyMsg("esc"))
	m = run(t, m, cmd)
	assert.Equal(t, []string{"hub", "cancel"}, host.chats)
	assert.False(t, m.wizard.active)

	m, cmd = update(t, m, keyMsg("enter"))
	run(t, m, cmd)
	assert.Equal(t, 1, host.opened)
}

func TestSuccessAfterCloseRefreshesList(t *testing.T) {
	m, host := newTestModel(t)
	m, _ = update(t, m, closeMsg{})
	require.Equal(t, screenIdle, m.screen)

	m, cmd := update(t, m, noticeMsg(frontend.Notice{Text: "Server lobby started.", Level: frontend.LevelSuccess}))
	run(t, m, cmd)
	assert.Equal(t, 1, host.opened)
	assert.True(t, m.loading)
}
