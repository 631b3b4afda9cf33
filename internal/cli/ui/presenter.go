package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"vmanager/internal/domain"
	"vmanager/internal/frontend"
	"vmanager/internal/listcache"
)

type noticeMsg frontend.Notice

type choicesMsg struct {
	options []string
	def     string
}

type pageMsg listcache.Page

type serverMsg struct {
	server domain.ServerDescriptor
	verbs  []domain.Verb
}

type closeMsg struct{}

type errMsg struct{ err error }

// sender is the part of *tea.Program the presenter needs.
type sender interface {
	Send(msg tea.Msg)
}

// Presenter forwards host output into the running program as messages. It is
// called on the host executor, so the model must never call the host from
// Update; host calls go through tea.Cmd instead.
type Presenter struct {
	program sender
}

func NewPresenter() *Presenter {
	return &Presenter{}
}

func (p *Presenter) attach(s sender) {
	p.program = s
}

func (p *Presenter) send(msg tea.Msg) {
	if p.program != nil {
		p.program.Send(msg)
	}
}

func (p *Presenter) Notify(user string, n frontend.Notice) {
	p.send(noticeMsg(n))
}

func (p *Presenter) Suggest(user string, options []string, def string) {
	p.send(choicesMsg{options: options, def: def})
}

func (p *Presenter) ShowList(user string, page listcache.Page) {
	p.send(pageMsg(page))
}

func (p *Presenter) ShowServer(user string, srv domain.ServerDescriptor, verbs []domain.Verb) {
	p.send(serverMsg{server: srv, verbs: verbs})
}

func (p *Presenter) Close(user string) {
	p.send(closeMsg{})
}
