package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"vmanager/internal/domain"
	"vmanager/internal/frontend"
	"vmanager/internal/listcache"
)

type recordingSender struct {
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestPresenterForwardsToProgram(t *testing.T) {
	p := NewPresenter()

	// Nothing attached yet; output is dropped.
	p.Notify("steve", frontend.Notice{Text: "early"})

	rec := &recordingSender{}
	p.attach(rec)

	srv := domain.ServerDescriptor{Name: "lobby"}
	p.Notify("steve", frontend.Notice{Text: "hi", Level: frontend.LevelInfo})
	p.Suggest("steve", []string{"PaperMC", "Velocity"}, "")
	p.ShowList("steve", listcache.Page{Total: 1})
	p.ShowServer("steve", srv, []domain.Verb{domain.VerbStart})
	p.Close("steve")

	assert.Equal(t, []tea.Msg{
		noticeMsg{Text: "hi", Level: frontend.LevelInfo},
		choicesMsg{options: []string{"PaperMC", "Velocity"}},
		pageMsg{Total: 1},
		serverMsg{server: srv, verbs: []domain.Verb{domain.VerbStart}},
		closeMsg{},
	}, rec.msgs)
}
