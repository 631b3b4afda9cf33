package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"vmanager/internal/cli/ui"
	"vmanager/internal/domain"
	"vmanager/internal/frontend"
	"vmanager/internal/listcache"
)

// consolePresenter prints host output line by line and hands lists and
// responses to the waiting command.
type consolePresenter struct {
	out      io.Writer
	pages    chan listcache.Page
	outcomes chan frontend.Notice
	warned   atomic.Bool
}

func newConsolePresenter(out io.Writer) *consolePresenter {
	return &consolePresenter{
		out:      out,
		pages:    make(chan listcache.Page, 4),
		outcomes: make(chan frontend.Notice, 16),
	}
}

func (p *consolePresenter) Notify(user string, n frontend.Notice) {
	fmt.Fprintln(p.out, ui.NoticeStyle(n.Level).Render(n.Text))

	switch n.Level {
	case frontend.LevelWarning:
		p.warned.Store(true)
	case frontend.LevelSuccess, frontend.LevelError:
		select {
		case p.outcomes <- n:
		default:
		}
	}
}

func (p *consolePresenter) Suggest(user string, options []string, def string) {
	if def != "" {
		fmt.Fprintln(p.out, "Latest: "+ui.ChoiceStyle.Render("["+def+"]"))
		return
	}
	parts := make([]string, len(options))
	for i, o := range options {
		parts[i] = ui.ChoiceStyle.Render("[" + o + "]")
	}
	fmt.Fprintln(p.out, strings.Join(parts, " "))
}

func (p *consolePresenter) ShowList(user string, page listcache.Page) {
	select {
	case p.pages <- page:
	default:
	}
}

func (p *consolePresenter) ShowServer(user string, srv domain.ServerDescriptor, verbs []domain.Verb) {
	fmt.Fprintln(p.out, ui.HeadingStyle.Render(srv.Name))
	fmt.Fprintf(p.out, "Status:  %s\n", srv.Status)
	fmt.Fprintf(p.out, "Address: %s\n", srv.Address())
	fmt.Fprintf(p.out, "Type:    %s %s\n", srv.SoftwareType, srv.SoftwareVersion)
}

func (p *consolePresenter) Close(user string) {}

func (p *consolePresenter) drainOutcomes() {
	for {
		select {
		case <-p.outcomes:
		default:
			return
		}
	}
}

// lastOutcome empties the outcome buffer and returns the newest notice in it.
func (p *consolePresenter) lastOutcome() frontend.Notice {
	var last frontend.Notice
	for {
		select {
		case n := <-p.outcomes:
			last = n
		default:
			return last
		}
	}
}
