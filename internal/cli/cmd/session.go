package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"vmanager/internal/action"
	"vmanager/internal/cli/ui"
	"vmanager/internal/frontend"
	"vmanager/internal/listcache"
	"vmanager/internal/wizard"
)

const responseTimeout = 20 * time.Second

var errNoResponse = errors.New("the proxy did not answer in time")

// session is a connected front-end host for the command-line user.
type session struct {
	host   *frontend.Host
	done   <-chan struct{}
	cancel context.CancelFunc
}

func openSession(ctx context.Context, presenter frontend.Presenter) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	flow, err := wizard.ParseFlow(Cfg.Frontend.WizardFlow)
	if err != nil {
		cancel()
		return nil, err
	}

	host := frontend.NewHost(
		ctx,
		listcache.NewRegistry(Cfg.Frontend.PageSize, Cfg.Frontend.ListTTL()),
		wizard.NewRegistry(flow, Cfg.Frontend.Correlation, Cfg.Frontend.WizardTTL()),
		presenter,
		action.Route{Server: Cfg.Frontend.RouteServer, Port: Cfg.Frontend.RoutePort},
	)

	done, err := host.Connect(ctx, ProxyURL, UserName)
	if err != nil {
		host.Stop()
		cancel()
		return nil, fmt.Errorf("could not reach the proxy at %s: %w", ProxyURL, err)
	}

	return &session{host: host, done: done, cancel: cancel}, nil
}

func (s *session) Close() {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
	s.host.Stop()
}

// fetchList requests the server list and waits for the first page.
func (s *session) fetchList(p *consolePresenter) (listcache.Page, error) {
	if err := s.host.OpenList(UserName); err != nil {
		return listcache.Page{}, err
	}
	select {
	case page := <-p.pages:
		return page, nil
	case n := <-p.outcomes:
		return listcache.Page{}, errors.New(n.Text)
	case <-s.done:
		return listcache.Page{}, frontend.ErrNotConnected
	case <-time.After(responseTimeout):
		return listcache.Page{}, errNoResponse
	}
}

// awaitResponse waits for the ACTION_RESPONSE or CREATION_RESPONSE notice.
func (s *session) awaitResponse(p *consolePresenter) (frontend.Notice, error) {
	select {
	case n := <-p.outcomes:
		return n, nil
	case <-s.done:
		return frontend.Notice{}, frontend.ErrNotConnected
	case <-time.After(responseTimeout):
		return frontend.Notice{}, errNoResponse
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
