// Package frontend is the user-facing host. It owns each user's list cache and
// wizard session, routes inbound frames to them, and turns UI events into
// outbound commands. All state changes run on one executor.
package frontend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vmanager/internal/action"
	"vmanager/internal/domain"
	"vmanager/internal/executor"
	"vmanager/internal/listcache"
	"vmanager/internal/logging"
	"vmanager/internal/protocol"
	"vmanager/internal/wizard"
)

const noDetails = "No details provided."

var ErrNotConnected = errors.New("not connected to proxy")

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
	LevelPrompt
	LevelHeading
)

type Notice struct {
	Text  string
	Level Level
	// Response marks the proxy's answer to an action or creation request.
	Response bool
}

// Presenter renders host output for one user. Calls arrive on the host executor.
type Presenter interface {
	Notify(user string, n Notice)
	Suggest(user string, options []string, def string)
	ShowList(user string, page listcache.Page)
	ShowServer(user string, srv domain.ServerDescriptor, verbs []domain.Verb)
	Close(user string)
}

// Link is the outbound half of a user's channel.
type Link interface {
	Send(data []byte) error
}

type Host struct {
	caches    *listcache.Registry
	wizards   *wizard.Registry
	actions   *action.Dispatcher
	presenter Presenter
	exec      *executor.Executor

	links map[string]Link
	log   zerolog.Logger
}

func NewHost(ctx context.Context, caches *listcache.Registry, wizards *wizard.Registry, presenter Presenter, route action.Route) *Host {
	return &Host{
		caches:    caches,
		wizards:   wizards,
		actions:   action.NewDispatcher(caches, route),
		presenter: presenter,
		exec:      executor.New(ctx, 256),
		links:     make(map[string]Link),
		log:       logging.Component("frontend"),
	}
}

func (h *Host) Stop() {
	h.exec.Stop()
}

// Attach registers the user's link, replacing any earlier one.
func (h *Host) Attach(user string, link Link) error {
	return h.exec.Do(func() {
		h.links[user] = link
	})
}

// Detach forgets the user's link, list cache and wizard session.
func (h *Host) Detach(user string) error {
	return h.exec.Do(func() {
		h.detach(user)
	})
}

// detachLink is Detach, unless the user has already reconnected on another link.
func (h *Host) detachLink(user string, link Link) error {
	return h.exec.Do(func() {
		if cur, ok := h.links[user]; ok && cur != link {
			return
		}
		h.detach(user)
	})
}

func (h *Host) detach(user string) {
	delete(h.links, user)
	h.caches.Drop(user)
	h.wizards.Drop(user)
}

// OpenList asks the proxy for a fresh server list; it is shown when it arrives.
func (h *Host) OpenList(user string) error {
	var err error
	if execErr := h.exec.Do(func() {
		err = h.send(user, protocol.Frame{Body: protocol.GetServers{}})
	}); execErr != nil {
		return execErr
	}
	return err
}

// HandleUI dispatches one UI or command event.
func (h *Host) HandleUI(req action.Request) error {
	var err error
	if execErr := h.exec.Do(func() {
		err = h.handleUI(req)
	}); execErr != nil {
		return execErr
	}
	return err
}

// HandleChat offers a line of text to the user's wizard. It reports whether a
// wizard consumed it.
func (h *Host) HandleChat(user, text string) (bool, error) {
	var consumed bool
	err := h.exec.Do(func() {
		effects, ok := h.wizards.Feed(user, wizard.Text{Value: text})
		consumed = ok
		h.apply(user, effects)
	})
	return consumed, err
}

// StartWizard begins (or restarts) the creation wizard for user.
func (h *Host) StartWizard(user string) error {
	return h.exec.Do(func() {
		h.apply(user, h.wizards.Begin(user))
	})
}

// HandleFrame routes one inbound frame for user.
func (h *Host) HandleFrame(user string, data []byte) error {
	return h.exec.Do(func() {
		h.handleFrame(user, data)
	})
}

// Cache returns the user's current list snapshot.
func (h *Host) Cache(user string) (*listcache.Cache, bool) {
	var (
		c  *listcache.Cache
		ok bool
	)
	_ = h.exec.Do(func() {
		c, ok = h.caches.Get(user)
	})
	return c, ok
}

func (h *Host) WizardActive(user string) bool {
	var active bool
	_ = h.exec.Do(func() {
		active = h.wizards.Active(user)
	})
	return active
}

func (h *Host) handleUI(req action.Request) error {
	out, err := h.actions.Dispatch(req)
	switch {
	case errors.Is(err, action.ErrServerNotFound):
		h.notify(req.User, LevelError, fmt.Sprintf("Server '%s' not found.", req.Target))
		return err
	case err != nil:
		h.notify(req.User, LevelError, err.Error())
		return err
	}

	switch out.Result {
	case action.ResultClosed:
		h.presenter.Close(req.User)
	case action.ResultShowPage:
		h.presenter.ShowList(req.User, out.Page)
	case action.ResultShowServer:
		h.presenter.ShowServer(req.User, out.Server, action.Available(out.Server))
	case action.ResultWarned:
		for _, line := range out.Warning {
			h.notify(req.User, LevelWarning, line)
		}
	case action.ResultSent:
		h.presenter.Close(req.User)
		h.notify(req.User, LevelInfo, fmt.Sprintf("Requesting to %s server '%s'...", req.Verb, out.Server.Name))
		return h.send(req.User, out.Frame)
	case action.ResultRefreshing:
		return h.send(req.User, out.Frame)
	case action.ResultExpired:
		h.notify(req.User, LevelInfo, "Server list expired, refreshing...")
		return h.send(req.User, out.Frame)
	case action.ResultStartWizard:
		h.presenter.Close(req.User)
		h.apply(req.User, h.wizards.Begin(req.User))
	}
	return nil
}

func (h *Host) handleFrame(user string, data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		h.handleDecodeError(user, frame, err)
		return
	}

	switch msg := frame.Body.(type) {
	case protocol.Servers:
		if msg.Error != "" {
			h.notify(user, LevelError, msg.Error)
			return
		}
		cache := h.caches.Refresh(user, msg.List)
		page, _ := cache.Page(0)
		h.presenter.ShowList(user, page)

	case protocol.ActionResponse:
		h.respond(user, msg.Status, msg.Detail)

	case protocol.CreationResponse:
		h.respond(user, msg.Status, msg.Detail)

	case protocol.Versions:
		effects, _ := h.wizards.Feed(user, wizard.VersionsArrived{Corr: frame.Corr, Msg: msg})
		h.apply(user, effects)

	case protocol.Builds:
		effects, _ := h.wizards.Feed(user, wizard.BuildsArrived{Corr: frame.Corr, Msg: msg})
		h.apply(user, effects)

	default:
		h.log.Debug().Str("user", user).Str("command", string(frame.Body.Kind())).Msg("ignoring request-kind frame")
	}
}

func (h *Host) handleDecodeError(user string, frame protocol.Frame, err error) {
	var perr *protocol.PayloadError
	if !errors.As(err, &perr) {
		h.log.Debug().Err(err).Str("user", user).Msg("dropping frame")
		return
	}

	h.log.Warn().Err(err).Str("user", user).Msg("malformed response")
	switch perr.Kind {
	case protocol.KindVersions, protocol.KindBuilds:
		effects, _ := h.wizards.Feed(user, wizard.Malformed{Corr: frame.Corr, Kind: perr.Kind, Err: perr.Err})
		h.apply(user, effects)
	case protocol.KindServers:
		h.notify(user, LevelError, "Failed to process server data. Please try again.")
	}
}

func (h *Host) respond(user string, status protocol.Status, detail string) {
	if detail == "" {
		detail = noDetails
	}
	level := LevelError
	if status.OK() {
		level = LevelSuccess
	}
	h.presenter.Notify(user, Notice{Text: detail, Level: level, Response: true})
}

func (h *Host) apply(user string, effects []wizard.Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case wizard.Say:
			h.notify(user, toneLevel(e.Tone), e.Text)
		case wizard.Choices:
			h.presenter.Suggest(user, e.Options, e.Default)
		case wizard.Send:
			if err := h.send(user, e.Frame); err != nil {
				// The request can never be answered; end the session instead of leaving it waiting.
				h.wizards.Drop(user)
				h.notify(user, LevelError, "Lost connection to the proxy. Server creation cancelled.")
				return
			}
		case wizard.End:
			h.log.Debug().Str("user", user).Stringer("reason", e.Reason).Msg("wizard finished")
		}
	}
}

func (h *Host) send(user string, f protocol.Frame) error {
	link, ok := h.links[user]
	if !ok {
		h.notify(user, LevelError, "Not connected to the proxy.")
		return ErrNotConnected
	}
	data, err := protocol.Encode(f)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode frame")
		return err
	}
	if err := link.Send(data); err != nil {
		h.log.Warn().Err(err).Str("user", user).Msg("send failed")
		return fmt.Errorf("sending %s: %w", f.Body.Kind(), err)
	}
	return nil
}

func (h *Host) notify(user string, level Level, text string) {
	h.presenter.Notify(user, Notice{Text: text, Level: level})
}

func toneLevel(t wizard.Tone) Level {
	switch t {
	case wizard.ToneError:
		return LevelError
	case wizard.ToneStatus, wizard.ToneDetail:
		return LevelInfo
	case wizard.ToneHeading:
		return LevelHeading
	default:
		return LevelPrompt
	}
}
