// Package proxy turns inbound protocol commands into backend calls and answers
// each one with exactly one response frame.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vmanager/internal/domain"
	"vmanager/internal/logging"
	"vmanager/internal/protocol"
	"vmanager/internal/storage"
)

type Backend interface {
	ListServers(ctx context.Context) ([]domain.ServerDescriptor, error)
	PerformAction(ctx context.Context, srv domain.ServerDescriptor, verb domain.Verb) (string, error)
	CreateServer(ctx context.Context, payload json.RawMessage) (string, error)
}

type Catalog interface {
	Versions(ctx context.Context, sw domain.Software) ([]string, error)
	Builds(ctx context.Context, sw domain.Software, version string) ([]int, error)
}

type Journal interface {
	Record(ctx context.Context, e storage.Entry) error
}

// Link is the per-user side of the channel a response goes back on.
type Link interface {
	User() string
	Send(data []byte) error
}

type Dispatcher struct {
	backend Backend
	catalog Catalog
	journal Journal
	timeout time.Duration

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewDispatcher builds a dispatcher. journal may be nil.
func NewDispatcher(backend Backend, catalog Catalog, journal Journal, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		backend: backend,
		catalog: catalog,
		journal: journal,
		timeout: timeout,
		log:     logging.Component("proxy"),
	}
}

// Handle decodes one inbound frame and schedules its response. It returns without
// waiting for the backend, so the caller's read loop is never blocked.
func (d *Dispatcher) Handle(ctx context.Context, link Link, data []byte) {
	log := d.log.With().Str("user", link.User()).Logger()

	frame, err := protocol.Decode(data)
	if err != nil {
		var perr *protocol.PayloadError
		if errors.As(err, &perr) {
			log.Warn().Err(err).Msg("malformed command")
			if reply := malformedReply(perr); reply != nil {
				d.send(link, protocol.Frame{Corr: frame.Corr, Body: reply})
			}
			return
		}
		log.Debug().Err(err).Str("frame", truncate(string(data))).Msg("ignoring frame")
		return
	}

	log.Debug().Str("command", string(frame.Body.Kind())).Str("corr", frame.Corr).Msg("inbound command")

	if !isRequest(frame.Body) {
		log.Debug().Str("command", string(frame.Body.Kind())).Msg("ignoring response-kind frame")
		return
	}

	if !d.track() {
		log.Debug().Str("command", string(frame.Body.Kind())).Msg("dropping command during shutdown")
		return
	}
	go func() {
		defer d.wg.Done()

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		reply := d.resolve(callCtx, link.User(), frame.Body)
		d.send(link, protocol.Frame{Corr: frame.Corr, Body: reply})
	}()
}

func (d *Dispatcher) track() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return false
	}
	d.wg.Add(1)
	return true
}

// Wait blocks until every scheduled response has been sent.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops scheduling new responses and waits for the scheduled ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) resolve(ctx context.Context, user string, m protocol.Message) protocol.Message {
	switch msg := m.(type) {
	case protocol.GetServers:
		return d.listServers(ctx)
	case protocol.Action:
		return d.performAction(ctx, user, msg)
	case protocol.CreateServer:
		return d.createServer(ctx, user, msg)
	case protocol.GetVersions:
		return d.listVersions(ctx, msg)
	case protocol.GetBuilds:
		return d.listBuilds(ctx, msg)
	default:
		panic(fmt.Sprintf("proxy: no resolver for %T", m))
	}
}

func (d *Dispatcher) listServers(ctx context.Context) protocol.Message {
	servers, err := d.backend.ListServers(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to fetch servers")
		return protocol.Servers{Error: "Failed to fetch server list: " + err.Error()}
	}
	return protocol.Servers{List: servers}
}

func (d *Dispatcher) performAction(ctx context.Context, user string, msg protocol.Action) protocol.Message {
	reply := d.action(ctx, msg)
	d.record(ctx, user, "ACTION:"+string(msg.Verb), msg.Name, reply.Status, reply.Detail)
	return reply
}

func (d *Dispatcher) action(ctx context.Context, msg protocol.Action) protocol.ActionResponse {
	verb, err := domain.ParseVerb(string(msg.Verb))
	if err != nil {
		return protocol.ActionResponse{Status: protocol.StatusError, Detail: fmt.Sprintf("Unknown action '%s'.", msg.Verb)}
	}

	servers, err := d.backend.ListServers(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to fetch servers for action")
		return protocol.ActionResponse{Status: protocol.StatusError, Detail: fmt.Sprintf("Failed to %s server: %s", verb, err)}
	}

	srv, ok := Resolve(servers, msg.Name)
	if !ok {
		return protocol.ActionResponse{Status: protocol.StatusError, Detail: fmt.Sprintf("Server '%s' not found.", msg.Name)}
	}

	message, err := d.backend.PerformAction(ctx, srv, verb)
	if err != nil {
		d.log.Error().Err(err).Str("server", srv.Name).Str("verb", string(verb)).Msg("action failed")
		return protocol.ActionResponse{Status: protocol.StatusError, Detail: fmt.Sprintf("Failed to %s server: %s", verb, err)}
	}
	return protocol.ActionResponse{Status: protocol.StatusSuccess, Detail: message}
}

func (d *Dispatcher) createServer(ctx context.Context, user string, msg protocol.CreateServer) protocol.Message {
	var reply protocol.CreationResponse
	message, err := d.backend.CreateServer(ctx, msg.Payload)
	if err != nil {
		d.log.Error().Err(err).Msg("create failed")
		reply = protocol.CreationResponse{Status: protocol.StatusError, Detail: "Failed to create server: " + err.Error()}
	} else {
		reply = protocol.CreationResponse{Status: protocol.StatusSuccess, Detail: message}
	}

	d.record(ctx, user, string(protocol.KindCreateServer), createTarget(msg.Payload), reply.Status, reply.Detail)
	return reply
}

func (d *Dispatcher) listVersions(ctx context.Context, msg protocol.GetVersions) protocol.Message {
	versions, err := d.catalog.Versions(ctx, msg.Software)
	if err != nil {
		d.log.Error().Err(err).Str("software", string(msg.Software)).Msg("failed to get versions")
		return protocol.Versions{Software: msg.Software, Error: err.Error()}
	}
	return protocol.Versions{Software: msg.Software, List: versions}
}

func (d *Dispatcher) listBuilds(ctx context.Context, msg protocol.GetBuilds) protocol.Message {
	builds, err := d.catalog.Builds(ctx, msg.Software, msg.Version)
	if err != nil {
		d.log.Error().Err(err).Str("software", string(msg.Software)).Str("version", msg.Version).Msg("failed to get builds")
		return protocol.Builds{Software: msg.Software, Error: err.Error()}
	}
	return protocol.Builds{Software: msg.Software, List: builds}
}

func (d *Dispatcher) send(link Link, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil && f.Corr != "" {
		d.log.Warn().Err(err).Msg("answering without correlation token")
		data, err = protocol.Encode(protocol.Frame{Body: f.Body})
	}
	if err != nil {
		d.log.Error().Err(err).Msg("failed to encode response")
		return
	}
	if err := link.Send(data); err != nil {
		d.log.Warn().Err(err).Str("user", link.User()).Msg("response not delivered")
	}
}

func (d *Dispatcher) record(ctx context.Context, user, command, target string, status protocol.Status, detail string) {
	if d.journal == nil {
		return
	}
	// The call context may already be spent; the journal write gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := d.journal.Record(ctx, storage.Entry{
		User:    user,
		Command: command,
		Target:  target,
		Status:  string(status),
		Detail:  detail,
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to write journal entry")
	}
}

// Resolve finds a server by case-insensitive name. The first match in list order wins.
func Resolve(servers []domain.ServerDescriptor, name string) (domain.ServerDescriptor, bool) {
	for _, s := range servers {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return domain.ServerDescriptor{}, false
}

func isRequest(m protocol.Message) bool {
	switch m.(type) {
	case protocol.GetServers, protocol.Action, protocol.CreateServer, protocol.GetVersions, protocol.GetBuilds:
		return true
	default:
		return false
	}
}

// malformedReply answers a request whose argument could not be parsed. Malformed
// response kinds get no answer.
func malformedReply(perr *protocol.PayloadError) protocol.Message {
	switch perr.Kind {
	case protocol.KindAction:
		return protocol.ActionResponse{Status: protocol.StatusError, Detail: "Malformed action request."}
	case protocol.KindCreateServer:
		return protocol.CreationResponse{Status: protocol.StatusError, Detail: "Failed to create server: invalid server data."}
	case protocol.KindGetBuilds:
		return protocol.Builds{Software: perr.Software, Error: "Missing version."}
	default:
		return nil
	}
}

func createTarget(payload json.RawMessage) string {
	var req protocol.CreateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return ""
	}
	return req.ServerName
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
