// Package action maps UI and command events onto local effects or outbound
// ACTION commands.
package action

import (
	"errors"
	"fmt"
	"strings"

	"vmanager/internal/domain"
	"vmanager/internal/listcache"
	"vmanager/internal/protocol"
)

type Verb string

const (
	VerbStart    = Verb(domain.VerbStart)
	VerbStop     = Verb(domain.VerbStop)
	VerbRestart  = Verb(domain.VerbRestart)
	VerbBack     Verb = "back"
	VerbClose    Verb = "close"
	VerbNextPage Verb = "next_page"
	VerbPrevPage Verb = "prev_page"
	VerbSelect   Verb = "select"
	VerbCreate   Verb = "create_server"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrUnknownVerb    = errors.New("unknown action")
)

func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case VerbStart, VerbStop, VerbRestart, VerbBack, VerbClose, VerbNextPage, VerbPrevPage, VerbSelect, VerbCreate:
		return v, nil
	default:
		return "", fmt.Errorf("%w '%s'", ErrUnknownVerb, s)
	}
}

// Lifecycle reports whether v is sent to the proxy as ACTION:<verb>:<name>.
func (v Verb) Lifecycle() (domain.Verb, bool) {
	switch v {
	case VerbStart, VerbStop, VerbRestart:
		return domain.Verb(v), true
	default:
		return "", false
	}
}

// Request is one user event. Page is the page to open for paging verbs.
// Confirmed travels with the request itself; there is no second round trip.
type Request struct {
	User      string
	Verb      Verb
	Target    string
	Page      int
	Confirmed bool
}

type Result int

const (
	ResultClosed Result = iota
	ResultShowPage
	ResultShowServer
	ResultSent
	ResultWarned
	ResultRefreshing
	ResultStartWizard
	// ResultExpired is ResultRefreshing for a named server whose list has aged out.
	ResultExpired
)

var errListExpired = errors.New("server list expired")

// Outcome tells the caller what to do. Frame is set for ResultSent, ResultRefreshing and ResultExpired.
type Outcome struct {
	Result  Result
	Page    listcache.Page
	Server  domain.ServerDescriptor
	Frame   protocol.Frame
	Warning []string
}

// Route identifies the server the front-end connection is routed through. Name
// takes precedence over Port; a zero Route matches nothing.
type Route struct {
	Server string
	Port   int
}

func (r Route) Matches(s domain.ServerDescriptor) bool {
	if r.Server != "" {
		return strings.EqualFold(r.Server, s.Name)
	}
	return r.Port != 0 && r.Port == s.Port
}

type Dispatcher struct {
	caches *listcache.Registry
	route  Route
}

func NewDispatcher(caches *listcache.Registry, route Route) *Dispatcher {
	return &Dispatcher{caches: caches, route: route}
}

func (d *Dispatcher) Dispatch(req Request) (Outcome, error) {
	switch req.Verb {
	case VerbClose:
		return Outcome{Result: ResultClosed}, nil

	case VerbBack:
		return refresh(), nil

	case VerbCreate:
		return Outcome{Result: ResultStartWizard}, nil

	case VerbNextPage, VerbPrevPage:
		cache, ok := d.caches.Get(req.User)
		if !ok || cache.Empty() {
			return refresh(), nil
		}
		page, err := cache.Page(req.Page)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: ResultShowPage, Page: page}, nil

	case VerbSelect:
		srv, err := d.resolve(req)
		if errors.Is(err, errListExpired) {
			return expired(), nil
		}
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: ResultShowServer, Server: srv}, nil
	}

	verb, ok := req.Verb.Lifecycle()
	if !ok {
		return Outcome{}, fmt.Errorf("%w '%s'", ErrUnknownVerb, req.Verb)
	}

	srv, err := d.resolve(req)
	if errors.Is(err, errListExpired) {
		return expired(), nil
	}
	if err != nil {
		return Outcome{}, err
	}

	if verb.Disruptive() && d.route.Matches(srv) && !req.Confirmed {
		return Outcome{
			Result: ResultWarned,
			Server: srv,
			Warning: []string{
				fmt.Sprintf("Warning: You are trying to %s the proxy you are connected to.", verb),
				"This will disconnect all players. To proceed, repeat the request with confirmation.",
			},
		}, nil
	}

	return Outcome{
		Result: ResultSent,
		Server: srv,
		Frame:  protocol.Frame{Body: protocol.Action{Verb: verb, Name: srv.Name}},
	}, nil
}

func (d *Dispatcher) resolve(req Request) (domain.ServerDescriptor, error) {
	if req.Target == "" {
		return domain.ServerDescriptor{}, fmt.Errorf("%w: no server given", ErrServerNotFound)
	}
	cache, ok := d.caches.Get(req.User)
	if !ok {
		return domain.ServerDescriptor{}, errListExpired
	}
	srv, ok := cache.Lookup(req.Target)
	if !ok {
		return domain.ServerDescriptor{}, fmt.Errorf("%w: %s", ErrServerNotFound, req.Target)
	}
	return srv, nil
}

func refresh() Outcome {
	return Outcome{Result: ResultRefreshing, Frame: protocol.Frame{Body: protocol.GetServers{}}}
}

func expired() Outcome {
	out := refresh()
	out.Result = ResultExpired
	return out
}

// Available lists the lifecycle verbs that make sense for a server's current status.
func Available(s domain.ServerDescriptor) []domain.Verb {
	switch s.Status.Normalize() {
	case domain.StatusOffline:
		return []domain.Verb{domain.VerbStart}
	case domain.StatusOnline:
		return []domain.Verb{domain.VerbStop, domain.VerbRestart}
	default:
		return nil
	}
}
