package wizard

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxSessions = 4096

// Registry holds at most one session per user. Every input re-stores the session,
// so ttl counts from the user's last interaction.
type Registry struct {
	sessions  *expirable.LRU[string, Session]
	flow      Flow
	correlate bool
}

func NewRegistry(flow Flow, correlate bool, ttl time.Duration) *Registry {
	return &Registry{
		sessions:  expirable.NewLRU[string, Session](maxSessions, nil, ttl),
		flow:      flow,
		correlate: correlate,
	}
}

// Begin starts a new session for user, replacing any existing one.
func (r *Registry) Begin(user string) []Effect {
	id := uuid.NewString()[:8]
	s, effects := Start(id, r.flow, r.correlate)
	r.sessions.Add(user, s)
	return effects
}

// Feed routes one input to the user's session. ok is false when the user has none.
func (r *Registry) Feed(user string, in Input) (effects []Effect, ok bool) {
	s, found := r.sessions.Get(user)
	if !found {
		return nil, false
	}

	next, effects := Apply(s, in)
	if next.Active() {
		r.sessions.Add(user, next)
	} else {
		r.sessions.Remove(user)
	}
	return effects, true
}

func (r *Registry) Get(user string) (Session, bool) {
	return r.sessions.Get(user)
}

func (r *Registry) Active(user string) bool {
	_, ok := r.sessions.Get(user)
	return ok
}

func (r *Registry) Drop(user string) {
	r.sessions.Remove(user)
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}
