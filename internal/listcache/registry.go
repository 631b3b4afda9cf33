package listcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"vmanager/internal/domain"
)

const maxUsers = 4096

// Registry maps each user to their own Cache. Entries expire ttl after their last
// refresh and the registry never holds more than maxUsers caches.
type Registry struct {
	caches   *expirable.LRU[string, *Cache]
	pageSize int
}

func NewRegistry(pageSize int, ttl time.Duration) *Registry {
	return &Registry{
		caches:   expirable.NewLRU[string, *Cache](maxUsers, nil, ttl),
		pageSize: pageSize,
	}
}

// Refresh replaces the user's cache wholesale.
func (r *Registry) Refresh(user string, servers []domain.ServerDescriptor) *Cache {
	c := New(servers, r.pageSize)
	r.caches.Add(user, c)
	return c
}

// Get returns the user's cache, or an empty one when nothing is cached. ok reports
// whether a list was actually received.
func (r *Registry) Get(user string) (*Cache, bool) {
	if c, ok := r.caches.Get(user); ok {
		return c, true
	}
	return New(nil, r.pageSize), false
}

func (r *Registry) Drop(user string) {
	r.caches.Remove(user)
}

func (r *Registry) Len() int {
	return r.caches.Len()
}
