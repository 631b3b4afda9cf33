package proxy

import (
	"sync"

	"vmanager/internal/channel"
)

// LinkManager keeps at most one live channel per user. A reconnecting user
// replaces (and closes) the older connection.
type LinkManager struct {
	links map[string]*channel.Conn
	mu    sync.Mutex
}

func NewLinkManager() *LinkManager {
	return &LinkManager{links: make(map[string]*channel.Conn)}
}

func (m *LinkManager) Attach(c *channel.Conn) {
	m.mu.Lock()
	old := m.links[c.User()]
	m.links[c.User()] = c
	m.mu.Unlock()

	if old != nil && old != c {
		old.Close()
	}
}

// Detach removes c if it is still the user's current link.
func (m *LinkManager) Detach(c *channel.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.links[c.User()]; ok && cur == c {
		delete(m.links, c.User())
	}
}

func (m *LinkManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func (m *LinkManager) CloseAll() {
	m.mu.Lock()
	links := m.links
	m.links = make(map[string]*channel.Conn)
	m.mu.Unlock()

	for _, c := range links {
		c.Close()
	}
}
