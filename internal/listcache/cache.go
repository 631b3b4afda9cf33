// Package listcache holds the last server list each user received, with a name
// index and fixed-size pagination over it.
package listcache

import (
	"errors"
	"fmt"
	"strings"

	"vmanager/internal/domain"
)

const DefaultPageSize = 28

var ErrPageOutOfRange = errors.New("page out of range")

// Cache is an immutable snapshot. A refresh builds a new Cache, so the list and
// its index always come from the same payload.
type Cache struct {
	servers  []domain.ServerDescriptor
	index    map[string]int
	pageSize int
}

func New(servers []domain.ServerDescriptor, pageSize int) *Cache {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	c := &Cache{
		servers:  make([]domain.ServerDescriptor, len(servers)),
		index:    make(map[string]int, len(servers)),
		pageSize: pageSize,
	}
	copy(c.servers, servers)
	for i, s := range c.servers {
		key := indexKey(s.Name)
		if _, dup := c.index[key]; !dup {
			c.index[key] = i
		}
	}
	return c
}

func indexKey(name string) string {
	return strings.ToLower(name)
}

func (c *Cache) Len() int { return len(c.servers) }

func (c *Cache) Empty() bool { return len(c.servers) == 0 }

func (c *Cache) PageSize() int { return c.pageSize }

// Servers returns a copy of the list in display order.
func (c *Cache) Servers() []domain.ServerDescriptor {
	out := make([]domain.ServerDescriptor, len(c.servers))
	copy(out, c.servers)
	return out
}

// Lookup is case-insensitive. When two names differ only in case, the first one listed wins.
func (c *Cache) Lookup(name string) (domain.ServerDescriptor, bool) {
	i, ok := c.index[indexKey(name)]
	if !ok {
		return domain.ServerDescriptor{}, false
	}
	return c.servers[i], true
}

// Names lists server names in display order.
func (c *Cache) Names() []string {
	names := make([]string, len(c.servers))
	for i, s := range c.servers {
		names[i] = s.Name
	}
	return names
}

// Pages is the number of pages; an empty list still has its (empty) first page.
func (c *Cache) Pages() int {
	n := (len(c.servers) + c.pageSize - 1) / c.pageSize
	if n == 0 {
		return 1
	}
	return n
}

type Page struct {
	Index   int
	Total   int
	Items   []domain.ServerDescriptor
	HasPrev bool
	HasNext bool
}

func (c *Cache) Page(index int) (Page, error) {
	total := c.Pages()
	if index < 0 || index >= total {
		return Page{}, fmt.Errorf("%w: %d (have %d)", ErrPageOutOfRange, index, total)
	}

	start := index * c.pageSize
	end := min(start+c.pageSize, len(c.servers))

	items := make([]domain.ServerDescriptor, end-start)
	copy(items, c.servers[start:end])

	return Page{
		Index:   index,
		Total:   total,
		Items:   items,
		HasPrev: index > 0,
		HasNext: index < total-1,
	}, nil
}
