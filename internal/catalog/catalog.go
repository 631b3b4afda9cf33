// Package catalog enumerates software versions and builds from the PaperMC
// downloads API, which serves both the paper and velocity projects.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"vmanager/internal/domain"
	"vmanager/internal/logging"
)

const (
	DefaultBaseURL = "https://api.papermc.io/v2/"
	cacheSize      = 256
)

type versionsResponse struct {
	Versions []string `json:"versions"`
}

type buildsResponse struct {
	Builds []int `json:"builds"`
}

// Catalog lists are returned in the order the API sends them (oldest first).
// Results are cached for ttl; concurrent misses for the same key share one request.
type Catalog struct {
	baseURL    string
	httpClient *http.Client
	versions   *expirable.LRU[string, []string]
	builds     *expirable.LRU[string, []int]
	group      singleflight.Group
	log        zerolog.Logger
}

func New(baseURL string, ttl time.Duration, timeout time.Duration) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Catalog{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		versions:   expirable.NewLRU[string, []string](cacheSize, nil, ttl),
		builds:     expirable.NewLRU[string, []int](cacheSize, nil, ttl),
		log:        logging.Component("catalog"),
	}
}

func (c *Catalog) Versions(ctx context.Context, sw domain.Software) ([]string, error) {
	key := sw.Project()
	if cached, ok := c.versions.Get(key); ok {
		return clone(cached), nil
	}

	v, err, shared := c.group.Do("versions:"+key, func() (interface{}, error) {
		var resp versionsResponse
		if err := c.fetch(ctx, "projects/"+url.PathEscape(key), &resp); err != nil {
			return nil, err
		}
		c.versions.Add(key, resp.Versions)
		return resp.Versions, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting %s versions: %w", sw, err)
	}
	c.log.Debug().Str("software", string(sw)).Bool("shared", shared).Msg("versions fetched")
	return clone(v.([]string)), nil
}

func (c *Catalog) Builds(ctx context.Context, sw domain.Software, version string) ([]int, error) {
	key := sw.Project() + "/" + version
	if cached, ok := c.builds.Get(key); ok {
		return clone(cached), nil
	}

	v, err, _ := c.group.Do("builds:"+key, func() (interface{}, error) {
		var resp buildsResponse
		path := fmt.Sprintf("projects/%s/versions/%s", url.PathEscape(sw.Project()), url.PathEscape(version))
		if err := c.fetch(ctx, path, &resp); err != nil {
			return nil, err
		}
		c.builds.Add(key, resp.Builds)
		return resp.Builds, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting %s builds for %s: %w", sw, version, err)
	}
	return clone(v.([]int)), nil
}

func (c *Catalog) fetch(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func clone[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
