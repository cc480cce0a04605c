package analysis

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ritzau/pyimport-graph/pkg/model"
)

// ParseCache remembers the pairs of unchanged files between runs.
// It is safe for concurrent use.
type ParseCache struct {
	cache *lru.Cache[string, []model.ImportPair]
}

// NewParseCache creates a cache holding up to size files.
func NewParseCache(size int) (*ParseCache, error) {
	c, err := lru.New[string, []model.ImportPair](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{cache: c}, nil
}

func (c *ParseCache) Get(key string) ([]model.ImportPair, bool) {
	return c.cache.Get(key)
}

func (c *ParseCache) Add(key string, pairs []model.ImportPair) {
	c.cache.Add(key, pairs)
}

// Len returns the number of cached files.
func (c *ParseCache) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *ParseCache) Purge() {
	c.cache.Purge()
}
