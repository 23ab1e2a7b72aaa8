package paginator

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes Paginate results. Pagination is a pure function of
// (text, maxChars), so entries never need invalidation beyond expiry.
type Cache struct {
	cache *gocache.Cache
}

// NewCache creates a pagination cache.
func NewCache(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Pages returns the pages for text, computing them on a miss.
func (c *Cache) Pages(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultPageSize
	}
	key := cacheKey(text, maxChars)
	if v, found := c.cache.Get(key); found {
		return v.([]string)
	}
	pages := Paginate(text, maxChars)
	c.cache.SetDefault(key, pages)
	return pages
}

// Len reports the number of cached paginations.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(text string, maxChars int) string {
	h := sha256.Sum256([]byte(text))
	return "pages:" + strconv.Itoa(maxChars) + ":" + hex.EncodeToString(h[:])
}
