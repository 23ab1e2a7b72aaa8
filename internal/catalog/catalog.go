// Package catalog keeps the source texts readers can open.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

// ErrTextNotFound is returned for an unknown text id.
var ErrTextNotFound = errors.New("text not found")

// Text is one source text, stored unpaginated. Annotation offsets index
// into Body.
type Text struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename,omitempty"`
	Body        string    `json:"-"`
	Runes       int       `json:"runes"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Catalog is a thread-safe in-memory registry of texts. Texts are
// deduplicated by content: adding the same body twice returns the first.
type Catalog struct {
	mu     sync.RWMutex
	texts  map[string]Text
	byHash map[string]string
	now    func() time.Time
}

func New() *Catalog {
	return &Catalog{
		texts:  make(map[string]Text),
		byHash: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Add registers a text and reports whether an identical body was already
// present.
func (c *Catalog) Add(title, filename, body string) (Text, bool) {
	hash := ContentHashHex([]byte(body))

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byHash[hash]; ok {
		return c.texts[id], true
	}
	t := Text{
		ID:          TextID(hash),
		Title:       title,
		Filename:    filename,
		Body:        body,
		Runes:       utf8.RuneCountInString(body),
		ContentHash: hash,
		CreatedAt:   c.now(),
	}
	c.texts[t.ID] = t
	c.byHash[hash] = t.ID
	return t, false
}

// Get returns a text by id.
func (c *Catalog) Get(id string) (Text, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.texts[id]
	if !ok {
		return Text{}, ErrTextNotFound
	}
	return t, nil
}

// List returns every text, oldest first.
func (c *Catalog) List() []Text {
	c.mu.RLock()
	out := make([]Text, 0, len(c.texts))
	for _, t := range c.texts {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of texts.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.texts)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// TextID derives a stable text id from a content hash, so the same text
// keeps its id (and its remote annotations) across restarts.
func TextID(hash string) string {
	if len(hash) > 16 {
		hash = hash[:16]
	}
	return "txt_" + hash
}
