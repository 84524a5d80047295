package query

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/arim-dx/rdex/pkg/index"
	"github.com/arim-dx/rdex/pkg/log"
)

// CacheFileName is the on-disk name of the persisted query cache.
const CacheFileName = "rde_search_query_cache.json"

// cachePayload is the persisted form. Order records FIFO insertion order,
// since JSON objects (and Go maps) carry none.
type cachePayload struct {
	Signature string              `json:"signature"`
	Entries   map[string][]string `json:"entries"`
	Order     []string            `json:"order"`
}

// Cache is a bounded FIFO cache of query results, persisted synchronously
// on every novel store. Entries are only trusted while the cache signature
// matches the owning index's signature; a mismatched cache reads as empty.
//
// Not safe for concurrent use; rdex assumes a single writer.
type Cache struct {
	path       string
	maxEntries int
	logger     *log.Logger

	loaded  bool
	payload cachePayload
}

// NewCache creates a cache persisted at path, holding at most maxEntries
// results.
func NewCache(path string, maxEntries int) *Cache {
	return &Cache{
		path:       path,
		maxEntries: maxEntries,
		logger:     log.For("query-cache"),
	}
}

// Key builds the canonical cache key for a criteria set: a JSON array of
// [field, foldedValue] pairs sorted by field. Blank values are dropped; an
// all-blank criteria set yields "" and is never cached.
func Key(criteria map[string]string) string {
	pairs := make([][2]string, 0, len(criteria))
	for field, value := range criteria {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		pairs = append(pairs, [2]string{field, index.Fold(value)})
	}
	if len(pairs) == 0 {
		return ""
	}
	slices.SortFunc(pairs, func(a, b [2]string) int {
		return strings.Compare(a[0], b[0])
	})
	data, err := json.Marshal(pairs)
	if err != nil {
		return ""
	}
	return string(data)
}

// load reads the persisted cache once per Cache instance. Missing or
// corrupt files read as an empty cache.
func (c *Cache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.payload = cachePayload{Entries: make(map[string][]string)}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var payload cachePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warnf("cache file unparseable, starting empty: %v", err)
		return
	}
	if payload.Entries == nil {
		payload.Entries = make(map[string][]string)
	}

	// Reconcile order with entries in case the file was edited by hand.
	order := make([]string, 0, len(payload.Entries))
	seen := make(map[string]struct{}, len(payload.Entries))
	for _, key := range payload.Order {
		if _, ok := payload.Entries[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		order = append(order, key)
	}
	for key := range payload.Entries {
		if _, ok := seen[key]; !ok {
			order = append(order, key)
		}
	}
	payload.Order = order

	c.payload = payload
}

// Lookup returns the cached ids for key, trusting the cache only when its
// signature matches. A mismatch is an ordinary miss; the stale contents are
// not rewritten until the next store. The returned slice is a copy, so
// callers cannot corrupt the cached entry.
func (c *Cache) Lookup(signature, key string) ([]string, bool) {
	if key == "" {
		return nil, false
	}
	c.load()
	if c.payload.Signature != signature {
		return nil, false
	}
	ids, ok := c.payload.Entries[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

// Store records ids for key and persists the cache. A store whose signature
// differs from the cached one first drops every stale entry. Storing a
// result identical to the cached one is a no-op (no disk write).
func (c *Cache) Store(signature, key string, ids []string) error {
	if key == "" {
		return nil
	}
	c.load()

	if c.payload.Signature != signature {
		c.payload = cachePayload{
			Signature: signature,
			Entries:   make(map[string][]string),
		}
	}

	if cached, ok := c.payload.Entries[key]; ok && slices.Equal(cached, ids) {
		return nil
	}

	if _, ok := c.payload.Entries[key]; !ok {
		c.payload.Order = append(c.payload.Order, key)
	}
	c.payload.Entries[key] = ids

	for len(c.payload.Entries) > c.maxEntries && len(c.payload.Order) > 0 {
		oldest := c.payload.Order[0]
		c.payload.Order = c.payload.Order[1:]
		delete(c.payload.Entries, oldest)
	}

	return c.persist()
}

// Reset drops every entry and re-signs the cache for a freshly built index.
func (c *Cache) Reset(signature string) error {
	c.loaded = true
	c.payload = cachePayload{
		Signature: signature,
		Entries:   make(map[string][]string),
	}
	return c.persist()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.load()
	return len(c.payload.Entries)
}

func (c *Cache) persist() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.Marshal(c.payload)
	if err != nil {
		return fmt.Errorf("encoding query cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing query cache: %w", err)
	}
	return nil
}
