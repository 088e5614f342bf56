// Package httpcache is an http.RoundTripper that keeps successful GET
// responses in an LRU and revalidates them with ETags once their TTL lapses.
package httpcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	key      string
	status   int
	header   http.Header
	body     []byte
	etag     string
	storedAt time.Time
}

// Stats counts cache outcomes since the transport was created.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Revalidations int64 `json:"revalidations"`
	Entries       int   `json:"entries"`
}

// Cache is an LRU of response entries bounded by entry count.
type Cache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front is most recent
	stats   Stats
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]*list.Element{},
		lru:        list.New(),
	}
}

func (c *Cache) get(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return entry{}, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(entry), true
}

func (c *Cache) put(key string, status int, header http.Header, body []byte, storedAt time.Time) entry {
	ent := entry{
		key:      key,
		status:   status,
		header:   cloneHeader(header),
		body:     append([]byte(nil), body...),
		etag:     strings.TrimSpace(header.Get("ETag")),
		storedAt: storedAt,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value = ent
		c.lru.MoveToFront(el)
		return ent
	}
	c.entries[key] = c.lru.PushFront(ent)

	for c.lru.Len() > c.maxEntries {
		back := c.lru.Back()
		delete(c.entries, back.Value.(entry).key)
		c.lru.Remove(back)
	}
	return ent
}

func (c *Cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.lru.Remove(el)
	}
}

func (c *Cache) touch(key string, storedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Revalidations++
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(entry)
		ent.storedAt = storedAt
		el.Value = ent
		c.lru.MoveToFront(el)
	}
}

func (c *Cache) hit() {
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// fingerprintHeaders hashes the values of keys present in h, independent of order.
func fingerprintHeaders(h http.Header, keys []string) string {
	type kv struct{ k, v string }
	pairs := make([]kv, 0, len(keys))
	for _, k := range keys {
		k = http.CanonicalHeaderKey(strings.TrimSpace(k))
		if v := strings.TrimSpace(h.Get(k)); k != "" && v != "" {
			pairs = append(pairs, kv{k: k, v: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	sum := sha256.New()
	for _, p := range pairs {
		sum.Write([]byte(p.k))
		sum.Write([]byte{0})
		sum.Write([]byte(p.v))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}
