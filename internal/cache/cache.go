// Package cache provides the parse-result cache used across analysis runs.
// The cache is an explicitly owned object passed down through the pipeline,
// not process-global state; invalidation is observable through an injected
// hook so collaborators (e.g. the serve mode) can react to evictions.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/migr8/migr8/internal/jsx"
)

type entry struct {
	hash string
	frag *jsx.Fragment
}

// Parse caches per-file analysis fragments keyed by file path and content
// hash. A stale hash is a miss, so edited files are re-parsed naturally.
type Parse struct {
	lru        *lru.Cache[string, entry]
	invalidate func(path string)
}

// New creates a cache holding up to size fragments. invalidate, if
// non-nil, is called with the file path whenever an entry is evicted or
// explicitly invalidated.
func New(size int, invalidate func(path string)) (*Parse, error) {
	if invalidate == nil {
		invalidate = func(string) {}
	}
	c := &Parse{invalidate: invalidate}
	l, err := lru.NewWithEvict(size, func(key string, _ entry) {
		c.invalidate(key)
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get returns the cached fragment for path if its content hash still
// matches.
func (c *Parse) Get(path, hash string) (*jsx.Fragment, bool) {
	e, ok := c.lru.Get(path)
	if !ok || e.hash != hash {
		return nil, false
	}
	return e.frag, true
}

// Put stores a fragment under its path and content hash.
func (c *Parse) Put(path, hash string, frag *jsx.Fragment) {
	c.lru.Add(path, entry{hash: hash, frag: frag})
}

// Invalidate drops the entry for path, firing the invalidation hook.
func (c *Parse) Invalidate(path string) {
	c.lru.Remove(path)
}

// Len returns the number of cached fragments.
func (c *Parse) Len() int { return c.lru.Len() }
