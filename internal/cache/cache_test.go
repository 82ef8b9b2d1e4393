package cache

import (
	"testing"

	"github.com/migr8/migr8/internal/jsx"
)

func frag(path string) *jsx.Fragment {
	return &jsx.Fragment{Path: path}
}

func TestCache_HitAndMiss(t *testing.T) {
	c, err := New(8, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("src/a.tsx", "h1"); ok {
		t.Fatal("hit on empty cache")
	}

	c.Put("src/a.tsx", "h1", frag("src/a.tsx"))
	got, ok := c.Get("src/a.tsx", "h1")
	if !ok || got.Path != "src/a.tsx" {
		t.Fatalf("Get after Put = %v, %v", got, ok)
	}

	// A changed content hash is a miss; edited files re-parse naturally.
	if _, ok := c.Get("src/a.tsx", "h2"); ok {
		t.Error("hit with stale hash")
	}
}

func TestCache_InvalidateFiresHook(t *testing.T) {
	var invalidated []string
	c, err := New(8, func(path string) { invalidated = append(invalidated, path) })
	if err != nil {
		t.Fatal(err)
	}

	c.Put("src/a.tsx", "h1", frag("src/a.tsx"))
	c.Invalidate("src/a.tsx")

	if _, ok := c.Get("src/a.tsx", "h1"); ok {
		t.Error("entry survived invalidation")
	}
	if len(invalidated) != 1 || invalidated[0] != "src/a.tsx" {
		t.Errorf("hook calls = %v, want [src/a.tsx]", invalidated)
	}
}

func TestCache_EvictionFiresHook(t *testing.T) {
	var evicted []string
	c, err := New(1, func(path string) { evicted = append(evicted, path) })
	if err != nil {
		t.Fatal(err)
	}

	c.Put("src/a.tsx", "h1", frag("src/a.tsx"))
	c.Put("src/b.tsx", "h2", frag("src/b.tsx"))

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if len(evicted) != 1 || evicted[0] != "src/a.tsx" {
		t.Errorf("evictions = %v, want [src/a.tsx]", evicted)
	}
}

func TestCache_PutReplacesStaleEntry(t *testing.T) {
	c, err := New(8, nil)
	if err != nil {
		t.Fatal(err)
	}

	c.Put("src/a.tsx", "h1", frag("old"))
	c.Put("src/a.tsx", "h2", frag("new"))

	got, ok := c.Get("src/a.tsx", "h2")
	if !ok || got.Path != "new" {
		t.Errorf("Get = %v, %v, want the refreshed fragment", got, ok)
	}
}
