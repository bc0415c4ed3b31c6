package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	for i := 1; i <= 4; i++ {
		c.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	// key1 is the least recently used and must be gone.
	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for i := 2; i <= 4; i++ {
		if _, found := c.Get(fmt.Sprintf("key%d", i)); !found {
			t.Errorf("key%d should still be cached", i)
		}
	}
	if c.Size() != 3 {
		t.Errorf("expected size 3, got %d", c.Size())
	}
}

func TestLRUCacheGetRefreshesRecency(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, found := c.Get("b"); found {
		t.Error("b should have been evicted after a was touched")
	}
	if _, found := c.Get("a"); !found {
		t.Error("a should still be cached")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string](10, 20*time.Millisecond)

	c.Set("key", "value")
	if _, found := c.Get("key"); !found {
		t.Fatal("fresh entry should be served")
	}

	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("key"); found {
		t.Error("expired entry should not be served")
	}
}

func TestLRUCacheClear(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("expected empty cache after Clear, got size %d", c.Size())
	}
	if _, found := c.Get("a"); found {
		t.Error("cleared entry should not be served")
	}

	// The cache stays usable after a clear.
	c.Set("c", 3)
	if v, found := c.Get("c"); !found || v != 3 {
		t.Errorf("unexpected entry after re-set: v=%d found=%v", v, found)
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[string](10, 20*time.Millisecond)

	c.Set("a", "1")
	c.Set("b", "2")
	time.Sleep(30 * time.Millisecond)
	c.Set("c", "3")

	removed := c.CleanExpired()
	if removed != 2 {
		t.Errorf("expected 2 expired entries removed, got %d", removed)
	}
	if c.Size() != 1 {
		t.Errorf("expected size 1 after cleanup, got %d", c.Size())
	}
}

func TestManagerCleanup(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	c := NewLRUCache[string](10, 10*time.Millisecond)
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)

	c.Set("key", "value")
	time.Sleep(60 * time.Millisecond)

	if c.Size() != 0 {
		t.Errorf("manager should have cleaned the expired entry, size=%d", c.Size())
	}
}
