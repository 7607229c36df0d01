package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetPut(t *testing.T) {
	c := New(10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Put("a", 1)
	v, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if v.(int) != 1 {
		t.Errorf("expected 1, got %v", v)
	}

	c.Put("a", 2)
	v, _ = c.Get("a")
	if v.(int) != 2 {
		t.Errorf("expected overwrite to 2, got %v", v)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(3, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// touch a so b becomes the oldest
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit on a")
	}

	c.Put("d", 4)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s retained", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("expected size capped at 3, got %d", c.Len())
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, 5*time.Minute)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("a", 1)
	now = now.Add(4 * time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected hit before TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry removed, got %d", c.Len())
	}

	// a stale Put refreshes the deadline
	c.Put("a", 2)
	now = now.Add(4 * time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected re-put entry fresh")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("goals:2026-08-23:list", 1)
	c.Put("goals:2026-08-23:status", 2)
	c.Put("goals:2026-08-24:list", 3)

	n := c.Invalidate("goals:2026-08-23")
	if n != 2 {
		t.Errorf("expected 2 invalidated, got %d", n)
	}
	if _, ok := c.Get("goals:2026-08-23:list"); ok {
		t.Error("expected invalidated key to miss")
	}
	if _, ok := c.Get("goals:2026-08-24:list"); !ok {
		t.Error("expected other day retained")
	}

	c.Invalidate("")
	if c.Len() != 0 {
		t.Errorf("expected full clear, got %d entries", c.Len())
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := New(5, time.Minute)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
		if c.Len() > 5 {
			t.Fatalf("size %d exceeded capacity after insert %d", c.Len(), i)
		}
	}
}
