package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalCacheGetSet(t *testing.T) {
	c := NewLocal()
	ctx := context.Background()
	if got := c.Get(ctx, "missing", []byte("fallback")); string(got) != "fallback" {
		t.Errorf("default not returned for absent key: %q", got)
	}
	c.Set(ctx, "k", []byte("v"), time.Minute)
	if got := c.Get(ctx, "k", nil); string(got) != "v" {
		t.Errorf("got %q, want v", got)
	}
}

func TestLocalCacheConcurrent(t *testing.T) {
	c := NewLocal()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set(ctx, "shared", []byte("x"), 0)
			_ = c.Get(ctx, "shared", nil)
		}()
	}
	wg.Wait()
}

func TestNewFallsBackWhenUnreachable(t *testing.T) {
	// Nothing listens on this port; New must degrade to the local cache
	// rather than fail.
	c := New(context.Background(), "redis://127.0.0.1:1/0", nil)
	if _, ok := c.(*LocalCache); !ok {
		t.Errorf("expected LocalCache fallback, got %T", c)
	}
	c.Set(context.Background(), "k", []byte("v"), time.Minute)
	if got := c.Get(context.Background(), "k", nil); string(got) != "v" {
		t.Error("fallback cache should still work")
	}
}

func TestNewEmptyURLUsesLocal(t *testing.T) {
	c := New(context.Background(), "", nil)
	if _, ok := c.(*LocalCache); !ok {
		t.Errorf("expected LocalCache for empty URL, got %T", c)
	}
}
