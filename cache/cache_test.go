package cache

import (
	"context"
	"testing"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}
	val := []byte(`{"trades":3}`)
	if err := c.Set(ctx, "k", val); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val[0] = 'x'
	got, ok, _ := c.Get(ctx, "k")
	if !ok || string(got) != `{"trades":3}` {
		t.Fatalf("expected a stored copy, got %q", got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}
