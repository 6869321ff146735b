package memory

import (
	"context"
	"errors"
	"testing"

	"storybible/internal/store"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	c := New()

	t.Run("get of missing key", func(t *testing.T) {
		if _, err := c.Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		if err := c.Put(ctx, "p1", []byte(`{"a":1}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		blob, err := c.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(blob) != `{"a":1}` {
			t.Fatalf("unexpected blob %s", blob)
		}
	})

	t.Run("get returns a copy", func(t *testing.T) {
		blob, err := c.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		blob[0] = 'X'
		again, err := c.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if again[0] == 'X' {
			t.Fatalf("caller mutation leaked into the store")
		}
	})

	t.Run("keys keep insertion order", func(t *testing.T) {
		if err := c.Put(ctx, "p2", []byte("x")); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := c.Put(ctx, "p1", []byte("y")); err != nil {
			t.Fatalf("put: %v", err)
		}
		keys, err := c.Keys(ctx)
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 2 || keys[0] != "p1" || keys[1] != "p2" {
			t.Fatalf("unexpected keys %v", keys)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := c.Delete(ctx, "p1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := c.Delete(ctx, "p1"); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if _, err := c.Get(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}
