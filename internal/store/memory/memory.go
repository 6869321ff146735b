// Package memory is an in-process adapter backed by a map. It backs tests
// and ephemeral sessions where nothing should touch disk.
package memory

import (
	"context"
	"sync"

	"storybible/internal/store"
)

var _ store.Adapter = (*Client)(nil)

type Client struct {
	mu      sync.RWMutex
	records map[string][]byte
	order   []string
}

func New() *Client {
	return &Client{records: make(map[string][]byte)}
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	blob, ok := c.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (c *Client) Put(ctx context.Context, key string, blob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[key]; !ok {
		c.order = append(c.order, key)
	}
	stored := make([]byte, len(blob))
	copy(stored, blob)
	c.records[key] = stored
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[key]; !ok {
		return nil
	}
	delete(c.records, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Client) Keys(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out, nil
}

func (c *Client) Close(ctx context.Context) error {
	return nil
}
