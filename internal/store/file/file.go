// Package file stores one JSON record per project under a directory.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a torn record behind.
package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"storybible/internal/store"
)

var _ store.Adapter = (*Client)(nil)

type Client struct {
	dir string
}

func New(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Client{dir: dir}, nil
}

// path maps a project key to a filename. Keys are opaque caller strings,
// so they are escaped before touching the filesystem.
func (c *Client) path(key string) string {
	return filepath.Join(c.dir, url.PathEscape(key)+".json")
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", key, err)
	}
	return blob, nil
}

func (c *Client) Put(ctx context.Context, key string, blob []byte) error {
	target := c.path(key)
	tmp, err := os.CreateTemp(c.dir, ".write-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replacing record %q: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting record %q: %w", key, err)
	}
	return nil
}

func (c *Client) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (c *Client) Close(ctx context.Context) error {
	return nil
}
