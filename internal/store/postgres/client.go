// Package postgres persists records in a Postgres table, for deployments
// that sync bibles through a shared document store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storybible/internal/store"
)

var _ store.Adapter = (*Client)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS bibles (
	project_id TEXT PRIMARY KEY,
	record     BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type Client struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Client{pool: pool}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := c.pool.QueryRow(ctx,
		`SELECT record FROM bibles WHERE project_id = $1`, key).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", key, err)
	}
	return blob, nil
}

func (c *Client) Put(ctx context.Context, key string, blob []byte) error {
	_, err := c.pool.Exec(ctx, `
	INSERT INTO bibles (project_id, record, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (project_id) DO UPDATE SET
		record = excluded.record,
		updated_at = excluded.updated_at
	`, key, blob)
	if err != nil {
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx,
		`DELETE FROM bibles WHERE project_id = $1`, key); err != nil {
		return fmt.Errorf("deleting record %q: %w", key, err)
	}
	return nil
}

func (c *Client) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT project_id FROM bibles ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning record key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record keys: %w", err)
	}
	return keys, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}
