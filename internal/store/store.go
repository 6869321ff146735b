// Package store defines the persistence boundary for story bible records.
//
// A bible is always read and written as one opaque blob per project key;
// backends never see inside the record and offer no isolation beyond
// last-writer-wins on a single key.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("record not found")

type Adapter interface {
	// Get returns the serialized record for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the record for key with blob.
	Put(ctx context.Context, key string, blob []byte) error
	// Delete removes the record for key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every project key known to the backend.
	Keys(ctx context.Context) ([]string, error)

	Close(ctx context.Context) error
}
