// Package storage provides durable key-value byte stores for ledger snapshots.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when a store has no room left for the value.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KV is a string-keyed byte store. Each Set replaces the whole value for
// that key in one step: a reader sees either the old or the new bytes.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
