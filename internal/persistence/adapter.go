// Package persistence flushes ledger snapshots to a key-value store and
// reads them back at startup.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	TransactionsKey = "fintrack_transactions"
	LastSavedKey    = "fintrack_lastSaved"
)

// ReadError means the stored snapshot was missing or unreadable. Callers
// treat it as "no prior data".
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// NotFound reports whether the key simply did not exist yet.
func (e *ReadError) NotFound() bool {
	return errors.Is(e.Err, storage.ErrNotFound)
}

// WriteError means the store rejected a write. The in-memory ledger is
// still correct; the change may not survive a restart.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// TimestampError means the snapshot was written but the save time was not.
// The new snapshot is durable; only LastSaved still reports the old time.
type TimestampError struct {
	Err error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("write %s: %v", LastSavedKey, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// Adapter bridges a ledger snapshot and a storage.KV.
type Adapter struct {
	kv    storage.KV
	codec Codec
	now   func() time.Time
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

func WithCodec(c Codec) AdapterOption {
	return func(a *Adapter) {
		if c != nil {
			a.codec = c
		}
	}
}

func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAdapter(kv storage.KV, opts ...AdapterOption) *Adapter {
	a := &Adapter{kv: kv, codec: JSONCodec{}, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load returns the stored collection. On a missing or corrupt snapshot it
// returns an empty, non-nil slice together with a *ReadError.
func (a *Adapter) Load(ctx context.Context) ([]core.Transaction, error) {
	data, err := a.kv.Get(ctx, TransactionsKey)
	if err != nil {
		return []core.Transaction{}, &ReadError{Key: TransactionsKey, Err: err}
	}
	txs, err := a.codec.Decode(data)
	if err != nil {
		return []core.Transaction{}, &ReadError{Key: TransactionsKey, Err: err}
	}
	return txs, nil
}

// Save writes the whole collection, then the save time, and returns that time.
// A *WriteError means the old snapshot is still in place. A *TimestampError
// comes with a valid time: the snapshot landed, the timestamp did not.
func (a *Adapter) Save(ctx context.Context, txs []core.Transaction) (time.Time, error) {
	data, err := a.codec.Encode(txs)
	if err != nil {
		return time.Time{}, &WriteError{Key: TransactionsKey, Err: err}
	}
	if err := a.kv.Set(ctx, TransactionsKey, data); err != nil {
		return time.Time{}, &WriteError{Key: TransactionsKey, Err: err}
	}

	ts := a.now().UTC().Truncate(time.Millisecond)
	if err := a.kv.Set(ctx, LastSavedKey, []byte(formatTimestamp(ts))); err != nil {
		return ts, &TimestampError{Err: err}
	}
	return ts, nil
}

// LastSaved returns the time of the last successful Save, if any.
func (a *Adapter) LastSaved(ctx context.Context) (time.Time, bool, error) {
	data, err := a.kv.Get(ctx, LastSavedKey)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &ReadError{Key: LastSavedKey, Err: err}
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false, &ReadError{Key: LastSavedKey, Err: err}
	}
	return ts, true, nil
}

// formatTimestamp matches the ISO-8601 form written by browsers: millisecond
// precision and a Z suffix.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
