package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func sampleLedger(t *testing.T) *core.Ledger {
	t.Helper()
	l := core.NewLedger()
	_, err := l.Add("Salary", 2000, core.Income)
	require.NoError(t, err)
	_, err = l.Add("Rent", 800, core.Expense)
	require.NoError(t, err)
	_, err = l.Add("Coffee", 3.75, core.Expense)
	require.NoError(t, err)
	return l
}

func assertSameTransactions(t *testing.T, want, got []core.Transaction) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Description, got[i].Description)
		assert.Equal(t, want[i].Amount, got[i].Amount)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.True(t, want[i].Date.Equal(got[i].Date), "date %d: %v != %v", i, want[i].Date, got[i].Date)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(storage.NewMemory())
	l := sampleLedger(t)

	ts, err := a.Save(ctx, l.List())
	require.NoError(t, err)
	assert.False(t, ts.IsZero())

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assertSameTransactions(t, l.List(), got)
}

func TestSaveEmptyLedger(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	a := NewAdapter(kv)

	_, err := a.Save(ctx, nil)
	require.NoError(t, err)

	raw, err := kv.Get(ctx, TransactionsKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStoredLayout(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	saved := time.Date(2025, 6, 1, 12, 0, 0, 500_000_000, time.UTC)
	a := NewAdapter(kv, WithClock(func() time.Time { return saved }))

	txs := []core.Transaction{{
		ID:          "lq2x9abc123",
		Description: "Salary",
		Amount:      2000,
		Type:        core.Income,
		Date:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}}
	_, err := a.Save(ctx, txs)
	require.NoError(t, err)

	raw, err := kv.Get(ctx, TransactionsKey)
	require.NoError(t, err)
	var objs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &objs))
	require.Len(t, objs, 1)
	assert.Equal(t, "lq2x9abc123", objs[0]["id"])
	assert.Equal(t, "Salary", objs[0]["description"])
	assert.Equal(t, 2000.0, objs[0]["amount"])
	assert.Equal(t, "income", objs[0]["type"])
	assert.Equal(t, "2025-06-01T09:00:00Z", objs[0]["date"])

	stamp, err := kv.Get(ctx, LastSavedKey)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T12:00:00.500Z", string(stamp))
}

func TestLoadBrowserWrittenSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	raw := `[{"id":"lq2x9abc123","description":"Salary","amount":2000,"type":"income","date":"2024-01-15T09:30:00.000Z"},` +
		`{"id":"lq2xa1f0e9","description":"Rent","amount":800,"type":"expense","date":"2024-01-15T09:31:12.345Z"}]`
	require.NoError(t, kv.Set(ctx, TransactionsKey, []byte(raw)))

	got, err := NewAdapter(kv).Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rent", got[1].Description)
	assert.Equal(t, 345, got[1].Date.Nanosecond()/int(time.Millisecond))
}

func TestLoadMissingSnapshot(t *testing.T) {
	got, err := NewAdapter(storage.NewMemory()).Load(context.Background())

	assert.NotNil(t, got)
	assert.Empty(t, got)

	var rerr *ReadError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.NotFound())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	cases := map[string]string{
		"not json":      `{{{`,
		"wrong shape":   `{"id":"a"}`,
		"empty":         ``,
		"zero amount":   `[{"id":"a","description":"x","amount":0,"type":"income","date":"2024-01-01T00:00:00Z"}]`,
		"bad type":      `[{"id":"a","description":"x","amount":1,"type":"gift","date":"2024-01-01T00:00:00Z"}]`,
		"duplicate ids": `[{"id":"a","description":"x","amount":1,"type":"income","date":"2024-01-01T00:00:00Z"},{"id":"a","description":"y","amount":2,"type":"expense","date":"2024-01-01T00:00:00Z"}]`,
		"trailing data": `[] []`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := storage.NewMemory()
			require.NoError(t, kv.Set(ctx, TransactionsKey, []byte(raw)))

			got, err := NewAdapter(kv).Load(ctx)
			assert.Empty(t, got)

			var rerr *ReadError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.False(t, rerr.NotFound())
		})
	}
}

func TestSaveRejectedByStore(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory(storage.WithQuota(200))
	a := NewAdapter(kv)

	first := []core.Transaction{{ID: "a", Description: "x", Amount: 1, Type: core.Income, Date: time.Unix(0, 0).UTC()}}
	_, err := a.Save(ctx, first)
	require.NoError(t, err)

	l := sampleLedger(t)
	ts, err := a.Save(ctx, l.List())
	assert.True(t, ts.IsZero())

	var werr *WriteError
	require.True(t, errors.As(err, &werr), "got %v", err)
	assert.Equal(t, TransactionsKey, werr.Key)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)

	// previous snapshot is still there
	got, err := a.Load(ctx)
	require.NoError(t, err)
	assertSameTransactions(t, first, got)
}

func TestSaveTimestampRejected(t *testing.T) {
	ctx := context.Background()
	txs := sampleLedger(t).List()
	data, err := JSONCodec{}.Encode(txs)
	require.NoError(t, err)

	// room for the snapshot but not for the timestamp after it
	kv := storage.NewMemory(storage.WithQuota(len(data) + 5))
	ts, err := NewAdapter(kv).Save(ctx, txs)

	var terr *TimestampError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
	assert.False(t, ts.IsZero())
	var werr *WriteError
	assert.False(t, errors.As(err, &werr))

	got, err := NewAdapter(kv).Load(ctx)
	require.NoError(t, err)
	assertSameTransactions(t, txs, got)

	_, ok, err := NewAdapter(kv).LastSaved(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastSaved(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 3, 4, 5, 6, 7_000_000, time.UTC)
	a := NewAdapter(storage.NewMemory(), WithClock(func() time.Time { return now }))

	_, ok, err := a.LastSaved(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ts, err := a.Save(ctx, nil)
	require.NoError(t, err)

	got, ok, err := a.LastSaved(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(ts))
	assert.True(t, got.Equal(now))
}

func TestLastSavedUnparseable(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, LastSavedKey, []byte("yesterday")))

	_, ok, err := NewAdapter(kv).LastSaved(ctx)
	assert.False(t, ok)
	var rerr *ReadError
	assert.True(t, errors.As(err, &rerr))
}

type failingCodec struct{ JSONCodec }

func (failingCodec) Decode([]byte) ([]core.Transaction, error) {
	return nil, errors.New("unsupported format")
}

func TestCustomCodec(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(storage.NewMemory(), WithCodec(failingCodec{}))
	l := sampleLedger(t)
	_, err := a.Save(ctx, l.List())
	require.NoError(t, err)

	got, err := a.Load(ctx)
	assert.Empty(t, got)
	var rerr *ReadError
	require.True(t, errors.As(err, &rerr))
	assert.EqualError(t, rerr.Err, "unsupported format")
}
