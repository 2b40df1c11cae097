package core

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

func TestLedgerAdd(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 30, 0, 123456789, time.UTC)
	l := NewLedger(WithClock(fixedClock(now)))

	tx, err := l.Add("  Salary ", 2000, Income)
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "Salary", tx.Description)
	assert.Equal(t, 2000.0, tx.Amount)
	assert.Equal(t, Income, tx.Type)
	assert.True(t, tx.Date.Equal(now.Truncate(time.Millisecond)))

	list := l.List()
	require.Len(t, list, 1)
	assert.Equal(t, tx, list[0])
}

func TestLedgerAddNormalizesNegativeAmount(t *testing.T) {
	l := NewLedger()
	tx, err := l.Add("Refund", -40, Expense)
	require.NoError(t, err)
	assert.Equal(t, 40.0, tx.Amount)
}

func TestLedgerAddRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		desc   string
		amount float64
		typ    Type
		want   error
	}{
		{"empty description", "", 10, Income, ErrEmptyDescription},
		{"blank description", "   ", 10, Income, ErrEmptyDescription},
		{"zero amount", "x", 0, Income, ErrInvalidAmount},
		{"NaN amount", "x", math.NaN(), Income, ErrInvalidAmount},
		{"infinite amount", "x", math.Inf(-1), Expense, ErrInvalidAmount},
		{"unknown type", "x", 10, Type("transfer"), ErrInvalidType},
		{"empty type", "x", 10, Type(""), ErrInvalidType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLedger()
			_, err := l.Add("existing", 1, Income)
			require.NoError(t, err)

			_, err = l.Add(tc.desc, tc.amount, tc.typ)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Equal(t, 1, l.Len())
		})
	}
}

func TestLedgerIDsAreUnique(t *testing.T) {
	l := NewLedger()
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		tx, err := l.Add("item", float64(i+1), Expense)
		require.NoError(t, err)
		require.False(t, seen[tx.ID], "duplicate id %s", tx.ID)
		seen[tx.ID] = true
	}
}

func TestLedgerRegeneratesCollidingID(t *testing.T) {
	ids := []string{"same", "same", "", "other"}
	l := NewLedger(WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	first, err := l.Add("a", 1, Income)
	require.NoError(t, err)
	second, err := l.Add("b", 1, Income)
	require.NoError(t, err)

	assert.Equal(t, "same", first.ID)
	assert.Equal(t, "other", second.ID)
}

func TestLedgerRemove(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	for _, d := range []string{"a", "b", "c"} {
		_, err := l.Add(d, 1, Expense)
		require.NoError(t, err)
	}
	before := l.List()

	assert.False(t, l.Remove("missing"))
	assert.Equal(t, before, l.List())

	got, found := l.Get("tx-2")
	require.True(t, found)
	assert.Equal(t, "b", got.Description)

	assert.True(t, l.Remove("tx-2"))
	after := l.List()
	require.Len(t, after, 2)
	assert.Equal(t, "tx-1", after[0].ID)
	assert.Equal(t, "tx-3", after[1].ID)
	_, found = l.Get("tx-2")
	assert.False(t, found)

	assert.False(t, l.Remove("tx-2"))
	assert.Equal(t, 2, l.Len())
}

func TestLedgerClear(t *testing.T) {
	l := NewLedger()
	l.Clear()
	assert.Empty(t, l.List())

	for i := 0; i < 5; i++ {
		_, err := l.Add("x", 1, Income)
		require.NoError(t, err)
	}
	l.Clear()
	assert.Empty(t, l.List())
	assert.Equal(t, 0, l.Len())

	_, err := l.Add("after clear", 1, Income)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestLedgerListIsACopy(t *testing.T) {
	l := NewLedger()
	_, err := l.Add("original", 5, Income)
	require.NoError(t, err)

	snap := l.List()
	snap[0].Description = "changed"

	list := l.List()
	require.Len(t, list, 1)
	assert.Equal(t, "original", list[0].Description)
}

func TestLedgerPreservesInsertionOrder(t *testing.T) {
	l := NewLedger()
	for _, d := range []string{"first", "second", "third"} {
		_, err := l.Add(d, 1, Expense)
		require.NoError(t, err)
	}
	list := l.List()
	assert.Equal(t, "first", list[0].Description)
	assert.Equal(t, "third", list[2].Description)
}

func TestLedgerRestore(t *testing.T) {
	date := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	txs := []Transaction{
		{ID: "a", Description: "Salary", Amount: 2000, Type: Income, Date: date},
		{ID: "b", Description: "Rent", Amount: 800, Type: Expense, Date: date},
	}

	l := NewLedger()
	require.NoError(t, l.Restore(txs))
	assert.Equal(t, txs, l.List())

	// restored ids take part in uniqueness
	ids := []string{"a", "c"}
	l2 := NewLedger(WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	require.NoError(t, l2.Restore(txs))
	tx, err := l2.Add("new", 1, Income)
	require.NoError(t, err)
	assert.Equal(t, "c", tx.ID)
}

func TestLedgerRestoreRejectsBadRecords(t *testing.T) {
	l := NewLedger()
	_, err := l.Add("keep me", 1, Income)
	require.NoError(t, err)

	dup := []Transaction{
		{ID: "a", Description: "x", Amount: 1, Type: Income},
		{ID: "a", Description: "y", Amount: 2, Type: Expense},
	}
	err = l.Restore(dup)
	assert.ErrorIs(t, err, ErrDuplicateID)

	bad := []Transaction{{ID: "a", Description: "x", Amount: 0, Type: Income}}
	err = l.Restore(bad)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	require.Len(t, l.List(), 1)
	assert.Equal(t, "keep me", l.List()[0].Description)
}
