package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ledger is the authoritative in-memory list of transactions, oldest first.
// It is not safe for concurrent use; callers serialize access.
type Ledger struct {
	items []Transaction
	ids   map[string]struct{}
	now   func() time.Time
	newID func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the time source used to stamp new transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator replaces the identifier source.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		ids:   make(map[string]struct{}),
		now:   time.Now,
		newID: NewID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewID returns a UUIDv7: a millisecond timestamp followed by random bits.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Add validates the input, stamps id and date, and appends the record.
// Negative amounts are stored as their magnitude.
func (l *Ledger) Add(description string, amount float64, typ Type) (Transaction, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Transaction{}, &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if !validAmount(amount) {
		return Transaction{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if !typ.Valid() {
		return Transaction{}, &ValidationError{Field: "type", Err: ErrInvalidType}
	}

	tx := Transaction{
		ID:          l.uniqueID(),
		Description: description,
		Amount:      math.Abs(amount),
		Type:        typ,
		Date:        l.now().UTC().Truncate(time.Millisecond),
	}
	l.items = append(l.items, tx)
	l.ids[tx.ID] = struct{}{}
	return tx, nil
}

func (l *Ledger) uniqueID() string {
	for {
		id := l.newID()
		if _, taken := l.ids[id]; !taken && id != "" {
			return id
		}
	}
}

// Remove deletes the transaction with the given id and reports whether it existed.
func (l *Ledger) Remove(id string) bool {
	if _, ok := l.ids[id]; !ok {
		return false
	}
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	delete(l.ids, id)
	return true
}

func (l *Ledger) Clear() {
	l.items = nil
	l.ids = make(map[string]struct{})
}

// List returns a copy; changing it does not affect the ledger.
func (l *Ledger) List() []Transaction {
	out := make([]Transaction, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Ledger) Len() int {
	return len(l.items)
}

func (l *Ledger) Get(id string) (Transaction, bool) {
	if _, ok := l.ids[id]; !ok {
		return Transaction{}, false
	}
	for _, tx := range l.items {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// Restore replaces the contents with previously persisted records. The
// ledger is left untouched if any record is invalid or an id repeats.
func (l *Ledger) Restore(txs []Transaction) error {
	ids := make(map[string]struct{}, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := ids[tx.ID]; dup {
			return fmt.Errorf("record %d: %w", i, &ValidationError{Field: "id", Err: ErrDuplicateID})
		}
		ids[tx.ID] = struct{}{}
	}
	l.items = append([]Transaction(nil), txs...)
	l.ids = ids
	return nil
}
