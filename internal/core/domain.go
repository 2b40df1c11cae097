package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  Type = "income"
	Expense Type = "expense"
)

type (
	// Type tells whether a transaction adds to or subtracts from the balance.
	Type string

	// Transaction is one recorded income or expense event. Amount is always
	// a positive magnitude; the sign comes from Type.
	Transaction struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		Type        Type      `json:"type"`
		Date        time.Time `json:"date"`
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("amount must be a finite non-zero number")
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrEmptyID          = errors.New("empty id")
	ErrDuplicateID      = errors.New("duplicate id")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseType maps user text onto a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	return t, nil
}

func (t Type) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

// Label is the capitalised form used in listings.
func (t Type) Label() string {
	if t == Income {
		return "Income"
	}
	return "Expense"
}

// Signed returns the amount with the sign implied by the type.
func (tx Transaction) Signed() float64 {
	if tx.Type == Expense {
		return -tx.Amount
	}
	return tx.Amount
}

// Validate checks a stored record, as opposed to user input to Ledger.Add.
func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.ID) == "" {
		return &ValidationError{Field: "id", Err: ErrEmptyID}
	}
	if strings.TrimSpace(tx.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if !validAmount(tx.Amount) || tx.Amount < 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if !tx.Type.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	return nil
}

func validAmount(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
