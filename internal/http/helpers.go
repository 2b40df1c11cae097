package http

import (
	"errors"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const (
	emptyLedgerText   = "No transactions yet. Add one using the form above."
	noDescriptionText = "(no description)"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// validationMessage turns a rejected add into text for the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		return "Please enter a description."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid, non-zero amount."
	case errors.Is(err, core.ErrInvalidType):
		return "Please choose income or expense."
	default:
		return "Invalid transaction."
	}
}

type transactionView struct {
	ID          string
	Description string
	Amount      string
	Date        string
	Type        string
	Income      bool
}

type ledgerView struct {
	Transactions    []transactionView
	Count           int
	EmptyText       string
	Income          string
	Expenses        string
	Balance         string
	BalanceNegative bool
	LastSaved       string
}

type pageView struct {
	Ledger   ledgerView
	Currency string
}

// newLedgerView prepares a snapshot for the templates: newest first,
// amounts signed and formatted in the display currency.
func newLedgerView(snap services.Snapshot, currency string) ledgerView {
	v := ledgerView{
		Count:           len(snap.Transactions),
		EmptyText:       emptyLedgerText,
		Income:          core.FormatCurrency(snap.Summary.TotalIncome, currency),
		Expenses:        core.FormatCurrency(snap.Summary.TotalExpenses, currency),
		Balance:         core.FormatCurrency(snap.Summary.Balance, currency),
		BalanceNegative: snap.Summary.Balance < 0,
	}
	if snap.HasSaved {
		v.LastSaved = formatDateTime(snap.LastSaved)
	}

	v.Transactions = make([]transactionView, 0, len(snap.Transactions))
	for i := len(snap.Transactions) - 1; i >= 0; i-- {
		tx := snap.Transactions[i]
		desc := tx.Description
		if strings.TrimSpace(desc) == "" {
			desc = noDescriptionText
		}
		v.Transactions = append(v.Transactions, transactionView{
			ID:          tx.ID,
			Description: desc,
			Amount:      core.FormatSigned(tx, currency),
			Date:        formatDate(tx.Date),
			Type:        tx.Type.String(),
			Income:      tx.Type == core.Income,
		})
	}
	return v
}

func formatDate(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04:05 UTC")
}
