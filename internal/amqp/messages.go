package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// LedgerSavedMessage announces that a new snapshot was flushed. It carries
// the totals so listeners do not need to read the store.
type LedgerSavedMessage struct {
	Count         int       `json:"count"`
	TotalIncome   float64   `json:"totalIncome"`
	TotalExpenses float64   `json:"totalExpenses"`
	Balance       float64   `json:"balance"`
	SavedAt       time.Time `json:"savedAt"`
}

func NewLedgerSavedMessage(count int, summary core.Summary, savedAt time.Time) *LedgerSavedMessage {
	return &LedgerSavedMessage{
		Count:         count,
		TotalIncome:   summary.TotalIncome,
		TotalExpenses: summary.TotalExpenses,
		Balance:       summary.Balance,
		SavedAt:       savedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSavedMessageFromJSON creates a message from JSON bytes
func LedgerSavedMessageFromJSON(data []byte) (*LedgerSavedMessage, error) {
	var msg LedgerSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
