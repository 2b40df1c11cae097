package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

// Codec turns a transaction collection into bytes and back.
type Codec interface {
	Encode(txs []core.Transaction) ([]byte, error)
	Decode(data []byte) ([]core.Transaction, error)
}

// JSONCodec stores the collection as a JSON array of
// {id, description, amount, type, date} objects with ISO-8601 dates.
type JSONCodec struct{}

func (JSONCodec) Encode(txs []core.Transaction) ([]byte, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return json.Marshal(txs)
}

// Decode rejects anything that is not a well-formed collection: bad JSON,
// invalid records or repeated ids.
func (JSONCodec) Decode(data []byte) ([]core.Transaction, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var txs []core.Transaction
	if err := dec.Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode transactions: trailing data")
	}

	seen := make(map[string]struct{}, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[tx.ID]; dup {
			return nil, fmt.Errorf("record %d: %w", i, &core.ValidationError{Field: "id", Err: core.ErrDuplicateID})
		}
		seen[tx.ID] = struct{}{}
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}
