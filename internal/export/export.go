// Package export builds the downloadable JSON snapshot of the ledger.
package export

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
)

// ContentType is the media type of an export document.
const ContentType = "application/json"

// Document is a read-only copy of the ledger at ExportedAt.
type Document struct {
	ExportedAt   time.Time          `json:"exportedAt"`
	Transactions []core.Transaction `json:"transactions"`
}

func New(txs []core.Transaction, now time.Time) Document {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	return Document{ExportedAt: now.UTC().Truncate(time.Millisecond), Transactions: out}
}

// FileName returns fintrack-export-YYYY-MM-DD-HH-MM-SS.json for the export time.
func (d Document) FileName() string {
	stamp := d.ExportedAt.UTC().Format("2006-01-02T15:04:05")
	stamp = strings.NewReplacer(":", "-", "T", "-").Replace(stamp)
	return "fintrack-export-" + stamp + ".json"
}

// WriteTo writes the document as indented JSON.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
