// Package worker handles ledger.saved notifications consumed from AMQP.
package worker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// SaveWatcher prints one line per ledger.saved notification. Deliveries are
// at-least-once, so a message not newer than the last one printed is skipped.
type SaveWatcher struct {
	out      io.Writer
	currency string
	logger   *applog.Logger

	mu      sync.Mutex
	last    time.Time
	handled int
	skipped int
}

func NewSaveWatcher(out io.Writer, currency string, logger *applog.Logger) *SaveWatcher {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SaveWatcher{out: out, currency: currency, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleLedgerSaved processes a single message. A write error is returned so
// the delivery gets nacked.
func (w *SaveWatcher) HandleLedgerSaved(ctx context.Context, msg *amqp.LedgerSavedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !msg.SavedAt.After(w.last) {
		w.skipped++
		w.logger.DebugContext(ctx, "Skipping stale ledger saved message",
			"saved_at", msg.SavedAt, "last_seen", w.last)
		return nil
	}

	_, err := fmt.Fprintf(w.out, "%s  %d transaction(s)  income %s  expenses %s  balance %s\n",
		msg.SavedAt.UTC().Format("2006-01-02 15:04:05"),
		msg.Count,
		core.FormatCurrency(msg.TotalIncome, w.currency),
		core.FormatCurrency(msg.TotalExpenses, w.currency),
		core.FormatCurrency(msg.Balance, w.currency))
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	w.last = msg.SavedAt
	w.handled++
	w.logger.InfoContext(ctx, "Ledger saved", "count", msg.Count, "saved_at", msg.SavedAt)
	return nil
}

// Stats returns how many messages were printed and how many were skipped.
func (w *SaveWatcher) Stats() (handled, skipped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handled, w.skipped
}

// Consumer is the subset of *amqp.Client used by Run.
type Consumer interface {
	ConsumeLedgerSaved(ctx context.Context, handler func(*amqp.LedgerSavedMessage) error) error
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *SaveWatcher) Run(ctx context.Context, c Consumer) error {
	err := c.ConsumeLedgerSaved(ctx, func(m *amqp.LedgerSavedMessage) error {
		return w.HandleLedgerSaved(ctx, m)
	})
	if ctx.Err() != nil {
		handled, skipped := w.Stats()
		w.logger.Info("Watcher stopped", "handled", handled, "skipped", skipped)
		return nil
	}
	return err
}
