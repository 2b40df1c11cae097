package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
	"fintrack/internal/persistence"
)

// publishTimeout bounds one notification, including a reconnect.
const publishTimeout = 5 * time.Second

// Notifier is told about every successful flush.
type Notifier interface {
	PublishLedgerSaved(ctx context.Context, count int, summary core.Summary, savedAt time.Time) error
}

// Flush describes what happened to the durable copy after a mutation.
// Err is a *persistence.WriteError when the store rejected the snapshot;
// the in-memory change is kept either way.
type Flush struct {
	SavedAt time.Time
	Err     error
}

// Durable reports whether the snapshot reached the store.
func (f Flush) Durable() bool {
	return f.Err == nil && !f.SavedAt.IsZero()
}

// Snapshot is a consistent view of the ledger for rendering.
type Snapshot struct {
	Transactions []core.Transaction
	Summary      core.Summary
	LastSaved    time.Time
	HasSaved     bool
}

// LedgerService owns the ledger for the life of the process. Every
// mutation is followed by a flush. Calls are serialized so they apply
// in invocation order even when made from concurrent HTTP handlers.
type LedgerService struct {
	mu        sync.Mutex
	ledger    *core.Ledger
	store     *persistence.Adapter
	notifier  Notifier
	closers   []io.Closer
	logger    *applog.Logger
	now       func() time.Time
	lastSaved time.Time
	pending   bool
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithNotifier(n Notifier) Option {
	return func(s *LedgerService) { s.notifier = n }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentLedger)
		}
	}
}

// WithCloser registers resources released by Close, in order.
func WithCloser(c io.Closer) Option {
	return func(s *LedgerService) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewLedgerService(ledger *core.Ledger, store *persistence.Adapter, opts ...Option) *LedgerService {
	s := &LedgerService{
		ledger: ledger,
		store:  store,
		logger: applog.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the stored snapshot into the ledger. A missing or corrupt
// snapshot leaves the ledger empty and is returned as a *persistence.ReadError
// for the caller to report; it is never fatal.
func (s *LedgerService) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, loadErr := s.store.Load(ctx)
	var rerr *persistence.ReadError
	switch {
	case loadErr == nil:
	case errors.As(loadErr, &rerr) && rerr.NotFound():
		s.logger.InfoContext(ctx, "No stored ledger, starting empty", applog.FieldKey, rerr.Key)
	default:
		s.logger.WarnContext(ctx, "Stored ledger unreadable, starting empty",
			applog.NewFields().WithError(loadErr, applog.ErrorTypeRead).WithOperation(applog.OpLoad).ToSlice()...)
	}

	if err := s.ledger.Restore(txs); err != nil {
		// the codec already validated; this only trips with a custom codec
		s.ledger.Clear()
		return &persistence.ReadError{Key: persistence.TransactionsKey, Err: err}
	}

	if ts, ok, err := s.store.LastSaved(ctx); err != nil {
		s.logger.WarnContext(ctx, "Last saved timestamp unreadable", applog.FieldError, err)
	} else if ok {
		s.lastSaved = ts
	}

	s.logger.InfoContext(ctx, "Ledger loaded",
		applog.NewFields().WithLedger(s.ledger.Len(), core.Summarize(txs)).WithOperation(applog.OpLoad).ToSlice()...)
	return loadErr
}

// Add records a transaction and flushes. A validation failure leaves the
// ledger unchanged and skips the flush.
func (s *LedgerService) Add(ctx context.Context, description string, amount float64, typ core.Type) (core.Transaction, Flush, error) {
	s.mu.Lock()
	tx, err := s.ledger.Add(description, amount, typ)
	if err != nil {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Transaction rejected",
			applog.NewFields().WithError(err, applog.ErrorTypeValidation).WithOperation(applog.OpAdd).ToSlice()...)
		return core.Transaction{}, Flush{}, err
	}
	s.logger.InfoContext(ctx, "Transaction added",
		applog.NewFields().WithTransaction(tx).WithOperation(applog.OpAdd).ToSlice()...)
	flush, note := s.flushLocked(ctx)
	s.mu.Unlock()

	s.announce(ctx, note)
	return tx, flush, nil
}

// AddText parses form or command-line input and records it.
func (s *LedgerService) AddText(ctx context.Context, description, amountText, typeText string) (core.Transaction, Flush, error) {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Transaction{}, Flush{}, err
	}
	typ, err := core.ParseType(typeText)
	if err != nil {
		return core.Transaction{}, Flush{}, err
	}
	return s.Add(ctx, description, amount, typ)
}

// Get returns the transaction with the given id.
func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(id)
}

// Remove deletes by id. Nothing is flushed when the id is unknown.
func (s *LedgerService) Remove(ctx context.Context, id string) (bool, Flush) {
	s.mu.Lock()
	if !s.ledger.Remove(id) {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Remove of unknown transaction ignored", applog.FieldTxID, id)
		return false, Flush{}
	}
	s.logger.InfoContext(ctx, "Transaction removed", applog.FieldTxID, id, applog.FieldOperation, applog.OpRemove)
	flush, note := s.flushLocked(ctx)
	s.mu.Unlock()

	s.announce(ctx, note)
	return true, flush
}

// Clear empties the ledger and flushes. Confirmation is the caller's job.
func (s *LedgerService) Clear(ctx context.Context) Flush {
	s.mu.Lock()
	n := s.ledger.Len()
	s.ledger.Clear()
	s.logger.InfoContext(ctx, "Ledger cleared", applog.FieldCount, n, applog.FieldOperation, applog.OpClear)
	flush, note := s.flushLocked(ctx)
	s.mu.Unlock()

	s.announce(ctx, note)
	return flush
}

// Flush writes the current snapshot without mutating anything.
func (s *LedgerService) Flush(ctx context.Context) Flush {
	s.mu.Lock()
	flush, note := s.flushLocked(ctx)
	s.mu.Unlock()

	s.announce(ctx, note)
	return flush
}

// savedNote is what a successful flush announces once the lock is released.
type savedNote struct {
	count   int
	summary core.Summary
	savedAt time.Time
}

// flushLocked must be called with s.mu held. The returned note is nil when
// nothing reached the store.
func (s *LedgerService) flushLocked(ctx context.Context) (Flush, *savedNote) {
	txs := s.ledger.List()
	ts, err := s.store.Save(ctx, txs)

	var terr *persistence.TimestampError
	switch {
	case err == nil:
	case errors.As(err, &terr):
		// snapshot is durable; only the stored save time is stale
		s.logger.WarnContext(ctx, "Ledger saved but save time not recorded",
			applog.NewFields().WithError(err, applog.ErrorTypeWrite).WithOperation(applog.OpSave).ToSlice()...)
	default:
		s.logger.ErrorContext(ctx, "Ledger not saved, changes kept in memory only",
			applog.NewFields().WithError(err, applog.ErrorTypeWrite).WithOperation(applog.OpSave).ToSlice()...)
		s.pending = true
		return Flush{Err: err}, nil
	}
	s.lastSaved = ts
	s.pending = false

	summary := core.Summarize(txs)
	s.logger.DebugContext(ctx, "Ledger saved",
		applog.NewFields().WithLedger(len(txs), summary).WithSavedAt(ts).WithOperation(applog.OpSave).ToSlice()...)
	return Flush{SavedAt: ts}, &savedNote{count: len(txs), summary: summary, savedAt: ts}
}

// announce publishes a save outside the lock, bounded by publishTimeout.
// Concurrent announcements may arrive out of order; savedAt orders them.
func (s *LedgerService) announce(ctx context.Context, note *savedNote) {
	if s.notifier == nil || note == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.notifier.PublishLedgerSaved(pctx, note.count, note.summary, note.savedAt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger saved message",
			applog.NewFields().WithError(err, applog.ErrorTypeNetwork).WithOperation(applog.OpPublish).ToSlice()...)
	}
}

// Pending reports whether the latest change has not reached the store.
func (s *LedgerService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Transactions returns a copy of the ledger, oldest first.
func (s *LedgerService) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.List()
}

func (s *LedgerService) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.ledger.List())
}

// LastSaved returns the time of the latest successful flush, including
// one from a previous process.
func (s *LedgerService) LastSaved() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved, !s.lastSaved.IsZero()
}

func (s *LedgerService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.ledger.List()
	return Snapshot{
		Transactions: txs,
		Summary:      core.Summarize(txs),
		LastSaved:    s.lastSaved,
		HasSaved:     !s.lastSaved.IsZero(),
	}
}

// Export returns a read-only document of the current ledger.
func (s *LedgerService) Export() export.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.New(s.ledger.List(), s.now())
}

// Close releases the registered resources.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
