package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.KV
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(config)
	case FileBackend:
		store, err = f.createFileStore(config)
	case MemoryBackend:
		store = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	// AMQP is optional; a broker that is down never blocks the ledger
	var notifier *amqp.Client
	if config.AMQPURL != "" {
		notifier, err = amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err)
			notifier = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
		}
	}

	return &BackendResult{
		Store:    store,
		Notifier: notifier,
		Cleanup: func() error {
			var errs []error
			if notifier != nil {
				errs = append(errs, notifier.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (storage.KV, error) {
	kv, err := storage.NewSQLite(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", kv.SchemaVersion())
	return kv, nil
}

func (f *DefaultFactory) createFileStore(config Config) (storage.KV, error) {
	kv, err := storage.NewFile(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", kv.Dir())
	return kv, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) storage.KV {
	var opts []storage.MemoryOption
	if config.MemoryQuota > 0 {
		opts = append(opts, storage.WithQuota(config.MemoryQuota))
	}

	f.logger.Info("Initialized memory backend", "quota_bytes", config.MemoryQuota)
	return storage.NewMemory(opts...)
}
