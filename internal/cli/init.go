// Package cli provides common CLI initialization utilities shared by the
// fintrack subcommands: environment loading, logging, opening the ledger
// and running the web server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/persistence"
	"fintrack/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. An unknown level falls back to info.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	if lvl, err := applog.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error; a malformed one is.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App bundles what a subcommand needs: the hydrated ledger and the
// resources behind it.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.BackendResult
	Ledger  *services.LedgerService
}

// Open creates the configured backend and loads the stored ledger. A missing
// or unreadable snapshot is logged and the ledger starts empty.
func Open(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithCloser(result),
	}
	if result.Notifier != nil {
		opts = append(opts, services.WithNotifier(result.Notifier))
	}
	svc := services.NewLedgerService(core.NewLedger(), persistence.NewAdapter(result.Store), opts...)

	// a ReadError only means "no prior data"; Hydrate already logged it
	var rerr *persistence.ReadError
	if err := svc.Hydrate(ctx); err != nil && !errors.As(err, &rerr) {
		_ = svc.Close()
		return nil, err
	}

	return &App{Config: cfg, Logger: logger, Backend: result, Ledger: svc}, nil
}

// Close releases the backend and the notifier.
func (a *App) Close() error {
	return a.Ledger.Close()
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Serve runs the web UI until ctx is cancelled or SIGINT/SIGTERM arrives,
// then shuts down within the configured timeout.
func Serve(ctx context.Context, app *App) error {
	logger := app.Logger.WithComponent(applog.ComponentApp)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []apphttp.Option{
		apphttp.WithLogger(app.Logger),
		apphttp.WithCurrency(app.Config.Currency),
	}
	if p, ok := app.Backend.Store.(pinger); ok {
		opts = append(opts, apphttp.WithReadinessCheck(p.Ping))
	}
	srv := apphttp.NewServer(":"+app.Config.Port, app.Ledger, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", app.Config.Port,
			applog.FieldBackend, app.Config.DataBackend,
			applog.FieldCount, len(app.Ledger.Transactions()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", app.Config.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout(app.Config))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		// last chance to persist changes a failed flush left in memory
		if app.Ledger.Pending() {
			if flush := app.Ledger.Flush(shutdownCtx); flush.Err != nil {
				logger.Error("Final save failed, unsaved changes are lost", applog.FieldError, flush.Err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// ShutdownTimeout returns the configured grace period, defaulting to 10s.
func ShutdownTimeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.ShutdownTimeout
}
