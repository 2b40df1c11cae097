package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/worker"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// open loads env and config, then the ledger; callers must Close the app.
func (g *globals) open(ctx context.Context) (*cli.App, error) {
	if err := cli.LoadEnvFile(g.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	return cli.Open(ctx, cfg, cli.SetupLogger(cfg.LogLevel))
}

// flushResult tells the user whether a change reached the store.
func flushResult(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(w, "warning: change applied in memory but not saved: %v\n", err)
	}
}

type serveCmd struct{}

func (c *serveCmd) Run(g *globals) error {
	ctx := context.Background()
	app, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	return cli.Serve(ctx, app)
}

type addCmd struct {
	Description string `arg help:"What the transaction is for."`
	Amount      string `arg help:"Amount, e.g. 12.50 or 12,50."`
	Type        string `arg help:"income or expense."`
}

func (c *addCmd) Run(g *globals) error {
	ctx := context.Background()
	app, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	tx, flush, err := app.Ledger.AddText(ctx, c.Description, c.Amount, c.Type)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Added %s %s (%s)\n", tx.Description, core.FormatSigned(tx, app.Config.Currency), tx.ID)
	flushResult(stdout, flush.Err)
	return nil
}

type rmCmd struct {
	ID string `arg help:"Transaction id as shown by list."`
}

func (c *rmCmd) Run(g *globals) error {
	ctx := context.Background()
	app, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	tx, ok := app.Ledger.Get(c.ID)
	if !ok {
		return fmt.Errorf("no transaction with id %q", c.ID)
	}
	removed, flush := app.Ledger.Remove(ctx, c.ID)
	if !removed {
		return fmt.Errorf("no transaction with id %q", c.ID)
	}
	fmt.Fprintf(stdout, "Removed %s %s (%s)\n", tx.Description, core.FormatSigned(tx, app.Config.Currency), tx.ID)
	flushResult(stdout, flush.Err)
	return nil
}

type clearCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *clearCmd) Run(g *globals) error {
	ctx := context.Background()
	app, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	n := len(app.Ledger.Transactions())
	if n == 0 {
		fmt.Fprintln(stdout, "Nothing to clear.")
		return nil
	}
	if !c.Yes && !confirm(stdin, stdout, fmt.Sprintf("Delete all %d transactions? This cannot be undone. [y/N] ", n)) {
		fmt.Fprintln(stdout, "Cancelled.")
		return nil
	}

	flush := app.Ledger.Clear(ctx)
	fmt.Fprintf(stdout, "Cleared %d transactions\n", n)
	flushResult(stdout, flush.Err)
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

type listCmd struct {
	Plain bool `help:"Print raw Markdown."`
}

func (c *listCmd) Run(g *globals) error {
	app, err := g.open(context.Background())
	if err != nil {
		return err
	}
	defer app.Close()
	md := report.LedgerMarkdown(app.Ledger.Snapshot(), app.Config.Currency)
	return report.NewTerminal(stdout, c.Plain).Render(md)
}

type summaryCmd struct {
	Plain bool `help:"Print raw Markdown."`
}

func (c *summaryCmd) Run(g *globals) error {
	app, err := g.open(context.Background())
	if err != nil {
		return err
	}
	defer app.Close()
	md := report.SummaryMarkdown(app.Ledger.Snapshot(), app.Config.Currency)
	return report.NewTerminal(stdout, c.Plain).Render(md)
}

type exportCmd struct {
	Out string `help:"Output file; a directory gets the default file name; - writes to stdout." default:"."`
}

func (c *exportCmd) Run(g *globals) error {
	app, err := g.open(context.Background())
	if err != nil {
		return err
	}
	defer app.Close()

	doc := app.Ledger.Export()
	if c.Out == "-" {
		_, err := doc.WriteTo(stdout)
		return err
	}

	path := c.Out
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, doc.FileName())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d transactions to %s\n", len(doc.Transactions), path)
	return nil
}

type watchCmd struct{}

func (c *watchCmd) Run(g *globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Backend.Notifier == nil {
		return errors.New("watch needs a reachable broker: set AMQP_URL")
	}
	fmt.Fprintln(stdout, "Waiting for ledger.saved messages, Ctrl+C to stop")
	return worker.NewSaveWatcher(stdout, app.Config.Currency, app.Logger).Run(ctx, app.Backend.Notifier)
}
