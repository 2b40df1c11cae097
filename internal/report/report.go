// Package report renders the ledger as Markdown for the terminal and as a
// printable HTML page.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const emptyLedgerText = "No transactions yet."

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")

// LedgerMarkdown lists every transaction, newest first, followed by the totals.
func LedgerMarkdown(snap services.Snapshot, currency string) string {
	var b strings.Builder
	b.WriteString("# Transactions\n\n")

	if len(snap.Transactions) == 0 {
		b.WriteString(emptyLedgerText + "\n\n")
	} else {
		b.WriteString("| Date | Description | Amount | ID |\n")
		b.WriteString("|---|---|---:|---|\n")
		for i := len(snap.Transactions) - 1; i >= 0; i-- {
			tx := snap.Transactions[i]
			desc := strings.TrimSpace(tx.Description)
			if desc == "" {
				desc = "(no description)"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | `%s` |\n",
				tx.Date.UTC().Format("2006-01-02 15:04"),
				cellEscaper.Replace(desc),
				core.FormatSigned(tx, currency),
				tx.ID)
		}
		b.WriteString("\n")
	}

	b.WriteString(summaryTable(snap.Summary, currency))
	b.WriteString(lastSavedLine(snap))
	return b.String()
}

// SummaryMarkdown renders only the totals.
func SummaryMarkdown(snap services.Snapshot, currency string) string {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	fmt.Fprintf(&b, "%d transaction(s)\n\n", len(snap.Transactions))
	b.WriteString(summaryTable(snap.Summary, currency))
	b.WriteString(lastSavedLine(snap))
	return b.String()
}

func summaryTable(s core.Summary, currency string) string {
	var b strings.Builder
	b.WriteString("| Income | Expenses | Balance |\n")
	b.WriteString("|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %s | %s | **%s** |\n\n",
		core.FormatCurrency(s.TotalIncome, currency),
		core.FormatCurrency(s.TotalExpenses, currency),
		core.FormatCurrency(s.Balance, currency))
	return b.String()
}

func lastSavedLine(snap services.Snapshot) string {
	if !snap.HasSaved {
		return ""
	}
	return fmt.Sprintf("_Last saved %s_\n", snap.LastSaved.UTC().Format("2006-01-02 15:04:05 UTC"))
}

// Terminal writes Markdown to out, styled by glamour unless plain is set.
type Terminal struct {
	out   io.Writer
	plain bool
	style string
	width int
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithStyle picks a glamour standard style such as "dark", "light" or "notty".
func WithStyle(style string) Option {
	return func(t *Terminal) { t.style = style }
}

func WithWordWrap(width int) Option {
	return func(t *Terminal) { t.width = width }
}

func NewTerminal(out io.Writer, plain bool, opts ...Option) *Terminal {
	t := &Terminal{out: out, plain: plain, width: 100}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) Render(md string) error {
	if t.plain {
		_, err := io.WriteString(t.out, md)
		return err
	}

	styleOpt := glamour.WithAutoStyle()
	if t.style != "" {
		styleOpt = glamour.WithStandardStyle(t.style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(t.width))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(t.out, out)
	return err
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts md to an HTML fragment. Raw HTML in md is dropped, so
// descriptions cannot inject markup.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
