package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/export"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

const unsavedWarning = "Change applied, but it could not be saved and will be lost on restart."

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"checks":       checks,
		"transactions": len(s.ledger.Transactions()),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := pageView{
		Ledger:   newLedgerView(s.ledger.Snapshot(), s.currency),
		Currency: s.currency,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed",
			applog.NewFields().WithError(err, applog.ErrorTypeInternal).WithOperation(applog.OpRender).ToSlice()...)
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	s.renderLedger(w, r, NewHTMXResponse(), false)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	in, errResp := ParseTransactionInput(w, r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	tx, flush, err := s.ledger.AddText(ctx, in.Description, in.Amount, in.Type)
	if err != nil {
		// every AddText failure is a validation failure
		logger.DebugContext(ctx, "Transaction rejected",
			applog.NewFields().WithError(err, applog.ErrorTypeValidation).WithOperation(applog.OpAdd).ToSlice()...)
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	applog.NewStructuredLogger(logger).LogTransactionAdded(ctx, tx)

	b := NewHTMXResponse().TriggerFormReset()
	s.renderLedger(w, r, withFlushNotice(b, flush, "Transaction added."), true)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, flush := s.ledger.Remove(r.Context(), id)
	if !removed {
		NotFoundError("Transaction not found.").Write(w)
		return
	}
	s.renderLedger(w, r, withFlushNotice(NewHTMXResponse(), flush, "Transaction deleted."), true)
}

// handleClearTransactions empties the ledger. The page asks for
// confirmation before sending the request.
func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	flush := s.ledger.Clear(r.Context())
	s.renderLedger(w, r, withFlushNotice(NewHTMXResponse(), flush, "All transactions cleared."), true)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := s.ledger.Export()

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			applog.NewFields().WithError(err, applog.ErrorTypeInternal).WithOperation(applog.OpExport).ToSlice()...)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.FileName()))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

const reportPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>FinTrack report</title><link rel="stylesheet" href="/static/app.css"></head>
<body class="report">
%s</body>
</html>
`

// handleReport serves a printable page with the full ledger and totals.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := report.HTML(report.LedgerMarkdown(s.ledger.Snapshot(), s.currency))
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report render failed",
			applog.NewFields().WithError(err, applog.ErrorTypeInternal).WithOperation(applog.OpRender).ToSlice()...)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprintf(w, reportPage, body)
}

// renderLedger writes the ledger partial with the builder's triggers.
func (s *Server) renderLedger(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, changed bool) {
	if s.templates == nil {
		InternalServerError("Templates not loaded.").Write(w)
		return
	}

	snap := s.ledger.Snapshot()
	if changed {
		b.TriggerLedgerChanged(len(snap.Transactions))
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "ledger", newLedgerView(snap, s.currency)); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger template execution failed",
			applog.NewFields().WithError(err, applog.ErrorTypeInternal).WithOperation(applog.OpRender).ToSlice()...)
		InternalServerError("Could not render the ledger.").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

func withFlushNotice(b *HTMXResponseBuilder, flush services.Flush, success string) *HTMXResponseBuilder {
	if flush.Err != nil {
		return b.TriggerWarningNotification(unsavedWarning)
	}
	return b.TriggerSuccessNotification(success)
}
