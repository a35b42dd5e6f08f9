// Package handler exposes the assembled report over HTTP. Routes are thin:
// every payload comes straight from the report service, keyed by sheet name.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dwhmon/internal/platform/middleware"
	"dwhmon/internal/report"
	dErrors "dwhmon/pkg/domain-errors"
)

// Reporter defines the report operations the HTTP layer needs.
type Reporter interface {
	Report(ctx context.Context) (*report.Report, error)
	Refresh(ctx context.Context) (*report.Report, error)
}

// Handler handles the report and operations endpoints.
type Handler struct {
	logger       *slog.Logger
	reports      Reporter
	jwtValidator middleware.JWTValidator
}

// New creates a new report Handler.
func New(reports Reporter, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		reports:      reports,
		jwtValidator: jwtValidator,
	}
}

// Register registers the report routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(60 * time.Second))
	api.Use(middleware.ContentTypeJSON)

	api.Get("/report", h.handleReport)
	api.Get("/reconciliation", h.handleReconciliation)
	api.Get("/summary", h.handleSheet(report.SheetSummary))
	api.Get("/document_counts", h.handleSheet(report.SheetDocumentCounts))
	api.Get("/recent_document_counts", h.handleSheet(report.SheetRecentDocuments))
	api.Get("/top_users", h.handleSheet(report.SheetTopUsers))
	api.Get("/top_users_current_year", h.handleSheet(report.SheetTopUsersCurrentYear))
	api.Get("/archive_status", h.handleSheet(report.SheetArchiveStatus))
	api.Get("/monthly_trend", h.handleSheet(report.SheetMonthlyTrend))

	ops := chi.NewRouter()
	ops.Use(middleware.Recovery(h.logger))
	ops.Use(middleware.RequestID)
	ops.Use(middleware.Logger(h.logger))
	ops.Use(middleware.Timeout(120 * time.Second))
	ops.Use(middleware.ContentTypeJSON)
	ops.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	ops.Post("/refresh", h.handleRefresh)

	r.Mount("/api", api)
	r.Mount("/ops", ops)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Report(r.Context())
	if err != nil {
		h.logError(r.Context(), "report run failed", err)
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Report(r.Context())
	if err != nil {
		h.logError(r.Context(), "report run failed", err)
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rep.Reconciliation)
}

// handleSheet serves a single named sheet out of the current report.
func (h *Handler) handleSheet(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := h.reports.Report(r.Context())
		if err != nil {
			h.logError(r.Context(), "report run failed", err)
			WriteError(w, err)
			return
		}
		for _, sheet := range rep.Sheets {
			if sheet.Name == name {
				WriteJSON(w, http.StatusOK, sheet)
				return
			}
		}
		// Every sheet is always assembled; a miss means a routing bug.
		WriteError(w, dErrors.Newf(dErrors.CodeInternal, "sheet %q not assembled", name))
	}
}

// handleRefresh forces a fresh run, replacing the cached report.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)

	rep, err := h.reports.Refresh(ctx)
	if err != nil {
		h.logError(ctx, "forced refresh failed", err)
		WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report refreshed",
		"request_id", middleware.GetRequestID(ctx),
		"subject", subject,
		"run_id", rep.RunID,
	)
	WriteJSON(w, http.StatusOK, map[string]string{
		"run_id":       rep.RunID,
		"generated_at": rep.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
