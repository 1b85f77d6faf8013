package reportshandler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrportal/internal/domain/auth"
	"hrportal/internal/domain/reports"
	"hrportal/internal/transport/http/api"
	"hrportal/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/leave/balances", h.handleBalanceReport)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/leave/balances/export", h.handleBalanceExport)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/leave/usage", h.handleUsageReport)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.DashboardCounts(r.Context(), time.Now().UTC())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, counts, middleware.GetRequestID(r.Context()))
}

func reportYear(r *http.Request) int {
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 2000 && parsed <= 2100 {
			year = parsed
		}
	}
	return year
}

func (h *Handler) handleBalanceReport(w http.ResponseWriter, r *http.Request) {
	year := reportYear(r)
	report, err := h.Service.BalanceReport(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build balance report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"year": year, "rows": report}, middleware.GetRequestID(r.Context()))
}

// handleBalanceExport streams the balance report as CSV or PDF depending on
// the format query parameter. CSV is the default.
func (h *Handler) handleBalanceExport(w http.ResponseWriter, r *http.Request) {
	year := reportYear(r)
	report, err := h.Service.BalanceReport(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build balance report", middleware.GetRequestID(r.Context()))
		return
	}

	if r.URL.Query().Get("format") == "pdf" {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%d.pdf", year))
		if err := reports.WriteBalancePDF(w, year, report); err != nil {
			api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render pdf", middleware.GetRequestID(r.Context()))
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%d.csv", year))
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"employee", "email", "leave_type", "year", "total_days", "used_days", "pending_days", "available_days"})
	for _, row := range report {
		_ = writer.Write([]string{
			row.UserName,
			row.Email,
			row.LeaveType,
			strconv.Itoa(row.Year),
			strconv.FormatFloat(row.TotalDays, 'f', 1, 64),
			strconv.FormatFloat(row.UsedDays, 'f', 1, 64),
			strconv.FormatFloat(row.PendingDays, 'f', 1, 64),
			strconv.FormatFloat(row.AvailableDays, 'f', 1, 64),
		})
	}
	writer.Flush()
}

func (h *Handler) handleUsageReport(w http.ResponseWriter, r *http.Request) {
	year := reportYear(r)
	report, err := h.Service.UsageReport(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build usage report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"year": year, "rows": report}, middleware.GetRequestID(r.Context()))
}
