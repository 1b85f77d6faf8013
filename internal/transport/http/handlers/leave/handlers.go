package leavehandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrportal/internal/domain/auth"
	"hrportal/internal/domain/leave"
	"hrportal/internal/transport/http/api"
	"hrportal/internal/transport/http/middleware"
	"hrportal/internal/transport/http/shared"
)

type Handler struct {
	Service     *leave.Service
	Store       *leave.Store
	Initializer *leave.Initializer
	Perms       middleware.PermissionStore
}

func NewHandler(service *leave.Service, store *leave.Store, initializer *leave.Initializer, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Store: store, Initializer: initializer, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays/upcoming", h.handleUpcomingHolidays)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/initialize", h.handleInitializeBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/total", h.handleSetTotalDays)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleSubmitRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/calendar", h.handleCalendar)
	})
}

func actorFrom(user auth.UserContext) leave.Actor {
	return leave.Actor{UserID: user.UserID, RoleName: user.RoleName, DepartmentID: user.DepartmentID}
}

// failWorkflowError translates the leave package's sentinel errors into the
// response envelope. Anything unrecognized is a 500.
func failWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_range", "end date must not precede start date", reqID)
	case errors.Is(err, leave.ErrPastDate):
		api.Fail(w, http.StatusBadRequest, "past_start_date", "start date cannot be in the past", reqID)
	case errors.Is(err, leave.ErrNoWorkingDays):
		api.Fail(w, http.StatusBadRequest, "no_working_days", "selected range contains no working days", reqID)
	case errors.Is(err, leave.ErrCommentsRequired):
		api.Fail(w, http.StatusBadRequest, "comments_required", "rejection comments are required", reqID)
	case errors.Is(err, leave.ErrConflict):
		api.Fail(w, http.StatusConflict, "overlapping_request", "an overlapping leave request already exists", reqID)
	case errors.Is(err, leave.ErrNoAllocation):
		api.Fail(w, http.StatusConflict, "no_allocation", "no leave balance allocated for this type and year", reqID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusConflict, "insufficient_balance", "not enough available days", reqID)
	case errors.Is(err, leave.ErrAlreadyProcessed):
		api.Fail(w, http.StatusConflict, "already_processed", "request has already been processed", reqID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
	case errors.Is(err, leave.ErrUnauthorized):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "leave_operation_failed", "leave operation failed", reqID)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""
	types, err := h.Store.ListTypes(r.Context(), activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_types_failed", "failed to list leave types", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context(), r.URL.Query().Get("all") == "")
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_policies_failed", "failed to list leave policies", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	from, to := holidayWindow(r, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	holidays, err := h.Store.ListHolidays(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_list_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

// holidayWindow defaults to the current calendar year when the caller gives
// no explicit range.
func holidayWindow(r *http.Request, v *shared.Validator) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, ok := v.Date("from", raw); ok {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, ok := v.Date("to", raw); ok {
			to = parsed
		}
	}
	return from, to
}

func (h *Handler) handleUpcomingHolidays(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}
	holidays, err := h.Store.UpcomingHolidays(r.Context(), time.Now().UTC(), limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_list_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	userID := r.URL.Query().Get("userId")
	if user.RoleName != auth.RoleHR || userID == "" {
		userID = user.UserID
	}
	year := yearParam(r, time.Now().UTC().Year())

	balances, err := h.Store.ListBalances(r.Context(), userID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_balances_failed", "failed to list balances", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

func yearParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return fallback
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		return fallback
	}
	return year
}

type initializeBalancesRequest struct {
	Year int `json:"year"`
}

func (h *Handler) handleInitializeBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload initializeBalancesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().UTC().Year()
	}
	if payload.Year < 2000 || payload.Year > 2100 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "year out of range", middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.Initializer.InitializeBalances(r.Context(), actorFrom(user), payload.Year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balance_init_failed", "failed to initialize balances", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

type setTotalDaysRequest struct {
	UserID      string  `json:"userId"`
	LeaveTypeID string  `json:"leaveTypeId"`
	Year        int     `json:"year"`
	TotalDays   float64 `json:"totalDays"`
}

func (h *Handler) handleSetTotalDays(w http.ResponseWriter, r *http.Request) {
	var payload setTotalDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "user id required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type id required")
	if payload.Year < 2000 || payload.Year > 2100 {
		v.Add("year", "year out of range")
	}
	if payload.TotalDays < 0 {
		v.Add("totalDays", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Store.SetTotalDays(r.Context(), payload.UserID, payload.LeaveTypeID, payload.Year, payload.TotalDays); err != nil {
		failWorkflowError(w, r, err)
		return
	}

	balance, err := h.Service.GetBalance(r.Context(), payload.UserID, payload.LeaveTypeID, payload.Year)
	if err != nil {
		failWorkflowError(w, r, err)
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := leave.RequestFilter{Status: r.URL.Query().Get("status")}
	if user.RoleName == auth.RoleEmployee {
		filter.UserID = user.UserID
	} else if requested := r.URL.Query().Get("userId"); requested != "" {
		filter.UserID = requested
	}

	page := shared.ParsePagination(r, 100, 500)
	requests, total, err := h.Store.ListRequests(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

type submitRequestPayload struct {
	LeaveTypeID string `json:"leaveTypeId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type id required")
	start, startOK := v.Date("startDate", payload.StartDate)
	end, endOK := v.Date("endDate", payload.EndDate)
	if v.Reject(w, middleware.GetRequestID(r.Context())) || !startOK || !endOK {
		return
	}

	req, err := h.Service.Submit(r.Context(), actorFrom(user), leave.SubmitInput{
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      payload.Reason,
	})
	if err != nil {
		failWorkflowError(w, r, err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		failWorkflowError(w, r, err)
		return
	}
	if user.RoleName == auth.RoleEmployee && req.UserID != user.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Comments string `json:"comments"`
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, leave.StatusApproved)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, leave.StatusRejected)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, status string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	var (
		req leave.Request
		err error
	)
	if status == leave.StatusApproved {
		req, err = h.Service.Approve(r.Context(), actorFrom(user), requestID, payload.Comments)
	} else {
		req, err = h.Service.Reject(r.Context(), actorFrom(user), requestID, payload.Comments)
	}
	if err != nil {
		failWorkflowError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Cancel(r.Context(), actorFrom(user), chi.URLParam(r, "requestID"))
	if err != nil {
		failWorkflowError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	from, to := holidayWindow(r, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entries, err := h.Store.CalendarEntries(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_calendar_failed", "failed to load calendar", middleware.GetRequestID(r.Context()))
		return
	}
	holidays, err := h.Store.ListHolidays(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_calendar_failed", "failed to load calendar", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"requests": entries, "holidays": holidays}, middleware.GetRequestID(r.Context()))
}
