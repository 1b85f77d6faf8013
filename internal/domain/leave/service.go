package leave

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"hrportal/internal/platform/querier"
	"hrportal/internal/platform/requestctx"
)

// Recorder receives one activity event per state transition. Delivery and
// storage belong to the audit subsystem; failures are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID string, before, after any) error
}

type txBeginner interface {
	querier.Querier
	querier.Beginner
}

// Service drives the leave-request state machine. The ledger's raw mutators
// are never exposed outside this package; every balance change happens inside
// the same transaction as the request transition that caused it.
type Service struct {
	DB    txBeginner
	Store *Store
	Audit Recorder
	Now   func() time.Time
}

func NewService(db txBeginner, store *Store, recorder Recorder) *Service {
	return &Service{DB: db, Store: store, Audit: recorder, Now: time.Now}
}

type SubmitInput struct {
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

type transitionSummary struct {
	Status      string  `json:"status"`
	UserID      string  `json:"userId"`
	LeaveTypeID string  `json:"leaveTypeId"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	TotalDays   float64 `json:"totalDays"`
}

func summarize(req Request) transitionSummary {
	return transitionSummary{
		Status:      req.Status,
		UserID:      req.UserID,
		LeaveTypeID: req.LeaveTypeID,
		StartDate:   DateKey(req.StartDate),
		EndDate:     DateKey(req.EndDate),
		TotalDays:   req.TotalDays,
	}
}

// Submit validates the range, counts chargeable days, checks overlap, reserves
// balance and creates the pending request — all in one transaction, so a
// failed insert rolls the reservation back and no orphaned pending days
// survive.
func (s *Service) Submit(ctx context.Context, actor Actor, input SubmitInput) (Request, error) {
	start := truncateToDay(input.StartDate)
	end := truncateToDay(input.EndDate)
	if start.After(end) {
		return Request{}, ErrInvalidRange
	}
	today := truncateToDay(s.Now())
	if start.Before(today) {
		return Request{}, ErrPastDate
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer rollback(ctx, tx)

	// Serialize this user's submissions so two overlapping requests from two
	// sessions cannot both pass the overlap check.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", actor.UserID); err != nil {
		return Request{}, err
	}

	ok, err := s.Store.TypeExists(ctx, tx, input.LeaveTypeID)
	if err != nil {
		return Request{}, err
	}
	if !ok {
		return Request{}, ErrNotFound
	}

	holidays, err := s.Store.PublicHolidaySet(ctx, tx, start, end)
	if err != nil {
		return Request{}, err
	}
	totalDays := CountWorkingDays(start, end, holidays)
	if totalDays == 0 {
		return Request{}, ErrNoWorkingDays
	}

	overlap, err := s.Store.HasOverlap(ctx, tx, actor.UserID, start, end, "")
	if err != nil {
		return Request{}, err
	}
	if overlap {
		return Request{}, ErrConflict
	}

	year := start.Year()
	if err := s.Store.Reserve(ctx, tx, actor.UserID, input.LeaveTypeID, year, float64(totalDays)); err != nil {
		return Request{}, err
	}

	req := Request{
		UserID:      actor.UserID,
		LeaveTypeID: input.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   float64(totalDays),
		Reason:      strings.TrimSpace(input.Reason),
		Status:      StatusPending,
	}
	if err := tx.QueryRow(ctx, `
    INSERT INTO leave_requests (user_id, leave_type_id, start_date, end_date, total_days, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at
  `, req.UserID, req.LeaveTypeID, req.StartDate, req.EndDate, req.TotalDays, req.Reason, req.Status).Scan(&req.ID, &req.CreatedAt); err != nil {
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}

	s.record(ctx, actor, "leave.request.submitted", req.ID, nil, summarize(req))
	return req, nil
}

// Approve moves a pending request to approved and commits the reserved days
// to used. The row is locked for the duration of the transaction; the first
// caller to transition wins and later callers observe a terminal state.
func (s *Service) Approve(ctx context.Context, actor Actor, requestID, comments string) (Request, error) {
	return s.decide(ctx, actor, requestID, comments, StatusApproved)
}

// Reject releases the reserved days back to available. Comments are
// mandatory so the employee always learns why.
func (s *Service) Reject(ctx context.Context, actor Actor, requestID, comments string) (Request, error) {
	if strings.TrimSpace(comments) == "" {
		return Request{}, ErrCommentsRequired
	}
	return s.decide(ctx, actor, requestID, comments, StatusRejected)
}

func (s *Service) decide(ctx context.Context, actor Actor, requestID, comments, nextStatus string) (Request, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer rollback(ctx, tx)

	req, err := s.Store.lockRequest(ctx, tx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyProcessed
	}
	before := summarize(req)

	// approved_at records when leave was granted; rejections leave it NULL.
	var approvedAt *time.Time
	if nextStatus == StatusApproved {
		now := s.Now()
		approvedAt = &now
	}
	if _, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = $3, approver_comments = $4, approved_at = $5, updated_at = now()
    WHERE id = $1
  `, requestID, nextStatus, actor.UserID, comments, approvedAt); err != nil {
		return Request{}, err
	}

	year := req.StartDate.Year()
	if nextStatus == StatusApproved {
		err = s.Store.Commit(ctx, tx, req.UserID, req.LeaveTypeID, year, req.TotalDays)
	} else {
		err = s.Store.Release(ctx, tx, req.UserID, req.LeaveTypeID, year, req.TotalDays)
	}
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			slog.Error("leave balance invariant violation", "requestId", requestID, "userId", req.UserID, "leaveTypeId", req.LeaveTypeID, "year", year, "days", req.TotalDays)
		}
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}

	req.Status = nextStatus
	req.ApproverID = actor.UserID
	req.ApproverComments = comments
	req.ApprovedAt = approvedAt

	action := "leave.request.approved"
	if nextStatus == StatusRejected {
		action = "leave.request.rejected"
	}
	s.record(ctx, actor, action, req.ID, before, summarize(req))
	return req, nil
}

// Cancel is the submitter's own exit from the workflow: only the original
// user, and only while the request is still pending. Approved leave cannot be
// cancelled through this operation.
func (s *Service) Cancel(ctx context.Context, actor Actor, requestID string) (Request, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer rollback(ctx, tx)

	req, err := s.Store.lockRequest(ctx, tx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.UserID != actor.UserID {
		return Request{}, ErrUnauthorized
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyProcessed
	}
	before := summarize(req)

	if _, err := tx.Exec(ctx, `
    UPDATE leave_requests SET status = $2, updated_at = now() WHERE id = $1
  `, requestID, StatusCancelled); err != nil {
		return Request{}, err
	}

	if err := s.Store.Release(ctx, tx, req.UserID, req.LeaveTypeID, req.StartDate.Year(), req.TotalDays); err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			slog.Error("leave balance invariant violation", "requestId", requestID, "userId", req.UserID, "leaveTypeId", req.LeaveTypeID, "days", req.TotalDays)
		}
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}

	req.Status = StatusCancelled
	s.record(ctx, actor, "leave.request.cancelled", req.ID, before, summarize(req))
	return req, nil
}

// GetBalance returns the balance snapshot for one (user, type, year) key.
func (s *Service) GetBalance(ctx context.Context, userID, leaveTypeID string, year int) (Balance, error) {
	return s.Store.Balance(ctx, s.DB, userID, leaveTypeID, year)
}

func (s *Service) record(ctx context.Context, actor Actor, action, entityID string, before, after any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actor.UserID, action, "leave_request", entityID, requestctx.GetRequestID(ctx), before, after); err != nil {
		slog.Warn("leave audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Warn("leave tx rollback failed", "err", err)
	}
}
