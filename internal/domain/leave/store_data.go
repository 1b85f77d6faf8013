package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrportal/internal/platform/querier"
)

func (s *Store) ListTypes(ctx context.Context, activeOnly bool) ([]LeaveType, error) {
	query := `
    SELECT id, name, code, COALESCE(description, ''), is_paid, requires_approval,
           max_consecutive_days, can_carry_forward, carry_forward_limit, is_active, created_at
    FROM leave_types
  `
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		var t LeaveType
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Description, &t.IsPaid, &t.RequiresApproval,
			&t.MaxConsecutiveDays, &t.CanCarryForward, &t.CarryForwardLimit, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) TypeExists(ctx context.Context, q querier.Querier, leaveTypeID string) (bool, error) {
	var count int
	if err := q.QueryRow(ctx, "SELECT COUNT(1) FROM leave_types WHERE id = $1 AND is_active", leaveTypeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListPolicies(ctx context.Context, activeOnly bool) ([]LeavePolicy, error) {
	query := `
    SELECT id, leave_type_id, COALESCE(role_id::text, ''), COALESCE(department_id::text, ''), days_per_year, is_active
    FROM leave_policies
  `
	if activeOnly {
		query += " WHERE is_active"
	}

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []LeavePolicy
	for rows.Next() {
		var p LeavePolicy
		if err := rows.Scan(&p.ID, &p.LeaveTypeID, &p.RoleID, &p.DepartmentID, &p.DaysPerYear, &p.IsActive); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Store) ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, holiday_date, holiday_type, COALESCE(description, ''), is_recurring, is_active
    FROM holidays
    WHERE is_active AND holiday_date BETWEEN $1 AND $2
    ORDER BY holiday_date
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Type, &h.Description, &h.IsRecurring, &h.IsActive); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) UpcomingHolidays(ctx context.Context, from time.Time, limit int) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, holiday_date, holiday_type, COALESCE(description, ''), is_recurring, is_active
    FROM holidays
    WHERE is_active AND holiday_date >= $1
    ORDER BY holiday_date
    LIMIT $2
  `, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Type, &h.Description, &h.IsRecurring, &h.IsActive); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// PublicHolidaySet returns the active public holiday dates in [from, to] as a
// day-keyed set for the working-day counter. Optional and restricted holidays
// are informational and never reduce the chargeable count.
func (s *Store) PublicHolidaySet(ctx context.Context, q querier.Querier, from, to time.Time) (map[string]struct{}, error) {
	rows, err := q.Query(ctx, `
    SELECT holiday_date
    FROM holidays
    WHERE is_active AND holiday_type = $1 AND holiday_date BETWEEN $2 AND $3
  `, HolidayPublic, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		set[DateKey(date)] = struct{}{}
	}
	return set, rows.Err()
}

// HasOverlap checks the candidate interval against the user's pending and
// approved requests with the inclusive interval test; terminal requests never
// conflict. excludeRequestID may be empty.
func (s *Store) HasOverlap(ctx context.Context, q querier.Querier, userID string, start, end time.Time, excludeRequestID string) (bool, error) {
	query := `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE user_id = $1
      AND status IN ($2, $3)
      AND start_date <= $4
      AND end_date >= $5
  `
	args := []any{userID, StatusPending, StatusApproved, end, start}
	if excludeRequestID != "" {
		query += " AND id <> $6"
		args = append(args, excludeRequestID)
	}

	var count int
	if err := q.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT id, user_id, leave_type_id, start_date, end_date, total_days, COALESCE(reason, ''),
           status, COALESCE(approver_id::text, ''), COALESCE(approver_comments, ''), approved_at, created_at
    FROM leave_requests
    WHERE id = $1
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// lockRequest fetches a request row FOR UPDATE so a status transition cannot
// interleave with another writer in the same window.
func (s *Store) lockRequest(ctx context.Context, q querier.Querier, requestID string) (Request, error) {
	req, err := scanRequest(q.QueryRow(ctx, `
    SELECT id, user_id, leave_type_id, start_date, end_date, total_days, COALESCE(reason, ''),
           status, COALESCE(approver_id::text, ''), COALESCE(approver_comments, ''), approved_at, created_at
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.UserID, &req.LeaveTypeID, &req.StartDate, &req.EndDate, &req.TotalDays,
		&req.Reason, &req.Status, &req.ApproverID, &req.ApproverComments, &req.ApprovedAt, &req.CreatedAt)
	return req, err
}

type RequestFilter struct {
	UserID string
	Status string
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter, limit, offset int) ([]Request, int, error) {
	where := " WHERE 1=1"
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += " AND user_id = $1"
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
    SELECT id, user_id, leave_type_id, start_date, end_date, total_days, COALESCE(reason, ''),
           status, COALESCE(approver_id::text, ''), COALESCE(approver_comments, ''), approved_at, created_at
    FROM leave_requests
  ` + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

// CalendarEntries feeds the leave calendar: pending and approved requests in
// the window. A range with zero chargeable days is legitimate here.
func (s *Store) CalendarEntries(ctx context.Context, from, to time.Time) ([]Request, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, leave_type_id, start_date, end_date, total_days, COALESCE(reason, ''),
           status, COALESCE(approver_id::text, ''), COALESCE(approver_comments, ''), approved_at, created_at
    FROM leave_requests
    WHERE status IN ($1, $2) AND start_date <= $3 AND end_date >= $4
    ORDER BY start_date
  `, StatusPending, StatusApproved, to, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
