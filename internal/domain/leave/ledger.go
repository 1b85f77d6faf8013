package leave

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"hrportal/internal/platform/querier"
)

// The ledger owns the per-(user, leave type, year) aggregate. Each mutation is
// a single conditional UPDATE, so the database serializes concurrent callers
// on the row: two reserves against the same balance cannot both succeed when
// only one fits within availableDays. Every method takes a Querier so the
// workflow can run it inside its own transaction.

func (s *Store) Balance(ctx context.Context, q querier.Querier, userID, leaveTypeID string, year int) (Balance, error) {
	var b Balance
	err := q.QueryRow(ctx, `
    SELECT id, user_id, leave_type_id, year, total_days, used_days, pending_days,
           available_days, carried_forward, updated_at
    FROM leave_balances
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
  `, userID, leaveTypeID, year).Scan(&b.ID, &b.UserID, &b.LeaveTypeID, &b.Year, &b.TotalDays,
		&b.UsedDays, &b.PendingDays, &b.AvailableDays, &b.CarriedForward, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrNoAllocation
	}
	return b, err
}

func (s *Store) ListBalances(ctx context.Context, userID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, leave_type_id, year, total_days, used_days, pending_days,
           available_days, carried_forward, updated_at
    FROM leave_balances
    WHERE user_id = $1 AND year = $2
    ORDER BY leave_type_id
  `, userID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.UserID, &b.LeaveTypeID, &b.Year, &b.TotalDays,
			&b.UsedDays, &b.PendingDays, &b.AvailableDays, &b.CarriedForward, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// Reserve moves days into the pending bucket, failing with
// ErrInsufficientBalance when availableDays would go negative and
// ErrNoAllocation when no row exists for the year.
func (s *Store) Reserve(ctx context.Context, q querier.Querier, userID, leaveTypeID string, year int, days float64) error {
	if days <= 0 {
		return ErrInvariantViolation
	}
	tag, err := q.Exec(ctx, `
    UPDATE leave_balances
    SET pending_days = pending_days + $4, updated_at = now()
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
      AND total_days - used_days - pending_days >= $4
  `, userID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Balance(ctx, q, userID, leaveTypeID, year); errors.Is(err, ErrNoAllocation) {
			return ErrNoAllocation
		} else if err != nil {
			return err
		}
		return ErrInsufficientBalance
	}
	return nil
}

// Commit moves days from pending to used on approval. The pending guard makes
// underflow an ErrInvariantViolation rather than a silent clamp; the caller
// must roll back its transaction.
func (s *Store) Commit(ctx context.Context, q querier.Querier, userID, leaveTypeID string, year int, days float64) error {
	if days <= 0 {
		return ErrInvariantViolation
	}
	tag, err := q.Exec(ctx, `
    UPDATE leave_balances
    SET pending_days = pending_days - $4, used_days = used_days + $4, updated_at = now()
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
      AND pending_days >= $4
  `, userID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvariantViolation
	}
	return nil
}

// Release returns reserved days on rejection or cancellation.
func (s *Store) Release(ctx context.Context, q querier.Querier, userID, leaveTypeID string, year int, days float64) error {
	if days <= 0 {
		return ErrInvariantViolation
	}
	tag, err := q.Exec(ctx, `
    UPDATE leave_balances
    SET pending_days = pending_days - $4, updated_at = now()
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
      AND pending_days >= $4
  `, userID, leaveTypeID, year, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvariantViolation
	}
	return nil
}

// InitializeRow creates a fresh allocation if none exists. An existing row is
// reported as skipped and never overwritten.
func (s *Store) InitializeRow(ctx context.Context, q querier.Querier, userID, leaveTypeID string, year int, totalDays float64) (created bool, err error) {
	tag, err := q.Exec(ctx, `
    INSERT INTO leave_balances (user_id, leave_type_id, year, total_days)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (user_id, leave_type_id, year) DO NOTHING
  `, userID, leaveTypeID, year, totalDays)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetTotalDays is the administrative override. It touches totalDays only;
// used and pending stay untouched so availableDays may transiently go
// negative, which reads as a data-integrity warning, not a fault.
func (s *Store) SetTotalDays(ctx context.Context, userID, leaveTypeID string, year int, totalDays float64) error {
	if totalDays < 0 {
		return ErrInvariantViolation
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET total_days = $4, updated_at = now()
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
  `, userID, leaveTypeID, year, totalDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoAllocation
	}
	return nil
}
