package leave

import "errors"

// Expected, recoverable outcomes. Handlers map these to 4xx responses.
var (
	ErrInvalidRange        = errors.New("start date is after end date")
	ErrPastDate            = errors.New("start date is in the past")
	ErrNoWorkingDays       = errors.New("date range contains no working days")
	ErrConflict            = errors.New("overlapping leave request exists")
	ErrNoAllocation        = errors.New("no leave allocation for this type and year")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrAlreadyProcessed    = errors.New("request already processed")
	ErrNotFound            = errors.New("leave request not found")
	ErrUnauthorized        = errors.New("actor not allowed to perform this operation")
	ErrCommentsRequired    = errors.New("approver comments required")
)

// ErrInvariantViolation marks a ledger update that would drive used or
// pending days negative. It indicates a caller bug, aborts the enclosing
// transaction and is never clamped away.
var ErrInvariantViolation = errors.New("leave balance invariant violation")
