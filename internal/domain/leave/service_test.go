package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Validation failures must be decided before any transaction is opened, so
// these run against a service with no database wired at all.
func TestSubmitValidation(t *testing.T) {
	svc := &Service{Now: func() time.Time { return date(2025, time.June, 16) }}
	ctx := context.Background()
	actor := Actor{UserID: "u-1", RoleName: "employee"}

	_, err := svc.Submit(ctx, actor, SubmitInput{
		LeaveTypeID: "lt-1",
		StartDate:   date(2025, time.June, 20),
		EndDate:     date(2025, time.June, 18),
	})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Submit(ctx, actor, SubmitInput{
		LeaveTypeID: "lt-1",
		StartDate:   date(2025, time.June, 10),
		EndDate:     date(2025, time.June, 12),
	})
	require.ErrorIs(t, err, ErrPastDate)
}

func TestSubmitAcceptsToday(t *testing.T) {
	// Submitting with startDate == today must not trip the past-date guard;
	// with no database wired the call then fails on Begin, which is enough to
	// show validation passed.
	svc := &Service{Now: func() time.Time { return time.Date(2025, time.June, 16, 15, 45, 0, 0, time.UTC) }}
	defer func() {
		require.NotNil(t, recover(), "expected to reach the transaction stage")
	}()
	_, _ = svc.Submit(context.Background(), Actor{UserID: "u-1"}, SubmitInput{
		LeaveTypeID: "lt-1",
		StartDate:   date(2025, time.June, 16),
		EndDate:     date(2025, time.June, 17),
	})
}

func TestRejectRequiresComments(t *testing.T) {
	svc := &Service{Now: time.Now}
	_, err := svc.Reject(context.Background(), Actor{UserID: "mgr-1"}, "req-1", "   ")
	assert.ErrorIs(t, err, ErrCommentsRequired)
}

func TestSummarizeFreezesDates(t *testing.T) {
	req := Request{
		UserID:      "u-1",
		LeaveTypeID: "lt-1",
		StartDate:   date(2025, time.March, 3),
		EndDate:     date(2025, time.March, 7),
		TotalDays:   5,
		Status:      StatusPending,
	}
	summary := summarize(req)
	assert.Equal(t, "2025-03-03", summary.StartDate)
	assert.Equal(t, "2025-03-07", summary.EndDate)
	assert.Equal(t, float64(5), summary.TotalDays)
	assert.Equal(t, StatusPending, summary.Status)
}
