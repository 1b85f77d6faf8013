package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hrportal/internal/platform/querier"
)

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

// BalanceRow is one line of the annual balance report: a user's allocation
// and consumption for one leave type.
type BalanceRow struct {
	UserName      string  `json:"userName"`
	Email         string  `json:"email"`
	LeaveType     string  `json:"leaveType"`
	Year          int     `json:"year"`
	TotalDays     float64 `json:"totalDays"`
	UsedDays      float64 `json:"usedDays"`
	PendingDays   float64 `json:"pendingDays"`
	AvailableDays float64 `json:"availableDays"`
}

func (s *Service) BalanceReport(ctx context.Context, year int) ([]BalanceRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.full_name, u.email, lt.name,
           b.year, b.total_days, b.used_days, b.pending_days, b.available_days
    FROM leave_balances b
    JOIN users u ON b.user_id = u.id
    JOIN leave_types lt ON b.leave_type_id = lt.id
    WHERE b.year = $1
    ORDER BY u.full_name, lt.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceRow
	for rows.Next() {
		var row BalanceRow
		if err := rows.Scan(&row.UserName, &row.Email, &row.LeaveType, &row.Year,
			&row.TotalDays, &row.UsedDays, &row.PendingDays, &row.AvailableDays); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UsageRow aggregates approved leave per type for one year.
type UsageRow struct {
	LeaveType    string  `json:"leaveType"`
	RequestCount int     `json:"requestCount"`
	DaysTaken    float64 `json:"daysTaken"`
}

func (s *Service) UsageReport(ctx context.Context, year int) ([]UsageRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lt.name, COUNT(1), COALESCE(SUM(r.total_days), 0)
    FROM leave_requests r
    JOIN leave_types lt ON r.leave_type_id = lt.id
    WHERE r.status = 'approved' AND EXTRACT(YEAR FROM r.start_date) = $1
    GROUP BY lt.name
    ORDER BY lt.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var row UsageRow
		if err := rows.Scan(&row.LeaveType, &row.RequestCount, &row.DaysTaken); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Dashboard is the landing-page summary block.
type Dashboard struct {
	PendingRequests  int `json:"pendingRequests"`
	ApprovedThisYear int `json:"approvedThisYear"`
	ActiveUsers      int `json:"activeUsers"`
	HolidaysAhead    int `json:"holidaysAhead"`
}

func (s *Service) DashboardCounts(ctx context.Context, now time.Time) (Dashboard, error) {
	var out Dashboard
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests WHERE status = 'pending'").Scan(&out.PendingRequests); err != nil {
		return out, err
	}
	if err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM leave_requests WHERE status = 'approved' AND EXTRACT(YEAR FROM start_date) = $1",
		now.Year()).Scan(&out.ApprovedThisYear); err != nil {
		return out, err
	}
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE status = 'active'").Scan(&out.ActiveUsers); err != nil {
		return out, err
	}
	if err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM holidays WHERE is_active = true AND holiday_date >= $1",
		now).Scan(&out.HolidaysAhead); err != nil {
		return out, err
	}
	return out, nil
}

// WriteBalancePDF renders the balance report as a landscape A4 table.
func WriteBalancePDF(w io.Writer, year int, report []BalanceRow) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("Leave Balance Report %d", year))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 9)
	widths := []float64{55, 65, 40, 25, 25, 25, 25}
	headers := []string{"Employee", "Email", "Leave Type", "Total", "Used", "Pending", "Available"}
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range report {
		cells := []string{
			row.UserName,
			row.Email,
			row.LeaveType,
			fmt.Sprintf("%.1f", row.TotalDays),
			fmt.Sprintf("%.1f", row.UsedDays),
			fmt.Sprintf("%.1f", row.PendingDays),
			fmt.Sprintf("%.1f", row.AvailableDays),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
