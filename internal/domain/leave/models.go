package leave

import "time"

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const (
	HolidayPublic     = "public"
	HolidayOptional   = "optional"
	HolidayRestricted = "restricted"
)

// Actor identifies who is performing an operation. It is passed explicitly
// into every workflow call instead of being read from ambient session state.
type Actor struct {
	UserID       string
	RoleName     string
	DepartmentID string
}

type LeaveType struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Code               string    `json:"code"`
	Description        string    `json:"description,omitempty"`
	IsPaid             bool      `json:"isPaid"`
	RequiresApproval   bool      `json:"requiresApproval"`
	MaxConsecutiveDays *int      `json:"maxConsecutiveDays,omitempty"`
	CanCarryForward    bool      `json:"canCarryForward"`
	CarryForwardLimit  *int      `json:"carryForwardLimit,omitempty"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

// LeavePolicy binds a leave type to an annual allotment, optionally scoped to
// a role and/or department. A null scope applies to everyone.
type LeavePolicy struct {
	ID           string  `json:"id"`
	LeaveTypeID  string  `json:"leaveTypeId"`
	RoleID       string  `json:"roleId,omitempty"`
	DepartmentID string  `json:"departmentId,omitempty"`
	DaysPerYear  float64 `json:"daysPerYear"`
	IsActive     bool    `json:"isActive"`
}

// Balance is the denormalized aggregate per (user, leave type, year).
// AvailableDays is derived in the database as total - used - pending and is
// never written directly.
type Balance struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	LeaveTypeID    string    `json:"leaveTypeId"`
	Year           int       `json:"year"`
	TotalDays      float64   `json:"totalDays"`
	UsedDays       float64   `json:"usedDays"`
	PendingDays    float64   `json:"pendingDays"`
	AvailableDays  float64   `json:"availableDays"`
	CarriedForward float64   `json:"carriedForward"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Request struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	LeaveTypeID      string     `json:"leaveTypeId"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          time.Time  `json:"endDate"`
	TotalDays        float64    `json:"totalDays"`
	Reason           string     `json:"reason"`
	Status           string     `json:"status"`
	ApproverID       string     `json:"approverId,omitempty"`
	ApproverComments string     `json:"approverComments,omitempty"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type Holiday struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	IsRecurring bool      `json:"isRecurring"`
	IsActive    bool      `json:"isActive"`
}

// InitSummary reports one bulk balance-initialization run.
type InitSummary struct {
	Year    int `json:"year"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
