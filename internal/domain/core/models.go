package core

import "time"

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	EmployeeNo   string     `json:"employeeNo"`
	RoleID       string     `json:"roleId"`
	RoleName     string     `json:"roleName,omitempty"`
	DepartmentID string     `json:"departmentId,omitempty"`
	Status       string     `json:"status"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// RosterEntry is the slice of a user the leave initializer needs.
type RosterEntry struct {
	UserID       string
	RoleID       string
	DepartmentID string
}
