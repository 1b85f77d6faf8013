package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
)

const (
	PermUsersRead    = "core.users.read"
	PermUsersWrite   = "core.users.write"
	PermOrgRead      = "core.org.read"
	PermLeaveRead    = "leave.read"
	PermLeaveWrite   = "leave.write"
	PermLeaveApprove = "leave.approve"
	PermLeaveAdmin   = "leave.admin"
	PermReportsRead  = "reports.read"
	PermAuditRead    = "audit.read"
)

var DefaultPermissions = []string{
	PermUsersRead,
	PermUsersWrite,
	PermOrgRead,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveAdmin,
	PermReportsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermUsersRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
	},
	RoleManager: {
		PermUsersRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermReportsRead,
	},
	RoleHR: {
		PermUsersRead,
		PermUsersWrite,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermReportsRead,
		PermAuditRead,
	},
}
