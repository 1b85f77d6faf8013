package core

import (
	"context"

	"hrportal/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id, u.email, u.full_name, u.employee_no, u.role_id, r.name,
           COALESCE(u.department_id::text, ''), u.status, u.last_login, u.created_at
    FROM users u
    JOIN roles r ON u.role_id = r.id
    ORDER BY u.full_name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.EmployeeNo, &u.RoleID, &u.RoleName, &u.DepartmentID, &u.Status, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.email, u.full_name, u.employee_no, u.role_id, r.name,
           COALESCE(u.department_id::text, ''), u.status, u.last_login, u.created_at
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE u.id = $1
  `, userID).Scan(&u.ID, &u.Email, &u.FullName, &u.EmployeeNo, &u.RoleID, &u.RoleName, &u.DepartmentID, &u.Status, &u.LastLogin, &u.CreatedAt)
	return u, err
}

// ActiveRoster returns every active user with the role/department attributes
// the leave policy scoping rules match against.
func (s *Store) ActiveRoster(ctx context.Context) ([]RosterEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, role_id, COALESCE(department_id::text, '')
    FROM users
    WHERE status = 'active'
    ORDER BY id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []RosterEntry
	for rows.Next() {
		var entry RosterEntry
		if err := rows.Scan(&entry.UserID, &entry.RoleID, &entry.DepartmentID); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, is_active, created_at
    FROM departments
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}
