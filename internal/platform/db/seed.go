package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrportal/internal/domain/auth"
	"hrportal/internal/platform/config"
)

// Seed provisions roles, permissions, the default leave catalogue and the
// bootstrap admin account. Every statement is idempotent so the seed can run
// on every start.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	for _, role := range []string{auth.RoleEmployee, auth.RoleManager, auth.RoleHR} {
		if _, err := pool.Exec(ctx, "INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", role); err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}

	for _, perm := range auth.DefaultPermissions {
		if _, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm); err != nil {
			return fmt.Errorf("seed permission %s: %w", perm, err)
		}
	}

	for role, perms := range auth.RolePermissions {
		for _, perm := range perms {
			if _, err := pool.Exec(ctx, `
        INSERT INTO role_permissions (role_id, permission_id)
        SELECT r.id, p.id FROM roles r, permissions p WHERE r.name = $1 AND p.key = $2
        ON CONFLICT DO NOTHING
      `, role, perm); err != nil {
				return fmt.Errorf("seed role permission %s/%s: %w", role, perm, err)
			}
		}
	}

	if err := seedLeaveCatalogue(ctx, pool); err != nil {
		return err
	}

	return seedAdmin(ctx, pool, cfg)
}

type seedLeaveType struct {
	name    string
	code    string
	paid    bool
	carry   bool
	perYear float64
}

func seedLeaveCatalogue(ctx context.Context, pool *pgxpool.Pool) error {
	catalogue := []seedLeaveType{
		{name: "Annual Leave", code: "annual", paid: true, carry: true, perYear: 20},
		{name: "Sick Leave", code: "sick", paid: true, carry: false, perYear: 10},
		{name: "Casual Leave", code: "casual", paid: true, carry: false, perYear: 5},
		{name: "Unpaid Leave", code: "unpaid", paid: false, carry: false, perYear: 30},
	}

	for _, lt := range catalogue {
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_types (name, code, is_paid, can_carry_forward)
      VALUES ($1, $2, $3, $4)
      ON CONFLICT (code) DO NOTHING
    `, lt.name, lt.code, lt.paid, lt.carry); err != nil {
			return fmt.Errorf("seed leave type %s: %w", lt.code, err)
		}

		// One unscoped policy per type; HR can add role or department scoped
		// overrides through the database later.
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_policies (leave_type_id, days_per_year)
      SELECT lt.id, $2 FROM leave_types lt
      WHERE lt.code = $1
        AND NOT EXISTS (
          SELECT 1 FROM leave_policies p
          WHERE p.leave_type_id = lt.id AND p.role_id IS NULL AND p.department_id IS NULL
        )
    `, lt.code, lt.perYear); err != nil {
			return fmt.Errorf("seed leave policy %s: %w", lt.code, err)
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		slog.Info("seed admin skipped, no credentials configured")
		return nil
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}

	if _, err := pool.Exec(ctx, `
    INSERT INTO users (email, full_name, employee_no, password_hash, role_id, status)
    SELECT $1, 'Portal Admin', 'ADMIN-001', $2, r.id, 'active'
    FROM roles r WHERE r.name = $3
    ON CONFLICT (email) DO NOTHING
  `, cfg.SeedAdminEmail, hash, auth.RoleHR); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}
