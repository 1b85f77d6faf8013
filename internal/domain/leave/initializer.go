package leave

import (
	"context"
	"log/slog"

	"hrportal/internal/domain/core"
	"hrportal/internal/platform/querier"
	"hrportal/internal/platform/requestctx"
)

// Initializer walks the active employee population and creates any missing
// balance rows for a target year from the active policies. Each row is its
// own small atomic upsert, so the run is idempotent and can be interrupted
// and rerun without double allocation.
type Initializer struct {
	DB    querier.Querier
	Store *Store
	Core  *core.Store
	Audit Recorder
}

func NewInitializer(db querier.Querier, store *Store, coreStore *core.Store, recorder Recorder) *Initializer {
	return &Initializer{DB: db, Store: store, Core: coreStore, Audit: recorder}
}

func (i *Initializer) InitializeBalances(ctx context.Context, actor Actor, year int) (InitSummary, error) {
	summary := InitSummary{Year: year}

	roster, err := i.Core.ActiveRoster(ctx)
	if err != nil {
		return summary, err
	}
	policies, err := i.Store.ListPolicies(ctx, true)
	if err != nil {
		return summary, err
	}

	for _, entry := range roster {
		for _, policy := range policies {
			if !PolicyApplies(policy, entry.RoleID, entry.DepartmentID) {
				continue
			}
			created, err := i.Store.InitializeRow(ctx, i.DB, entry.UserID, policy.LeaveTypeID, year, policy.DaysPerYear)
			if err != nil {
				return summary, err
			}
			if created {
				summary.Created++
			} else {
				summary.Skipped++
			}
		}
	}

	if i.Audit != nil {
		if err := i.Audit.Record(ctx, actor.UserID, "leave.balances.initialized", "leave_balance", "", requestctx.GetRequestID(ctx), nil, summary); err != nil {
			slog.Warn("leave audit record failed", "action", "leave.balances.initialized", "err", err)
		}
	}
	return summary, nil
}
