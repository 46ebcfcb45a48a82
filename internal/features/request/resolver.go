package request

import (
	"context"
	"sort"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"

	"go.uber.org/zap"
)

// Directory is the identity/role lookup the resolver reads from. The engine
// never writes to it. Role membership is resolved lazily at step activation,
// not at design time, so membership changes between steps are picked up.
type Directory interface {
	ListActiveUsersWithRole(ctx context.Context, role string) ([]string, error)
	IsUserActive(ctx context.Context, userID string) (bool, error)
	ManagerOf(ctx context.Context, userID string) (string, error)
}

// ApproverResolver expands abstract approver specs into concrete user ids.
type ApproverResolver struct {
	directory Directory
	log       *zap.Logger
}

func NewApproverResolver(directory Directory, log *zap.Logger) *ApproverResolver {
	return &ApproverResolver{directory: directory, log: log}
}

// Resolve unions every spec on a step into one deduplicated eligible set.
// Inactive or missing users degrade the set with a warning instead of
// failing resolution; an empty result is a hard error and the request is
// held blocked for administrator intervention.
func (r *ApproverResolver) Resolve(ctx context.Context, specs []workflow.ApproverSpec, submittedBy string) ([]string, error) {
	eligible := make(map[string]bool)

	for _, spec := range specs {
		switch spec.Type {
		case workflow.ApproverTypeRole:
			users, err := r.directory.ListActiveUsersWithRole(ctx, spec.Value)
			if err != nil {
				return nil, err
			}
			for _, id := range users {
				eligible[id] = true
			}

		case workflow.ApproverTypeUser:
			active, err := r.directory.IsUserActive(ctx, spec.Value)
			if err != nil {
				return nil, err
			}
			if !active {
				r.log.Warn("dropping inactive approver from eligible set",
					zap.String("user_id", spec.Value))
				continue
			}
			eligible[spec.Value] = true

		case workflow.ApproverTypeSubmitterManager:
			managerID, err := r.directory.ManagerOf(ctx, submittedBy)
			if err != nil {
				return nil, err
			}
			if managerID == "" {
				r.log.Warn("submitter has no manager on record",
					zap.String("submitted_by", submittedBy))
				continue
			}
			active, err := r.directory.IsUserActive(ctx, managerID)
			if err != nil {
				return nil, err
			}
			if !active {
				r.log.Warn("dropping inactive manager from eligible set",
					zap.String("user_id", managerID))
				continue
			}
			eligible[managerID] = true
		}
	}

	if len(eligible) == 0 {
		return nil, errs.ErrNoEligibleApprovers
	}

	ids := make([]string, 0, len(eligible))
	for id := range eligible {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
