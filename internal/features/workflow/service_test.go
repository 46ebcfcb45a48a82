package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeWorkflowRepo struct {
	defs []*WorkflowDefinition
}

func (r *fakeWorkflowRepo) Create(ctx context.Context, def *WorkflowDefinition) error {
	cp := *def
	r.defs = append(r.defs, &cp)
	return nil
}

func (r *fakeWorkflowRepo) GetByID(ctx context.Context, id string) (*WorkflowDefinition, error) {
	for _, d := range r.defs {
		if d.ID.Hex() == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWorkflowRepo) GetActiveByEntityType(ctx context.Context, entityType string) (*WorkflowDefinition, error) {
	for _, d := range r.defs {
		if d.EntityType == entityType && d.IsActive {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWorkflowRepo) GetByEntityTypeAndVersion(ctx context.Context, entityType string, version int) (*WorkflowDefinition, error) {
	for _, d := range r.defs {
		if d.EntityType == entityType && d.Version == version {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWorkflowRepo) LatestVersion(ctx context.Context, entityType string) (int, error) {
	latest := 0
	for _, d := range r.defs {
		if d.EntityType == entityType && d.Version > latest {
			latest = d.Version
		}
	}
	return latest, nil
}

func (r *fakeWorkflowRepo) List(ctx context.Context) ([]WorkflowDefinition, error) {
	out := make([]WorkflowDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, *d)
	}
	return out, nil
}

func (r *fakeWorkflowRepo) ListVersions(ctx context.Context, entityType string) ([]WorkflowDefinition, error) {
	var out []WorkflowDefinition
	for _, d := range r.defs {
		if d.EntityType == entityType {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeWorkflowRepo) Update(ctx context.Context, def *WorkflowDefinition) error {
	for i, d := range r.defs {
		if d.ID == def.ID {
			cp := *def
			r.defs[i] = &cp
			return nil
		}
	}
	return errs.ErrNotFound
}

func (r *fakeWorkflowRepo) Activate(ctx context.Context, entityType string, id primitive.ObjectID) error {
	for _, d := range r.defs {
		if d.EntityType == entityType {
			d.IsActive = d.ID == id
		}
	}
	return nil
}

func (r *fakeWorkflowRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	for _, d := range r.defs {
		if d.ID == id {
			d.IsActive = false
		}
	}
	return nil
}

func (r *fakeWorkflowRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	for i, d := range r.defs {
		if d.ID == id {
			r.defs = append(r.defs[:i], r.defs[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeCounter struct {
	counts map[string]int64
}

func (c *fakeCounter) CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error) {
	return c.counts[workflowID.Hex()], nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func validDefinition() WorkflowDefinition {
	return WorkflowDefinition{
		EntityType: "purchase_order",
		Name:       "Purchase Order Approval",
		Steps: []Step{
			{
				Name:         "Manager Approval",
				Order:        1,
				ApprovalType: ApprovalTypeAny,
				Approvers:    []ApproverSpec{{Type: ApproverTypeSubmitterManager}},
			},
			{
				Name:         "Finance Review",
				Order:        2,
				ApprovalType: ApprovalTypeAll,
				Approvers:    []ApproverSpec{{Type: ApproverTypeRole, Value: "finance_manager"}},
			},
		},
	}
}

func newWorkflowFixture() (WorkflowService, *fakeWorkflowRepo, *fakeCounter) {
	repo := &fakeWorkflowRepo{}
	counter := &fakeCounter{counts: map[string]int64{}}
	return NewWorkflowService(repo, counter, nopAudit{}), repo, counter
}

func TestCreateDefinitionAssignsVersionsSequentially(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	first, err := svc.CreateDefinition(context.Background(), validDefinition())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.CreateDefinition(context.Background(), validDefinition())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if first.Version != 1 || second.Version != 2 {
		t.Errorf("expected versions 1 and 2, got %d and %d", first.Version, second.Version)
	}
	if first.IsActive || second.IsActive {
		t.Error("new versions must start inactive")
	}
	for _, step := range first.Steps {
		if step.ID == "" {
			t.Error("expected generated step ids")
		}
	}
}

func TestCreateDefinitionValidation(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	tests := []struct {
		name   string
		mutate func(*WorkflowDefinition)
	}{
		{
			name:   "gap in step order",
			mutate: func(d *WorkflowDefinition) { d.Steps[1].Order = 3 },
		},
		{
			name:   "no approvers on a step",
			mutate: func(d *WorkflowDefinition) { d.Steps[0].Approvers = nil },
		},
		{
			name: "percentage without threshold",
			mutate: func(d *WorkflowDefinition) {
				d.Steps[0].ApprovalType = ApprovalTypePercentage
			},
		},
		{
			name: "percentage threshold out of range",
			mutate: func(d *WorkflowDefinition) {
				d.Steps[0].ApprovalType = ApprovalTypePercentage
				v := 150
				d.Steps[0].RequiredPercentage = &v
			},
		},
		{
			name: "timeout without escalation action",
			mutate: func(d *WorkflowDefinition) {
				v := 24
				d.Steps[0].TimeoutHours = &v
			},
		},
		{
			name: "escalate_to_role without target role",
			mutate: func(d *WorkflowDefinition) {
				v := 24
				d.Steps[0].TimeoutHours = &v
				d.Steps[0].EscalationAction = EscalationRouteToRole
			},
		},
		{
			name: "ordering operator with non-numeric value",
			mutate: func(d *WorkflowDefinition) {
				d.Steps[0].Conditions = []Condition{
					{FieldPath: "total_amount", Operator: OperatorGt, Value: "high", Action: ConditionRequire},
				}
			},
		},
		{
			name: "route_to_role condition without target",
			mutate: func(d *WorkflowDefinition) {
				d.Steps[0].Conditions = []Condition{
					{FieldPath: "currency", Operator: OperatorNeq, Value: "USD", Action: ConditionRouteToRole},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)
			if _, err := svc.CreateDefinition(context.Background(), def); !errs.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsConditionWithoutAction(t *testing.T) {
	def := validDefinition()
	def.Steps[0].Conditions = []Condition{
		{FieldPath: "total_amount", Operator: OperatorGt, Value: 5000},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("expected empty condition action to default to require, got %v", err)
	}
}

func TestActivateVersionDeactivatesSiblings(t *testing.T) {
	svc, repo, _ := newWorkflowFixture()

	v1, _ := svc.CreateDefinition(context.Background(), validDefinition())
	v2, _ := svc.CreateDefinition(context.Background(), validDefinition())

	if err := svc.ActivateVersion(context.Background(), "purchase_order", 1); err != nil {
		t.Fatalf("activate v1 failed: %v", err)
	}
	if err := svc.ActivateVersion(context.Background(), "purchase_order", 2); err != nil {
		t.Fatalf("activate v2 failed: %v", err)
	}

	active, _ := repo.GetActiveByEntityType(context.Background(), "purchase_order")
	if active == nil || active.ID != v2.ID {
		t.Fatalf("expected v2 active, got %+v", active)
	}

	old, _ := repo.GetByID(context.Background(), v1.ID.Hex())
	if old.IsActive {
		t.Error("expected v1 deactivated when v2 activated")
	}
}

func TestActivateUnknownVersion(t *testing.T) {
	svc, _, _ := newWorkflowFixture()
	err := svc.ActivateVersion(context.Background(), "purchase_order", 9)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRejectedOnceReferenced(t *testing.T) {
	svc, _, counter := newWorkflowFixture()

	def, _ := svc.CreateDefinition(context.Background(), validDefinition())

	updated := validDefinition()
	updated.Name = "Renamed"
	if err := svc.UpdateDefinition(context.Background(), def.ID.Hex(), updated); err != nil {
		t.Fatalf("update of unreferenced version failed: %v", err)
	}

	counter.counts[def.ID.Hex()] = 3
	err := svc.UpdateDefinition(context.Background(), def.ID.Hex(), updated)
	if !errors.Is(err, errs.ErrDefinitionInUse) {
		t.Fatalf("expected ErrDefinitionInUse, got %v", err)
	}
}

func TestDeleteRejectedOnceReferenced(t *testing.T) {
	svc, repo, counter := newWorkflowFixture()

	def, _ := svc.CreateDefinition(context.Background(), validDefinition())
	counter.counts[def.ID.Hex()] = 1

	if err := svc.DeleteDefinition(context.Background(), def.ID.Hex()); !errors.Is(err, errs.ErrDefinitionInUse) {
		t.Fatalf("expected ErrDefinitionInUse, got %v", err)
	}

	counter.counts[def.ID.Hex()] = 0
	if err := svc.DeleteDefinition(context.Background(), def.ID.Hex()); err != nil {
		t.Fatalf("delete of unreferenced version failed: %v", err)
	}
	if len(repo.defs) != 0 {
		t.Error("expected definition removed")
	}
}
