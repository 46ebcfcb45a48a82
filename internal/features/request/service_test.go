package request

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeRequestRepo struct {
	items map[string]*Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{items: make(map[string]*Request)}
}

func (r *fakeRequestRepo) Create(ctx context.Context, req *Request) error {
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	cp := *req
	r.items[req.ID.Hex()] = &cp
	return nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id string) (*Request, error) {
	stored, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeRequestRepo) UpdateWithRevision(ctx context.Context, req *Request) error {
	stored, ok := r.items[req.ID.Hex()]
	if !ok {
		return errs.ErrNotFound
	}
	if stored.Revision != req.Revision {
		return errs.ErrStaleState
	}
	req.Revision++
	cp := *req
	r.items[req.ID.Hex()] = &cp
	return nil
}

func (r *fakeRequestRepo) FindDueForEscalation(ctx context.Context, now time.Time, limit int64) ([]Request, error) {
	var due []Request
	for _, req := range r.items {
		if req.Status == RequestStatusPending && !req.Blocked && !req.EscalationNotified &&
			req.StepDeadline != nil && !req.StepDeadline.After(now) {
			due = append(due, *req)
		}
	}
	return due, nil
}

func (r *fakeRequestRepo) CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error) {
	var n int64
	for _, req := range r.items {
		if req.WorkflowID == workflowID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRequestRepo) ListPendingForApprover(ctx context.Context, userID string, page, limit int64) ([]Request, int64, error) {
	var out []Request
	for _, req := range r.items {
		if req.Status != RequestStatusPending || req.Blocked {
			continue
		}
		for _, id := range req.StepApprovers {
			if id == userID {
				out = append(out, *req)
				break
			}
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequestRepo) List(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Request, int64, error) {
	var out []Request
	for _, req := range r.items {
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

type fakeActionRepo struct {
	actions   []Action
	appendErr error
}

func (r *fakeActionRepo) Append(ctx context.Context, action *Action) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	if action.ID.IsZero() {
		action.ID = primitive.NewObjectID()
	}
	r.actions = append(r.actions, *action)
	return nil
}

func (r *fakeActionRepo) ListByStep(ctx context.Context, requestID primitive.ObjectID, stepID string) ([]Action, error) {
	var out []Action
	for _, a := range r.actions {
		if a.RequestID == requestID && a.StepID == stepID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeActionRepo) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]Action, error) {
	var out []Action
	for _, a := range r.actions {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeDefinitions struct {
	byID   map[string]*workflow.WorkflowDefinition
	active map[string]*workflow.WorkflowDefinition
}

func (d *fakeDefinitions) GetByID(ctx context.Context, id string) (*workflow.WorkflowDefinition, error) {
	return d.byID[id], nil
}

func (d *fakeDefinitions) GetActiveByEntityType(ctx context.Context, entityType string) (*workflow.WorkflowDefinition, error) {
	return d.active[entityType], nil
}

type fakeNotifier struct {
	events []Event
}

func (n *fakeNotifier) NotifyWorkflowEvent(ctx context.Context, evt Event) {
	n.events = append(n.events, evt)
}

type fakeAudit struct{}

func (fakeAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (fakeAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type engineFixture struct {
	svc      *RequestServiceImpl
	repo     *fakeRequestRepo
	actions  *fakeActionRepo
	defs     *fakeDefinitions
	dir      *fakeDirectory
	notifier *fakeNotifier
}

func newEngine(def *workflow.WorkflowDefinition) *engineFixture {
	repo := newFakeRequestRepo()
	actions := &fakeActionRepo{}
	defs := &fakeDefinitions{
		byID:   map[string]*workflow.WorkflowDefinition{},
		active: map[string]*workflow.WorkflowDefinition{},
	}
	if def != nil {
		defs.byID[def.ID.Hex()] = def
		if def.IsActive {
			defs.active[def.EntityType] = def
		}
	}
	dir := testDirectory()
	notifier := &fakeNotifier{}
	log := zap.NewNop()

	svc := NewRequestService(repo, actions, defs, NewApproverResolver(dir, log), dir, notifier, fakeAudit{}, log).(*RequestServiceImpl)
	return &engineFixture{svc: svc, repo: repo, actions: actions, defs: defs, dir: dir, notifier: notifier}
}

// requisitionDefinition mirrors a typical three-gate purchase requisition
// chain: manager always, finance above 5000, CFO above 50000.
func requisitionDefinition() *workflow.WorkflowDefinition {
	return &workflow.WorkflowDefinition{
		ID:         primitive.NewObjectID(),
		EntityType: "purchase_requisition",
		Version:    1,
		Name:       "Purchase Requisition Approval",
		IsActive:   true,
		Steps: []workflow.Step{
			{
				ID:           "step-manager",
				Name:         "Manager Approval",
				Order:        1,
				ApprovalType: workflow.ApprovalTypeAny,
				Approvers:    []workflow.ApproverSpec{{Type: workflow.ApproverTypeSubmitterManager}},
			},
			{
				ID:           "step-finance",
				Name:         "Finance Review",
				Order:        2,
				ApprovalType: workflow.ApprovalTypeAll,
				Approvers:    []workflow.ApproverSpec{{Type: workflow.ApproverTypeRole, Value: "finance_manager"}},
				Conditions: []workflow.Condition{
					{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000, Action: workflow.ConditionRequire},
				},
			},
			{
				ID:           "step-cfo",
				Name:         "CFO Approval",
				Order:        3,
				ApprovalType: workflow.ApprovalTypeAny,
				Approvers:    []workflow.ApproverSpec{{Type: workflow.ApproverTypeRole, Value: "cfo"}},
				Conditions: []workflow.Condition{
					{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 50000, Action: workflow.ConditionRequire},
				},
			},
		},
	}
}

func submitRequisition(t *testing.T, fx *engineFixture, amount float64) *Request {
	t.Helper()
	req, err := fx.svc.Submit(context.Background(), SubmitInput{
		EntityType:   "purchase_requisition",
		EntityID:     "pr-001",
		EntityNumber: "PR-2026-001",
		FieldValues:  map[string]interface{}{"total_amount": amount},
		SubmittedBy:  "emp1",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return req
}

func TestSubmitOpensFirstStep(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 3000)

	if req.Status != RequestStatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.CurrentStepID != "step-manager" {
		t.Errorf("expected step-manager open, got %s", req.CurrentStepID)
	}
	if !reflect.DeepEqual(req.StepApprovers, []string{"mgr1"}) {
		t.Errorf("expected manager as approver, got %v", req.StepApprovers)
	}
	if req.WorkflowVersion != 1 {
		t.Errorf("expected frozen version 1, got %d", req.WorkflowVersion)
	}
}

func TestSubmitWithoutActiveWorkflow(t *testing.T) {
	fx := newEngine(nil)
	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		EntityType:  "purchase_requisition",
		SubmittedBy: "emp1",
	})
	if !errs.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLowAmountSkipsConditionalSteps(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 3000)

	req, err := fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(),
		StepID:    "step-manager",
		ActorID:   "mgr1",
		Decision:  DecisionApprove,
	})
	if err != nil {
		t.Fatalf("action failed: %v", err)
	}

	if req.Status != RequestStatusApproved {
		t.Fatalf("expected approved after manager approval, got %s", req.Status)
	}
	if req.ResolvedAt == nil {
		t.Error("expected resolved_at set")
	}
}

func TestMidAmountRunsFinanceStep(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 7500)

	req, err := fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(),
		StepID:    "step-manager",
		ActorID:   "mgr1",
		Decision:  DecisionApprove,
	})
	if err != nil {
		t.Fatalf("manager approval failed: %v", err)
	}

	if req.CurrentStepID != "step-finance" {
		t.Fatalf("expected finance step open, got %s", req.CurrentStepID)
	}
	if !reflect.DeepEqual(req.StepApprovers, []string{"fin1", "fin2"}) {
		t.Fatalf("expected finance managers, got %v", req.StepApprovers)
	}

	// all-policy: one approval is not enough
	req, err = fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-finance", ActorID: "fin1", Decision: DecisionApprove,
	})
	if err != nil {
		t.Fatalf("first finance approval failed: %v", err)
	}
	if req.Status != RequestStatusPending || req.CurrentStepID != "step-finance" {
		t.Fatalf("expected step still open after one of two approvals")
	}

	req, err = fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-finance", ActorID: "fin2", Decision: DecisionApprove,
	})
	if err != nil {
		t.Fatalf("second finance approval failed: %v", err)
	}
	if req.Status != RequestStatusApproved {
		t.Fatalf("expected approved, CFO step should have been skipped, got %s", req.Status)
	}
}

func TestRejectFinalizesRequest(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 3000)

	req, err := fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-manager", ActorID: "mgr1", Decision: DecisionReject,
		Comment: "wrong cost center",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if req.Status != RequestStatusRejected {
		t.Fatalf("expected rejected, got %s", req.Status)
	}

	// terminal: nothing further is accepted
	_, err = fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-manager", ActorID: "mgr1", Decision: DecisionApprove,
	})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on terminal request, got %v", err)
	}
}

func TestActionEligibilityAndStepChecks(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 3000)

	_, err := fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-manager", ActorID: "fin1", Decision: DecisionApprove,
	})
	if !errors.Is(err, errs.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for outsider, got %v", err)
	}

	_, err = fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-finance", ActorID: "mgr1", Decision: DecisionApprove,
	})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for stale step reference, got %v", err)
	}
}

func TestSkipChainApprovesWithoutActions(t *testing.T) {
	def := &workflow.WorkflowDefinition{
		ID:         primitive.NewObjectID(),
		EntityType: "purchase_requisition",
		Version:    1,
		IsActive:   true,
		Steps: []workflow.Step{
			{
				ID: "only", Name: "Finance Review", Order: 1,
				ApprovalType: workflow.ApprovalTypeAny,
				Approvers:    []workflow.ApproverSpec{{Type: workflow.ApproverTypeRole, Value: "finance_manager"}},
				Conditions: []workflow.Condition{
					{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000, Action: workflow.ConditionRequire},
				},
			},
		},
	}
	fx := newEngine(def)
	req := submitRequisition(t, fx, 100)

	if req.Status != RequestStatusApproved {
		t.Fatalf("expected auto-approval of a fully skipped chain, got %s", req.Status)
	}

	history, _ := fx.actions.ListByRequest(context.Background(), req.ID)
	for _, a := range history {
		if a.Decision != DecisionSubmit {
			t.Errorf("expected only the submit record, found %s by %s", a.Decision, a.ActorID)
		}
	}
}

func TestBypassSkipsOnlyCanSkipSteps(t *testing.T) {
	def := requisitionDefinition()
	def.Steps[0].CanSkip = true // manager step may be bypassed
	fx := newEngine(def)

	req, err := fx.svc.Submit(context.Background(), SubmitInput{
		EntityType:   "purchase_requisition",
		EntityNumber: "PR-2026-002",
		FieldValues: map[string]interface{}{
			"total_amount":  7500,
			BypassFieldName: true,
		},
		SubmittedBy: "emp1",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// manager bypassed, finance is not can_skip and still gates
	if req.CurrentStepID != "step-finance" {
		t.Fatalf("expected finance step after bypassing manager, got %s", req.CurrentStepID)
	}
}

func TestBlockedOnEmptyApproverSetAndReevaluate(t *testing.T) {
	def := requisitionDefinition()
	fx := newEngine(def)
	fx.dir.managers = map[string]string{} // submitter has no manager

	req := submitRequisition(t, fx, 3000)

	if !req.Blocked || req.Status != RequestStatusPending {
		t.Fatalf("expected blocked pending request, got blocked=%v status=%s", req.Blocked, req.Status)
	}
	if req.BlockedReason == "" {
		t.Error("expected a blocked reason")
	}

	_, err := fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-manager", ActorID: "mgr1", Decision: DecisionApprove,
	})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected blocked request to refuse actions, got %v", err)
	}

	// administrator fixes the directory, then retries
	fx.dir.managers["emp1"] = "mgr1"
	req, err = fx.svc.Reevaluate(context.Background(), req.ID.Hex())
	if err != nil {
		t.Fatalf("reevaluate failed: %v", err)
	}
	if req.Blocked {
		t.Fatal("expected request unblocked")
	}
	if !reflect.DeepEqual(req.StepApprovers, []string{"mgr1"}) {
		t.Errorf("expected manager resolved after fix, got %v", req.StepApprovers)
	}
}

func TestCancelBeatsLateApproval(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 3000)

	cancelled, err := fx.svc.Cancel(context.Background(), req.ID.Hex(), "admin1", "duplicate submission")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != RequestStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	_, err = fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-manager", ActorID: "mgr1", Decision: DecisionApprove,
	})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected late approval rejected after cancel, got %v", err)
	}
}

func TestStaleRevisionLosesCleanly(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	req := submitRequisition(t, fx, 3000)

	stale, _ := fx.repo.FindByID(context.Background(), req.ID.Hex())

	if _, err := fx.svc.Cancel(context.Background(), req.ID.Hex(), "admin1", ""); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	stale.UpdatedAt = time.Now()
	if err := fx.repo.UpdateWithRevision(context.Background(), stale); !errors.Is(err, errs.ErrStaleState) {
		t.Fatalf("expected ErrStaleState for the losing writer, got %v", err)
	}
}

func TestVersionFrozenAtSubmission(t *testing.T) {
	def := requisitionDefinition()
	fx := newEngine(def)
	req := submitRequisition(t, fx, 3000)

	// a new version goes active after submission
	v2 := requisitionDefinition()
	v2.Version = 2
	v2.Steps = v2.Steps[:1]
	fx.defs.byID[v2.ID.Hex()] = v2
	fx.defs.active["purchase_requisition"] = v2

	got, err := fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "step-manager", ActorID: "mgr1", Decision: DecisionApprove,
	})
	if err != nil {
		t.Fatalf("action failed: %v", err)
	}
	if got.WorkflowVersion != 1 || got.WorkflowID != def.ID {
		t.Fatalf("expected in-flight request pinned to version 1, got v%d", got.WorkflowVersion)
	}
}

func escalationDefinition(action workflow.EscalationAction, timeoutHours int) *workflow.WorkflowDefinition {
	return &workflow.WorkflowDefinition{
		ID:         primitive.NewObjectID(),
		EntityType: "purchase_requisition",
		Version:    1,
		IsActive:   true,
		Steps: []workflow.Step{
			{
				ID: "gate", Name: "Manager Approval", Order: 1,
				ApprovalType:     workflow.ApprovalTypeAny,
				TimeoutHours:     &timeoutHours,
				EscalationAction: action,
				EscalationRole:   "cfo",
				Approvers:        []workflow.ApproverSpec{{Type: workflow.ApproverTypeSubmitterManager}},
			},
		},
	}
}

func TestEscalationBeforeDeadlineIsRefused(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationAutoReject, 24))
	req := submitRequisition(t, fx, 3000)

	_, err := fx.svc.Escalate(context.Background(), req.ID.Hex())
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected refusal before the deadline, got %v", err)
	}
}

func TestEscalationAutoReject(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationAutoReject, 24))
	req := submitRequisition(t, fx, 3000)

	fx.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	req, err := fx.svc.Escalate(context.Background(), req.ID.Hex())
	if err != nil {
		t.Fatalf("escalate failed: %v", err)
	}
	if req.Status != RequestStatusRejected {
		t.Fatalf("expected auto-rejected, got %s", req.Status)
	}

	history, _ := fx.actions.ListByRequest(context.Background(), req.ID)
	var sawSystem bool
	for _, a := range history {
		if a.ActorID == SystemActorID && a.Decision == DecisionAutoReject {
			sawSystem = true
		}
	}
	if !sawSystem {
		t.Error("expected a system auto_reject action in the history")
	}
}

func TestEscalationAbortedWhenActionWriteFails(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationAutoReject, 24))
	req := submitRequisition(t, fx, 3000)

	fx.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	fx.actions.appendErr = errors.New("write concern timeout")

	if _, err := fx.svc.Escalate(context.Background(), req.ID.Hex()); err == nil {
		t.Fatal("expected escalate to fail when the action cannot be persisted")
	}

	stored, err := fx.repo.FindByID(context.Background(), req.ID.Hex())
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.Status != RequestStatusPending {
		t.Fatalf("expected request to stay pending, got %s", stored.Status)
	}
	for _, a := range fx.actions.actions {
		if a.ActorID == SystemActorID {
			t.Error("no system action should be recorded when the write fails")
		}
	}
}

func TestSubmitFailsWhenActionWriteFails(t *testing.T) {
	fx := newEngine(requisitionDefinition())
	fx.actions.appendErr = errors.New("write concern timeout")

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		EntityType:   "purchase_requisition",
		EntityID:     "pr-002",
		EntityNumber: "PR-2026-002",
		FieldValues:  map[string]interface{}{"total_amount": 3000},
		SubmittedBy:  "emp1",
	})
	if err == nil {
		t.Fatal("expected submit to fail when the submit action cannot be persisted")
	}
}

func TestEscalationAutoApproveAdvances(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationAutoApprove, 24))
	req := submitRequisition(t, fx, 3000)

	fx.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	req, err := fx.svc.Escalate(context.Background(), req.ID.Hex())
	if err != nil {
		t.Fatalf("escalate failed: %v", err)
	}
	if req.Status != RequestStatusApproved {
		t.Fatalf("expected auto-approved single-step chain, got %s", req.Status)
	}
}

func TestEscalationNotifyFiresOnce(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationNotify, 24))
	req := submitRequisition(t, fx, 3000)

	fx.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	req, err := fx.svc.Escalate(context.Background(), req.ID.Hex())
	if err != nil {
		t.Fatalf("escalate failed: %v", err)
	}
	if req.Status != RequestStatusPending {
		t.Fatalf("notify must not resolve the request, got %s", req.Status)
	}
	if !req.EscalationNotified {
		t.Fatal("expected escalation_notified set so the sweep does not refire")
	}

	var escalations int
	for _, evt := range fx.notifier.events {
		if evt.Type == EventEscalation {
			escalations++
		}
	}
	if escalations != 1 {
		t.Errorf("expected exactly one escalation event, got %d", escalations)
	}
}

func TestEscalationToRoleWidensAndRearms(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationRouteToRole, 24))
	req := submitRequisition(t, fx, 3000)
	originalDeadline := *req.StepDeadline

	frozen := time.Now().Add(25 * time.Hour)
	fx.svc.now = func() time.Time { return frozen }

	req, err := fx.svc.Escalate(context.Background(), req.ID.Hex())
	if err != nil {
		t.Fatalf("escalate failed: %v", err)
	}

	if !reflect.DeepEqual(req.StepApprovers, []string{"mgr1", "cfo1"}) {
		t.Fatalf("expected fallback role unioned into the eligible set, got %v", req.StepApprovers)
	}
	if req.StepDeadline == nil || !req.StepDeadline.After(originalDeadline) {
		t.Fatal("expected the deadline re-armed from the escalation time")
	}
	want := frozen.Add(24 * time.Hour)
	if !req.StepDeadline.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, req.StepDeadline)
	}

	// the escalated-to approver can now decide
	req, err = fx.svc.RecordAction(context.Background(), ActionInput{
		RequestID: req.ID.Hex(), StepID: "gate", ActorID: "cfo1", Decision: DecisionApprove,
	})
	if err != nil {
		t.Fatalf("post-escalation approval failed: %v", err)
	}
	if req.Status != RequestStatusApproved {
		t.Fatalf("expected approved, got %s", req.Status)
	}
}

func TestRerouteSubstitutesApproverSet(t *testing.T) {
	def := &workflow.WorkflowDefinition{
		ID:         primitive.NewObjectID(),
		EntityType: "purchase_requisition",
		Version:    1,
		IsActive:   true,
		Steps: []workflow.Step{
			{
				ID: "routed", Name: "Finance Review", Order: 1,
				ApprovalType: workflow.ApprovalTypeAny,
				Approvers:    []workflow.ApproverSpec{{Type: workflow.ApproverTypeRole, Value: "finance_manager"}},
				Conditions: []workflow.Condition{
					{FieldPath: "currency", Operator: workflow.OperatorNeq, Value: "USD", Action: workflow.ConditionRouteToRole, RouteToRole: "cfo"},
				},
			},
		},
	}
	fx := newEngine(def)

	req, err := fx.svc.Submit(context.Background(), SubmitInput{
		EntityType:   "purchase_requisition",
		EntityNumber: "PR-2026-003",
		FieldValues:  map[string]interface{}{"currency": "EUR"},
		SubmittedBy:  "emp1",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if !reflect.DeepEqual(req.StepApprovers, []string{"cfo1"}) {
		t.Fatalf("expected rerouted approver set, got %v", req.StepApprovers)
	}
}

func TestSweepEscalatesDueRequests(t *testing.T) {
	fx := newEngine(escalationDefinition(workflow.EscalationAutoApprove, 1))
	req := submitRequisition(t, fx, 3000)

	// push the stored deadline into the past
	stored := fx.repo.items[req.ID.Hex()]
	past := time.Now().Add(-time.Minute)
	stored.StepDeadline = &past

	clock := &EscalationClock{repo: fx.repo, service: fx.svc, log: zap.NewNop(), batchSize: 100}
	clock.Sweep(context.Background())

	after, _ := fx.repo.FindByID(context.Background(), req.ID.Hex())
	if after.Status != RequestStatusApproved {
		t.Fatalf("expected sweep to auto-approve the due request, got %s", after.Status)
	}
}
