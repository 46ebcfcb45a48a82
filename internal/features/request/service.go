package request

import (
	"context"
	"fmt"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/audit"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefinitionSource is the slice of the workflow feature the engine reads.
// Requests freeze the definition id at submission, so step evaluation always
// re-reads the same version regardless of later activations.
type DefinitionSource interface {
	GetByID(ctx context.Context, id string) (*workflow.WorkflowDefinition, error)
	GetActiveByEntityType(ctx context.Context, entityType string) (*workflow.WorkflowDefinition, error)
}

// Notifier is the notification dispatch collaborator. Delivery mechanics are
// external; the engine only emits events.
type Notifier interface {
	NotifyWorkflowEvent(ctx context.Context, evt Event)
}

// SubmitInput is the document submission boundary payload.
type SubmitInput struct {
	EntityType   string                 `json:"entity_type"`
	EntityID     string                 `json:"entity_id"`
	EntityNumber string                 `json:"entity_number"`
	FieldValues  map[string]interface{} `json:"field_values"`
	SubmittedBy  string                 `json:"submitted_by"`
}

// ActionInput is the action boundary payload.
type ActionInput struct {
	RequestID string   `json:"request_id"`
	StepID    string   `json:"step_id"`
	ActorID   string   `json:"actor_id"`
	Decision  Decision `json:"decision"`
	Comment   string   `json:"comment,omitempty"`
}

type RequestService interface {
	Submit(ctx context.Context, input SubmitInput) (*Request, error)
	RecordAction(ctx context.Context, input ActionInput) (*Request, error)
	Escalate(ctx context.Context, requestID string) (*Request, error)
	Cancel(ctx context.Context, requestID string, actorID string, comment string) (*Request, error)
	Reevaluate(ctx context.Context, requestID string) (*Request, error)
	Get(ctx context.Context, requestID string) (*Request, error)
	History(ctx context.Context, requestID string) ([]Action, error)
	ListPendingForApprover(ctx context.Context, userID string, page, limit int64) ([]Request, int64, error)
	List(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Request, int64, error)
}

type RequestServiceImpl struct {
	Repo         RequestRepository
	ActionRepo   ActionRepository
	Definitions  DefinitionSource
	Resolver     *ApproverResolver
	Directory    Directory
	Notifier     Notifier
	AuditService audit.AuditService
	Log          *zap.Logger

	now func() time.Time
}

func NewRequestService(
	repo RequestRepository,
	actionRepo ActionRepository,
	definitions DefinitionSource,
	resolver *ApproverResolver,
	directory Directory,
	notifier Notifier,
	auditService audit.AuditService,
	log *zap.Logger,
) RequestService {
	return &RequestServiceImpl{
		Repo:         repo,
		ActionRepo:   actionRepo,
		Definitions:  definitions,
		Resolver:     resolver,
		Directory:    directory,
		Notifier:     notifier,
		AuditService: auditService,
		Log:          log,
		now:          time.Now,
	}
}

// Submit creates a request bound to the active definition version for the
// entity type and runs the sequencer from step 1. A chain whose every step
// skips resolves straight to approved with no recorded approver actions.
func (s *RequestServiceImpl) Submit(ctx context.Context, input SubmitInput) (*Request, error) {
	def, err := s.Definitions.GetActiveByEntityType(ctx, input.EntityType)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errs.Configuration("no active workflow for entity type %q", input.EntityType)
	}

	now := s.now()
	req := &Request{
		ID:              primitive.NewObjectID(),
		EntityType:      input.EntityType,
		EntityID:        input.EntityID,
		EntityNumber:    input.EntityNumber,
		WorkflowID:      def.ID,
		WorkflowVersion: def.Version,
		Status:          RequestStatusPending,
		FieldValues:     input.FieldValues,
		SubmittedBy:     input.SubmittedBy,
		Revision:        1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.openFrom(ctx, req, def, 1)

	if err := s.Repo.Create(ctx, req); err != nil {
		return nil, err
	}

	if err := s.ActionRepo.Append(ctx, &Action{
		ID:        primitive.NewObjectID(),
		RequestID: req.ID,
		ActorID:   input.SubmittedBy,
		Decision:  DecisionSubmit,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionSubmit, "workflow_requests", req.ID.Hex(), map[string]common_models.Change{
		"status":        {New: req.Status},
		"entity_number": {New: req.EntityNumber},
		"workflow":      {New: fmt.Sprintf("%s v%d", def.EntityType, def.Version)},
	})

	s.emitOpenOrResolved(ctx, req)

	return req, nil
}

// RecordAction appends one approver decision and re-aggregates the step.
// SATISFIED advances the sequencer, REJECTED short-circuits the whole chain,
// PENDING leaves the request untouched.
func (s *RequestServiceImpl) RecordAction(ctx context.Context, input ActionInput) (*Request, error) {
	req, err := s.Repo.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.ErrNotFound
	}

	if req.Terminal() || req.Blocked {
		return nil, errs.ErrInvalidTransition
	}
	if input.StepID == "" || input.StepID != req.CurrentStepID {
		// Stale step reference: the step was already resolved or never opened.
		return nil, errs.ErrInvalidTransition
	}
	if input.Decision != DecisionApprove && input.Decision != DecisionReject {
		return nil, fmt.Errorf("decision %q is not valid for an approver action", input.Decision)
	}
	if !contains(req.StepApprovers, input.ActorID) {
		return nil, errs.ErrNotEligible
	}

	def, err := s.Definitions.GetByID(ctx, req.WorkflowID.Hex())
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errs.Configuration("workflow definition %s is gone", req.WorkflowID.Hex())
	}
	step := def.StepByID(req.CurrentStepID)
	if step == nil {
		return nil, errs.Configuration("step %s not found in definition version %d", req.CurrentStepID, def.Version)
	}

	action := &Action{
		ID:        primitive.NewObjectID(),
		RequestID: req.ID,
		StepID:    step.ID,
		StepOrder: step.Order,
		ActorID:   input.ActorID,
		Decision:  input.Decision,
		Comment:   input.Comment,
		CreatedAt: s.now(),
	}
	if err := s.ActionRepo.Append(ctx, action); err != nil {
		return nil, err
	}

	actions, err := s.ActionRepo.ListByStep(ctx, req.ID, step.ID)
	if err != nil {
		return nil, err
	}

	verdict := Aggregate(step, req.StepApprovers, actions)
	if verdict == VerdictPending {
		// No transition; the appended action is the only state change.
		return req, nil
	}

	prevStatus := req.Status
	s.applyVerdict(ctx, req, def, step, verdict)

	if err := s.Repo.UpdateWithRevision(ctx, req); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTransition, "workflow_requests", req.ID.Hex(), map[string]common_models.Change{
		"status":     {Old: prevStatus, New: req.Status},
		"step":       {Old: step.Name, New: req.CurrentStepOrder},
		"decided_by": {New: input.ActorID},
	})

	s.emitOpenOrResolved(ctx, req)

	return req, nil
}

// Escalate applies the configured escalation action of the current step once
// its deadline has elapsed. Driven by the escalation clock; the engine holds
// no timers of its own.
func (s *RequestServiceImpl) Escalate(ctx context.Context, requestID string) (*Request, error) {
	req, err := s.Repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.ErrNotFound
	}
	if req.Terminal() || req.Blocked || req.CurrentStepID == "" {
		return nil, errs.ErrInvalidTransition
	}

	now := s.now()
	if req.StepDeadline == nil || now.Before(*req.StepDeadline) {
		return nil, errs.ErrInvalidTransition
	}

	def, err := s.Definitions.GetByID(ctx, req.WorkflowID.Hex())
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errs.Configuration("workflow definition %s is gone", req.WorkflowID.Hex())
	}
	step := def.StepByID(req.CurrentStepID)
	if step == nil {
		return nil, errs.Configuration("step %s not found in definition version %d", req.CurrentStepID, def.Version)
	}

	prevStatus := req.Status

	switch step.EscalationAction {
	case workflow.EscalationNotify:
		req.EscalationNotified = true
		req.UpdatedAt = now
		if err := s.Repo.UpdateWithRevision(ctx, req); err != nil {
			return nil, err
		}
		s.Notifier.NotifyWorkflowEvent(ctx, Event{
			Type:         EventEscalation,
			Recipients:   req.StepApprovers,
			RequestID:    req.ID.Hex(),
			EntityType:   req.EntityType,
			EntityNumber: req.EntityNumber,
			Message:      fmt.Sprintf("Step %q of %s has exceeded its timeout", step.Name, req.EntityNumber),
		})

	case workflow.EscalationAutoApprove, workflow.EscalationAutoReject:
		decision := DecisionAutoApprove
		verdict := VerdictSatisfied
		if step.EscalationAction == workflow.EscalationAutoReject {
			decision = DecisionAutoReject
			verdict = VerdictRejected
		}
		// The synthesized action must be durable before the transition it
		// justifies; otherwise the log stops being the source of truth.
		if err := s.ActionRepo.Append(ctx, &Action{
			ID:        primitive.NewObjectID(),
			RequestID: req.ID,
			StepID:    step.ID,
			StepOrder: step.Order,
			ActorID:   SystemActorID,
			Decision:  decision,
			Comment:   fmt.Sprintf("timeout after %dh", derefInt(step.TimeoutHours)),
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		s.applyVerdict(ctx, req, def, step, verdict)
		if err := s.Repo.UpdateWithRevision(ctx, req); err != nil {
			return nil, err
		}
		s.emitOpenOrResolved(ctx, req)

	case workflow.EscalationRouteToRole:
		fallback, err := s.Directory.ListActiveUsersWithRole(ctx, step.EscalationRole)
		if err != nil {
			return nil, err
		}
		req.StepApprovers = union(req.StepApprovers, fallback)
		// Re-arm from now, not from the original open time.
		if step.TimeoutHours != nil {
			deadline := now.Add(time.Duration(*step.TimeoutHours) * time.Hour)
			req.StepDeadline = &deadline
		}
		req.UpdatedAt = now
		if err := s.Repo.UpdateWithRevision(ctx, req); err != nil {
			return nil, err
		}
		s.Notifier.NotifyWorkflowEvent(ctx, Event{
			Type:         EventEscalation,
			Recipients:   fallback,
			RequestID:    req.ID.Hex(),
			EntityType:   req.EntityType,
			EntityNumber: req.EntityNumber,
			Message:      fmt.Sprintf("Step %q of %s escalated to role %q", step.Name, req.EntityNumber, step.EscalationRole),
		})

	default:
		return nil, errs.Configuration("step %q has timeout but no escalation_action", step.Name)
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionEscalation, "workflow_requests", req.ID.Hex(), map[string]common_models.Change{
		"status":            {Old: prevStatus, New: req.Status},
		"escalation_action": {New: step.EscalationAction},
		"step":              {New: step.Name},
	})

	return req, nil
}

// Cancel is the administrative override to the terminal cancelled state.
// Always permitted from any non-terminal state; a record_action racing with
// a cancel that landed first is rejected instead of re-opening the request.
func (s *RequestServiceImpl) Cancel(ctx context.Context, requestID string, actorID string, comment string) (*Request, error) {
	req, err := s.Repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.ErrNotFound
	}
	if req.Terminal() {
		return nil, errs.ErrInvalidTransition
	}

	now := s.now()
	prevStatus := req.Status
	req.Status = RequestStatusCancelled
	req.Blocked = false
	req.BlockedReason = ""
	req.StepDeadline = nil
	req.ResolvedAt = &now
	req.UpdatedAt = now

	if err := s.Repo.UpdateWithRevision(ctx, req); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCancel, "workflow_requests", req.ID.Hex(), map[string]common_models.Change{
		"status":       {Old: prevStatus, New: req.Status},
		"cancelled_by": {New: actorID},
		"comment":      {New: comment},
	})

	s.Notifier.NotifyWorkflowEvent(ctx, Event{
		Type:         EventRequestResolved,
		Recipients:   []string{req.SubmittedBy},
		RequestID:    req.ID.Hex(),
		EntityType:   req.EntityType,
		EntityNumber: req.EntityNumber,
		Message:      fmt.Sprintf("%s was cancelled", req.EntityNumber),
	})

	return req, nil
}

// Reevaluate retries a blocked request after an administrator fixed the
// configuration (or the directory). It re-runs the sequencer at the step
// that blocked.
func (s *RequestServiceImpl) Reevaluate(ctx context.Context, requestID string) (*Request, error) {
	req, err := s.Repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.ErrNotFound
	}
	if req.Terminal() || !req.Blocked {
		return nil, errs.ErrInvalidTransition
	}

	def, err := s.Definitions.GetByID(ctx, req.WorkflowID.Hex())
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errs.Configuration("workflow definition %s is gone", req.WorkflowID.Hex())
	}

	req.Blocked = false
	req.BlockedReason = ""
	start := req.CurrentStepOrder
	if start < 1 {
		start = 1
	}
	s.openFrom(ctx, req, def, start)
	req.UpdatedAt = s.now()

	if err := s.Repo.UpdateWithRevision(ctx, req); err != nil {
		return nil, err
	}

	s.emitOpenOrResolved(ctx, req)
	return req, nil
}

func (s *RequestServiceImpl) Get(ctx context.Context, requestID string) (*Request, error) {
	return s.Repo.FindByID(ctx, requestID)
}

func (s *RequestServiceImpl) History(ctx context.Context, requestID string) ([]Action, error) {
	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, err
	}
	return s.ActionRepo.ListByRequest(ctx, oid)
}

func (s *RequestServiceImpl) ListPendingForApprover(ctx context.Context, userID string, page, limit int64) ([]Request, int64, error) {
	return s.Repo.ListPendingForApprover(ctx, userID, page, limit)
}

func (s *RequestServiceImpl) List(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Request, int64, error) {
	return s.Repo.List(ctx, filters, page, limit)
}

// openFrom is the sequencer: it walks steps from startOrder, skipping and
// rerouting per the evaluator, and either opens the first applicable step or
// finalizes the request as approved when none remain. Mutates req in memory;
// the caller persists.
func (s *RequestServiceImpl) openFrom(ctx context.Context, req *Request, def *workflow.WorkflowDefinition, startOrder int) {
	for order := startOrder; order <= len(def.Steps); order++ {
		step := def.StepByOrder(order)
		if step == nil {
			s.block(req, fmt.Sprintf("definition version %d has no step with order %d", def.Version, order))
			return
		}

		// Document-level bypass is checked before condition evaluation and
		// only honored on steps that allow it.
		if step.CanSkip && bypassRequested(req.FieldValues) {
			continue
		}

		decision, err := EvaluateStep(step, req.FieldValues)
		if err != nil {
			s.block(req, err.Error())
			return
		}

		switch decision.Result {
		case ActivationSkip:
			continue

		case ActivationActivate, ActivationReroute:
			specs := step.Approvers
			if decision.Result == ActivationReroute {
				// Substitution for this instantiation only.
				specs = []workflow.ApproverSpec{{Type: workflow.ApproverTypeRole, Value: decision.RouteToRole}}
			}

			eligible, err := s.Resolver.Resolve(ctx, specs, req.SubmittedBy)
			if err != nil {
				req.CurrentStepID = step.ID
				req.CurrentStepOrder = step.Order
				s.block(req, fmt.Sprintf("step %q: %v", step.Name, err))
				return
			}

			now := s.now()
			req.CurrentStepID = step.ID
			req.CurrentStepOrder = step.Order
			req.StepApprovers = eligible
			req.StepOpenedAt = &now
			req.EscalationNotified = false
			req.StepDeadline = nil
			if step.TimeoutHours != nil {
				deadline := now.Add(time.Duration(*step.TimeoutHours) * time.Hour)
				req.StepDeadline = &deadline
			}
			req.UpdatedAt = now
			return
		}
	}

	s.finalize(req, RequestStatusApproved)
}

// applyVerdict advances or finalizes after a non-pending aggregation result.
func (s *RequestServiceImpl) applyVerdict(ctx context.Context, req *Request, def *workflow.WorkflowDefinition, step *workflow.Step, verdict Verdict) {
	switch verdict {
	case VerdictSatisfied:
		s.openFrom(ctx, req, def, step.Order+1)
	case VerdictRejected:
		s.finalize(req, RequestStatusRejected)
	}
}

func (s *RequestServiceImpl) finalize(req *Request, status RequestStatus) {
	now := s.now()
	req.Status = status
	req.StepApprovers = nil
	req.StepDeadline = nil
	req.ResolvedAt = &now
	req.UpdatedAt = now
}

func (s *RequestServiceImpl) block(req *Request, reason string) {
	req.Blocked = true
	req.BlockedReason = reason
	req.StepApprovers = nil
	req.StepDeadline = nil
	req.UpdatedAt = s.now()
	s.Log.Error("workflow request blocked pending administrator intervention",
		zap.String("request_id", req.ID.Hex()),
		zap.String("reason", reason))
}

// emitOpenOrResolved sends the step_opened or request_resolved event matching
// the request's current state.
func (s *RequestServiceImpl) emitOpenOrResolved(ctx context.Context, req *Request) {
	switch {
	case req.Terminal():
		s.Notifier.NotifyWorkflowEvent(ctx, Event{
			Type:         EventRequestResolved,
			Recipients:   []string{req.SubmittedBy},
			RequestID:    req.ID.Hex(),
			EntityType:   req.EntityType,
			EntityNumber: req.EntityNumber,
			Message:      fmt.Sprintf("%s was %s", req.EntityNumber, req.Status),
		})
	case !req.Blocked && req.CurrentStepID != "" && len(req.StepApprovers) > 0:
		s.Notifier.NotifyWorkflowEvent(ctx, Event{
			Type:         EventStepOpened,
			Recipients:   req.StepApprovers,
			RequestID:    req.ID.Hex(),
			EntityType:   req.EntityType,
			EntityNumber: req.EntityNumber,
			Message:      fmt.Sprintf("%s is waiting for your approval", req.EntityNumber),
		})
	}
}

func bypassRequested(fields map[string]interface{}) bool {
	v, ok := fields[BypassFieldName]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
