package request

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the lifecycle state of a request. Approved, rejected and
// cancelled are terminal.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// Decision is one approver's (or the system's) verdict on a step.
type Decision string

const (
	DecisionSubmit      Decision = "submit"
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionEscalate    Decision = "escalate"
	DecisionAutoApprove Decision = "auto_approve"
	DecisionAutoReject  Decision = "auto_reject"
)

// SystemActorID is the actor recorded on synthesized escalation actions.
const SystemActorID = "system"

// BypassFieldName is the document field that requests skipping of can_skip
// steps. It is honored before condition evaluation and only on steps whose
// definition sets can_skip.
const BypassFieldName = "bypass_approvals"

// Request is one document instance moving through a workflow definition
// version frozen at submission time. Only the request service mutates it;
// every write goes through a revision check so concurrent writers lose
// cleanly instead of double-advancing.
type Request struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityType      string             `bson:"entity_type" json:"entity_type"`
	EntityID        string             `bson:"entity_id" json:"entity_id"`
	EntityNumber    string             `bson:"entity_number" json:"entity_number"`
	WorkflowID      primitive.ObjectID `bson:"workflow_id" json:"workflow_id"`
	WorkflowVersion int                `bson:"workflow_version" json:"workflow_version"`

	Status        RequestStatus `bson:"status" json:"status"`
	Blocked       bool          `bson:"blocked" json:"blocked"` // sub-state of pending, needs admin intervention
	BlockedReason string        `bson:"blocked_reason,omitempty" json:"blocked_reason,omitempty"`

	CurrentStepID    string `bson:"current_step_id,omitempty" json:"current_step_id,omitempty"`
	CurrentStepOrder int    `bson:"current_step_order" json:"current_step_order"`

	// StepApprovers is the eligible set resolved when the current step was
	// opened (including reroute substitution and escalate_to_role widening).
	StepApprovers []string   `bson:"step_approvers,omitempty" json:"step_approvers,omitempty"`
	StepOpenedAt  *time.Time `bson:"step_opened_at,omitempty" json:"step_opened_at,omitempty"`
	StepDeadline  *time.Time `bson:"step_deadline,omitempty" json:"step_deadline,omitempty"`

	// EscalationNotified marks that a notify-type escalation has fired for
	// the current step, so the clock scan does not refire every tick.
	EscalationNotified bool `bson:"escalation_notified" json:"escalation_notified"`

	FieldValues map[string]interface{} `bson:"field_values" json:"field_values"`
	SubmittedBy string                 `bson:"submitted_by" json:"submitted_by"`

	// Revision backs the optimistic single-writer discipline per request.
	Revision   int64      `bson:"revision" json:"revision"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// Terminal reports whether the request reached a final state.
func (r *Request) Terminal() bool {
	switch r.Status {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// Action is one immutable, append-only record of a decision against a step.
// Actions are never updated or deleted; verdicts are always recomputed from
// the full per-step history.
type Action struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID primitive.ObjectID `bson:"request_id" json:"request_id"`
	StepID    string             `bson:"step_id,omitempty" json:"step_id,omitempty"`
	StepOrder int                `bson:"step_order" json:"step_order"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	Decision  Decision           `bson:"decision" json:"decision"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// EventType classifies notifications emitted by the engine.
type EventType string

const (
	EventStepOpened      EventType = "step_opened"
	EventEscalation      EventType = "escalation"
	EventRequestResolved EventType = "request_resolved"
)

// Event is what the engine hands to the notification collaborator. Delivery
// mechanics are external.
type Event struct {
	Type         EventType `json:"type"`
	Recipients   []string  `json:"recipients"`
	RequestID    string    `json:"request_id"`
	EntityType   string    `json:"entity_type"`
	EntityNumber string    `json:"entity_number"`
	Message      string    `json:"message"`
}
