package workflow

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApprovalType is the consensus policy of a step
type ApprovalType string

const (
	ApprovalTypeAny        ApprovalType = "any"        // first approval satisfies the step
	ApprovalTypeAll        ApprovalType = "all"        // every eligible approver must approve
	ApprovalTypePercentage ApprovalType = "percentage" // threshold share of eligible approvers
)

// EscalationAction is what happens when a step's timeout elapses unresolved
type EscalationAction string

const (
	EscalationNotify      EscalationAction = "notify"
	EscalationAutoApprove EscalationAction = "auto_approve"
	EscalationAutoReject  EscalationAction = "auto_reject"
	EscalationRouteToRole EscalationAction = "escalate_to_role"
)

// ApproverType classifies an approver specification
type ApproverType string

const (
	ApproverTypeRole             ApproverType = "role"
	ApproverTypeUser             ApproverType = "user"
	ApproverTypeSubmitterManager ApproverType = "submitter_manager"
)

// ConditionOperator is the fixed comparison set for step conditions
type ConditionOperator string

const (
	OperatorEq       ConditionOperator = "eq"
	OperatorNeq      ConditionOperator = "neq"
	OperatorGt       ConditionOperator = "gt"
	OperatorLt       ConditionOperator = "lt"
	OperatorGte      ConditionOperator = "gte"
	OperatorLte      ConditionOperator = "lte"
	OperatorContains ConditionOperator = "contains"
	OperatorIn       ConditionOperator = "in"
	OperatorIsEmpty  ConditionOperator = "is_empty"
)

// ConditionAction is what a satisfied condition set does to the step
type ConditionAction string

const (
	ConditionRequire     ConditionAction = "require"
	ConditionSkip        ConditionAction = "skip"
	ConditionRouteToRole ConditionAction = "route_to_role"
)

// WorkflowDefinition is a versioned, named set of ordered approval steps for
// one entity type. At most one version per entity type is active at a time.
// A version becomes immutable once any request references it.
type WorkflowDefinition struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityType string             `bson:"entity_type" json:"entity_type"` // e.g. "purchase_requisition"
	Version    int                `bson:"version" json:"version"`
	Name       string             `bson:"name" json:"name"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
	Steps      []Step             `bson:"steps" json:"steps"`
	CreatedBy  string             `bson:"created_by" json:"created_by"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// Step is one gate in the chain with its own approver set, consensus rule,
// activation conditions and timeout.
type Step struct {
	ID                 string            `bson:"id" json:"id"` // uuid, stable within the definition
	Name               string            `bson:"name" json:"name"`
	Order              int               `bson:"order" json:"order"` // 1-based, dense
	ApprovalType       ApprovalType      `bson:"approval_type" json:"approval_type"`
	RequiredPercentage *int              `bson:"required_percentage,omitempty" json:"required_percentage,omitempty"` // present iff percentage
	CanSkip            bool              `bson:"can_skip" json:"can_skip"` // document bypass flag may skip this step
	TimeoutHours       *int              `bson:"timeout_hours,omitempty" json:"timeout_hours,omitempty"`             // nil means no timeout
	EscalationAction   EscalationAction  `bson:"escalation_action,omitempty" json:"escalation_action,omitempty"`
	EscalationRole     string            `bson:"escalation_role,omitempty" json:"escalation_role,omitempty"` // iff escalate_to_role
	Approvers          []ApproverSpec    `bson:"approvers" json:"approvers"`
	Conditions         []Condition       `bson:"conditions,omitempty" json:"conditions,omitempty"`
}

// ApproverSpec is an abstract approver reference resolved to concrete user
// identities at step activation time. Multiple specs on a step are unioned.
type ApproverSpec struct {
	Type  ApproverType `bson:"type" json:"type"`
	Value string       `bson:"value,omitempty" json:"value,omitempty"` // role name or user id; absent for derived types
}

// Condition is a predicate over the submitted document's fields. A step with
// conditions acts on them conjunctively; the first-listed condition's Action
// decides what satisfaction means for the step.
type Condition struct {
	FieldPath   string            `bson:"field_path" json:"field_path"` // dot-path into the document fields
	Operator    ConditionOperator `bson:"operator" json:"operator"`
	Value       interface{}       `bson:"value" json:"value"`
	Action      ConditionAction   `bson:"action" json:"action"`
	RouteToRole string            `bson:"route_to_role,omitempty" json:"route_to_role,omitempty"` // iff action route_to_role
}

// StepByID returns the step with the given id, or nil.
func (w *WorkflowDefinition) StepByID(id string) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}

// StepByOrder returns the step with the given 1-based order, or nil.
func (w *WorkflowDefinition) StepByOrder(order int) *Step {
	for i := range w.Steps {
		if w.Steps[i].Order == order {
			return &w.Steps[i]
		}
	}
	return nil
}
