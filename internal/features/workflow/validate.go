package workflow

import (
	"strconv"
	"strings"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
)

var validOperators = map[ConditionOperator]bool{
	OperatorEq:       true,
	OperatorNeq:      true,
	OperatorGt:       true,
	OperatorLt:       true,
	OperatorGte:      true,
	OperatorLte:      true,
	OperatorContains: true,
	OperatorIn:       true,
	OperatorIsEmpty:  true,
}

var orderingOperators = map[ConditionOperator]bool{
	OperatorGt:  true,
	OperatorLt:  true,
	OperatorGte: true,
	OperatorLte: true,
}

// NumericValue coerces scalars and numeric strings to float64 for ordering
// comparisons. Returns false when the value has no numeric interpretation.
func NumericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Validate checks a full definition: dense 1-based step orders, consensus
// policy parameters, escalation configuration and every condition. Any
// failure is a ConfigurationError and blocks creation and activation.
func (w *WorkflowDefinition) Validate() error {
	if w.EntityType == "" {
		return errs.Configuration("entity_type is required")
	}
	if len(w.Steps) == 0 {
		return errs.Configuration("definition %q has no steps", w.Name)
	}

	seen := make(map[int]bool, len(w.Steps))
	for i := range w.Steps {
		step := &w.Steps[i]
		if step.Order < 1 || step.Order > len(w.Steps) {
			return errs.Configuration("step %q has order %d outside 1..%d", step.Name, step.Order, len(w.Steps))
		}
		if seen[step.Order] {
			return errs.Configuration("duplicate step order %d", step.Order)
		}
		seen[step.Order] = true

		if err := step.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Step) validate() error {
	switch s.ApprovalType {
	case ApprovalTypeAny, ApprovalTypeAll:
		if s.RequiredPercentage != nil {
			return errs.Configuration("step %q: required_percentage is only valid for percentage steps", s.Name)
		}
	case ApprovalTypePercentage:
		if s.RequiredPercentage == nil {
			return errs.Configuration("step %q: percentage step is missing required_percentage", s.Name)
		}
		if *s.RequiredPercentage < 1 || *s.RequiredPercentage > 100 {
			return errs.Configuration("step %q: required_percentage %d outside 1..100", s.Name, *s.RequiredPercentage)
		}
	default:
		return errs.Configuration("step %q: unknown approval_type %q", s.Name, s.ApprovalType)
	}

	if len(s.Approvers) == 0 {
		return errs.Configuration("step %q has no approver specs", s.Name)
	}
	for _, spec := range s.Approvers {
		switch spec.Type {
		case ApproverTypeRole, ApproverTypeUser:
			if spec.Value == "" {
				return errs.Configuration("step %q: %s approver spec is missing a value", s.Name, spec.Type)
			}
		case ApproverTypeSubmitterManager:
			// derived, no value
		default:
			return errs.Configuration("step %q: unknown approver_type %q", s.Name, spec.Type)
		}
	}

	switch s.EscalationAction {
	case "", EscalationNotify, EscalationAutoApprove, EscalationAutoReject:
	case EscalationRouteToRole:
		if s.EscalationRole == "" {
			return errs.Configuration("step %q: escalate_to_role requires an escalation_role", s.Name)
		}
	default:
		return errs.Configuration("step %q: unknown escalation_action %q", s.Name, s.EscalationAction)
	}
	if s.TimeoutHours != nil && *s.TimeoutHours < 1 {
		return errs.Configuration("step %q: timeout_hours must be positive", s.Name)
	}
	if s.TimeoutHours != nil && s.EscalationAction == "" {
		return errs.Configuration("step %q: timeout_hours set without an escalation_action", s.Name)
	}

	for _, cond := range s.Conditions {
		if err := cond.validate(s.Name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Condition) validate(stepName string) error {
	path := c.FieldPath
	if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return errs.Configuration("step %q: malformed field_path %q", stepName, path)
	}
	if !validOperators[c.Operator] {
		return errs.Configuration("step %q: unknown operator %q", stepName, c.Operator)
	}
	if orderingOperators[c.Operator] {
		if _, ok := NumericValue(c.Value); !ok {
			return errs.Configuration("step %q: operator %q needs a numeric value, got %v", stepName, c.Operator, c.Value)
		}
	}
	switch c.Action {
	// An absent action defaults to require.
	case "", ConditionRequire, ConditionSkip:
	case ConditionRouteToRole:
		if c.RouteToRole == "" {
			return errs.Configuration("step %q: route_to_role condition is missing a target role", stepName)
		}
	default:
		return errs.Configuration("step %q: unknown condition action %q", stepName, c.Action)
	}
	return nil
}
