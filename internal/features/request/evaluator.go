package request

import (
	"fmt"
	"strings"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"
)

// StepActivation is the outcome of condition evaluation for one step.
type StepActivation string

const (
	ActivationActivate StepActivation = "activate"
	ActivationSkip     StepActivation = "skip"
	ActivationReroute  StepActivation = "reroute"
)

// ActivationDecision carries the outcome plus the substitute role for
// reroutes. The substitution applies to this evaluation only; the stored
// approver specs are never touched.
type ActivationDecision struct {
	Result      StepActivation
	RouteToRole string
}

// EvaluateStep decides whether a step activates, is skipped, or is rerouted,
// given the submitted document's field values. Pure: no side effects.
//
// A step with no conditions always activates. With conditions, all must hold
// (conjunctive) for the set to be satisfied; the first-listed condition's
// action then decides the outcome. An unsatisfied require-set skips the step,
// an unsatisfied skip/route set falls back to normal activation.
func EvaluateStep(step *workflow.Step, fields map[string]interface{}) (ActivationDecision, error) {
	if len(step.Conditions) == 0 {
		return ActivationDecision{Result: ActivationActivate}, nil
	}

	satisfied := true
	for i := range step.Conditions {
		ok, err := evaluateCondition(&step.Conditions[i], fields)
		if err != nil {
			return ActivationDecision{}, err
		}
		if !ok {
			satisfied = false
			break
		}
	}

	action := step.Conditions[0].Action
	if action == "" {
		action = workflow.ConditionRequire
	}
	if satisfied {
		switch action {
		case workflow.ConditionSkip:
			return ActivationDecision{Result: ActivationSkip}, nil
		case workflow.ConditionRouteToRole:
			return ActivationDecision{Result: ActivationReroute, RouteToRole: step.Conditions[0].RouteToRole}, nil
		default: // require
			return ActivationDecision{Result: ActivationActivate}, nil
		}
	}

	// Conditions not met: a required step is not required, a skip/route
	// directive does not apply.
	if action == workflow.ConditionRequire {
		return ActivationDecision{Result: ActivationSkip}, nil
	}
	return ActivationDecision{Result: ActivationActivate}, nil
}

func evaluateCondition(cond *workflow.Condition, fields map[string]interface{}) (bool, error) {
	if cond.FieldPath == "" || strings.HasPrefix(cond.FieldPath, ".") ||
		strings.HasSuffix(cond.FieldPath, ".") || strings.Contains(cond.FieldPath, "..") {
		return false, errs.Configuration("malformed field_path %q", cond.FieldPath)
	}

	value := lookupFieldPath(fields, cond.FieldPath)

	// A missing field compares as null: every operator except is_empty
	// evaluates false against it.
	if value == nil {
		return cond.Operator == workflow.OperatorIsEmpty, nil
	}

	switch cond.Operator {
	case workflow.OperatorEq:
		return stringForm(value) == stringForm(cond.Value), nil
	case workflow.OperatorNeq:
		return stringForm(value) != stringForm(cond.Value), nil
	case workflow.OperatorGt, workflow.OperatorLt, workflow.OperatorGte, workflow.OperatorLte:
		return compareOrdered(cond.Operator, value, cond.Value), nil
	case workflow.OperatorContains:
		return strings.Contains(strings.ToLower(stringForm(value)), strings.ToLower(stringForm(cond.Value))), nil
	case workflow.OperatorIn:
		return containsValue(cond.Value, value), nil
	case workflow.OperatorIsEmpty:
		return isEmptyValue(value), nil
	default:
		return false, errs.Configuration("unknown operator %q", cond.Operator)
	}
}

// compareOrdered coerces both sides to numbers first; a side with no numeric
// interpretation makes the comparison false rather than erroring, since the
// document controls its own field types.
func compareOrdered(op workflow.ConditionOperator, left, right interface{}) bool {
	l, ok := workflow.NumericValue(left)
	if !ok {
		return false
	}
	r, ok := workflow.NumericValue(right)
	if !ok {
		return false
	}
	switch op {
	case workflow.OperatorGt:
		return l > r
	case workflow.OperatorLt:
		return l < r
	case workflow.OperatorGte:
		return l >= r
	default:
		return l <= r
	}
}

func containsValue(list, value interface{}) bool {
	target := stringForm(value)
	switch items := list.(type) {
	case []interface{}:
		for _, item := range items {
			if stringForm(item) == target {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if item == target {
				return true
			}
		}
	}
	return false
}

func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func stringForm(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

// lookupFieldPath walks a dot-path through nested maps. A missing or
// non-map intermediate yields nil.
func lookupFieldPath(fields map[string]interface{}, path string) interface{} {
	parts := strings.Split(path, ".")
	var current interface{} = fields
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}
