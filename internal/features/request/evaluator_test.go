package request

import (
	"testing"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"
)

func TestEvaluateStepNoConditions(t *testing.T) {
	step := &workflow.Step{ID: "s1", Name: "Manager Approval", Order: 1}

	decision, err := EvaluateStep(step, map[string]interface{}{"total_amount": 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Result != ActivationActivate {
		t.Errorf("expected activate, got %s", decision.Result)
	}
}

func TestEvaluateStepConditionOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		conditions []workflow.Condition
		fields     map[string]interface{}
		want       StepActivation
		wantRole   string
	}{
		{
			name: "satisfied require activates",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000, Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{"total_amount": 7500},
			want:   ActivationActivate,
		},
		{
			name: "unsatisfied require skips",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000, Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{"total_amount": 3200},
			want:   ActivationSkip,
		},
		{
			name: "empty action defaults to require",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000},
			},
			fields: map[string]interface{}{"total_amount": 7500},
			want:   ActivationActivate,
		},
		{
			name: "empty action unsatisfied skips like require",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000},
			},
			fields: map[string]interface{}{"total_amount": 3200},
			want:   ActivationSkip,
		},
		{
			name: "satisfied skip skips",
			conditions: []workflow.Condition{
				{FieldPath: "department", Operator: workflow.OperatorEq, Value: "IT", Action: workflow.ConditionSkip},
			},
			fields: map[string]interface{}{"department": "IT"},
			want:   ActivationSkip,
		},
		{
			name: "unsatisfied skip activates",
			conditions: []workflow.Condition{
				{FieldPath: "department", Operator: workflow.OperatorEq, Value: "IT", Action: workflow.ConditionSkip},
			},
			fields: map[string]interface{}{"department": "Finance"},
			want:   ActivationActivate,
		},
		{
			name: "satisfied route reroutes to first condition role",
			conditions: []workflow.Condition{
				{FieldPath: "currency", Operator: workflow.OperatorNeq, Value: "USD", Action: workflow.ConditionRouteToRole, RouteToRole: "treasury"},
			},
			fields:   map[string]interface{}{"currency": "EUR"},
			want:     ActivationReroute,
			wantRole: "treasury",
		},
		{
			name: "conjunctive set fails on one unsatisfied condition",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGte, Value: 1000, Action: workflow.ConditionRequire},
				{FieldPath: "vendor.status", Operator: workflow.OperatorEq, Value: "new", Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{
				"total_amount": 2000,
				"vendor":       map[string]interface{}{"status": "approved"},
			},
			want: ActivationSkip,
		},
		{
			name: "nested dot path resolves",
			conditions: []workflow.Condition{
				{FieldPath: "vendor.status", Operator: workflow.OperatorEq, Value: "new", Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{
				"vendor": map[string]interface{}{"status": "new"},
			},
			want: ActivationActivate,
		},
		{
			name: "missing field is null and fails comparison",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 0, Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{},
			want:   ActivationSkip,
		},
		{
			name: "is_empty matches missing field",
			conditions: []workflow.Condition{
				{FieldPath: "cost_center", Operator: workflow.OperatorIsEmpty, Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{},
			want:   ActivationActivate,
		},
		{
			name: "non-numeric value fails ordering without error",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGt, Value: 5000, Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{"total_amount": "a lot"},
			want:   ActivationSkip,
		},
		{
			name: "numeric string coerces for ordering",
			conditions: []workflow.Condition{
				{FieldPath: "total_amount", Operator: workflow.OperatorGte, Value: "5000", Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{"total_amount": 5000.0},
			want:   ActivationActivate,
		},
		{
			name: "in operator matches membership",
			conditions: []workflow.Condition{
				{FieldPath: "category", Operator: workflow.OperatorIn, Value: []interface{}{"capex", "opex"}, Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{"category": "capex"},
			want:   ActivationActivate,
		},
		{
			name: "contains is case-insensitive",
			conditions: []workflow.Condition{
				{FieldPath: "description", Operator: workflow.OperatorContains, Value: "URGENT", Action: workflow.ConditionRequire},
			},
			fields: map[string]interface{}{"description": "please treat as urgent"},
			want:   ActivationActivate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := &workflow.Step{ID: "s1", Order: 1, Conditions: tt.conditions}
			decision, err := EvaluateStep(step, tt.fields)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Result != tt.want {
				t.Errorf("expected %s, got %s", tt.want, decision.Result)
			}
			if tt.wantRole != "" && decision.RouteToRole != tt.wantRole {
				t.Errorf("expected route role %q, got %q", tt.wantRole, decision.RouteToRole)
			}
		})
	}
}

func TestEvaluateStepConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cond workflow.Condition
	}{
		{
			name: "malformed field path",
			cond: workflow.Condition{FieldPath: "vendor..status", Operator: workflow.OperatorEq, Value: "x", Action: workflow.ConditionRequire},
		},
		{
			name: "unknown operator",
			cond: workflow.Condition{FieldPath: "total_amount", Operator: "between", Value: 1, Action: workflow.ConditionRequire},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := &workflow.Step{ID: "s1", Order: 1, Conditions: []workflow.Condition{tt.cond}}
			_, err := EvaluateStep(step, map[string]interface{}{"total_amount": 1, "vendor": map[string]interface{}{}})
			if !errs.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
