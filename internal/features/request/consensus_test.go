package request

import (
	"testing"

	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"
)

func intPtr(v int) *int { return &v }

func approveBy(actor string) Action {
	return Action{ActorID: actor, Decision: DecisionApprove}
}

func rejectBy(actor string) Action {
	return Action{ActorID: actor, Decision: DecisionReject}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		step     *workflow.Step
		eligible []string
		actions  []Action
		want     Verdict
	}{
		{
			name:     "any satisfied by single approval",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAny},
			eligible: []string{"u1", "u2", "u3"},
			actions:  []Action{approveBy("u2")},
			want:     VerdictSatisfied,
		},
		{
			name:     "any pending with no actions",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAny},
			eligible: []string{"u1"},
			actions:  nil,
			want:     VerdictPending,
		},
		{
			name:     "all pending until every approver acts",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAll},
			eligible: []string{"u1", "u2", "u3"},
			actions:  []Action{approveBy("u1"), approveBy("u2")},
			want:     VerdictPending,
		},
		{
			name:     "all satisfied when the set is complete",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAll},
			eligible: []string{"u1", "u2", "u3"},
			actions:  []Action{approveBy("u1"), approveBy("u2"), approveBy("u3")},
			want:     VerdictSatisfied,
		},
		{
			name:     "single reject vetoes an all step",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAll},
			eligible: []string{"u1", "u2", "u3"},
			actions:  []Action{approveBy("u1"), rejectBy("u2")},
			want:     VerdictRejected,
		},
		{
			name:     "single reject vetoes an any step before approval",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAny},
			eligible: []string{"u1", "u2"},
			actions:  []Action{rejectBy("u1")},
			want:     VerdictRejected,
		},
		{
			name:     "percentage boundary two of four at fifty percent",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypePercentage, RequiredPercentage: intPtr(50)},
			eligible: []string{"u1", "u2", "u3", "u4"},
			actions:  []Action{approveBy("u1"), approveBy("u2")},
			want:     VerdictSatisfied,
		},
		{
			name:     "percentage below threshold is pending",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypePercentage, RequiredPercentage: intPtr(50)},
			eligible: []string{"u1", "u2", "u3", "u4"},
			actions:  []Action{approveBy("u1")},
			want:     VerdictPending,
		},
		{
			name:     "percentage reject still vetoes",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypePercentage, RequiredPercentage: intPtr(50)},
			eligible: []string{"u1", "u2", "u3", "u4"},
			actions:  []Action{approveBy("u1"), approveBy("u2"), rejectBy("u3")},
			want:     VerdictRejected,
		},
		{
			name:     "latest action per actor wins",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAll},
			eligible: []string{"u1"},
			actions:  []Action{rejectBy("u1"), approveBy("u1")},
			want:     VerdictSatisfied,
		},
		{
			name:     "actions from outside the eligible set are ignored",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAny},
			eligible: []string{"u1"},
			actions:  []Action{approveBy("u9")},
			want:     VerdictPending,
		},
		{
			name:     "duplicate approvals count once",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAll},
			eligible: []string{"u1", "u2"},
			actions:  []Action{approveBy("u1"), approveBy("u1")},
			want:     VerdictPending,
		},
		{
			name:     "system auto approve short-circuits",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAll},
			eligible: []string{"u1", "u2"},
			actions:  []Action{approveBy("u1"), {ActorID: SystemActorID, Decision: DecisionAutoApprove}},
			want:     VerdictSatisfied,
		},
		{
			name:     "system auto reject short-circuits",
			step:     &workflow.Step{ApprovalType: workflow.ApprovalTypeAny},
			eligible: []string{"u1"},
			actions:  []Action{{ActorID: SystemActorID, Decision: DecisionAutoReject}, approveBy("u1")},
			want:     VerdictRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.step, tt.eligible, tt.actions); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAggregateIsReplayStable(t *testing.T) {
	step := &workflow.Step{ApprovalType: workflow.ApprovalTypePercentage, RequiredPercentage: intPtr(50)}
	eligible := []string{"u1", "u2", "u3", "u4"}
	actions := []Action{approveBy("u1"), rejectBy("u2"), approveBy("u2"), approveBy("u3")}

	first := Aggregate(step, eligible, actions)
	for i := 0; i < 10; i++ {
		if got := Aggregate(step, eligible, actions); got != first {
			t.Fatalf("replay %d diverged: %s vs %s", i, got, first)
		}
	}
	if first != VerdictSatisfied {
		t.Errorf("expected satisfied after u2 changed to approve, got %s", first)
	}
}
