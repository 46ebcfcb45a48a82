package request

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"

	"go.uber.org/zap"
)

type fakeDirectory struct {
	roleMembers map[string][]string
	active      map[string]bool
	managers    map[string]string
}

func (d *fakeDirectory) ListActiveUsersWithRole(ctx context.Context, role string) ([]string, error) {
	return d.roleMembers[role], nil
}

func (d *fakeDirectory) IsUserActive(ctx context.Context, userID string) (bool, error) {
	return d.active[userID], nil
}

func (d *fakeDirectory) ManagerOf(ctx context.Context, userID string) (string, error) {
	return d.managers[userID], nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		roleMembers: map[string][]string{
			"finance_manager": {"fin1", "fin2"},
			"cfo":             {"cfo1"},
		},
		active: map[string]bool{
			"fin1": true, "fin2": true, "cfo1": true,
			"u-direct": true, "mgr1": true,
			"u-inactive": false, "mgr-inactive": false,
		},
		managers: map[string]string{
			"emp1": "mgr1",
			"emp2": "mgr-inactive",
		},
	}
}

func TestResolveUnionsAndDeduplicates(t *testing.T) {
	resolver := NewApproverResolver(testDirectory(), zap.NewNop())

	specs := []workflow.ApproverSpec{
		{Type: workflow.ApproverTypeRole, Value: "finance_manager"},
		{Type: workflow.ApproverTypeUser, Value: "fin1"}, // already in role set
		{Type: workflow.ApproverTypeUser, Value: "u-direct"},
		{Type: workflow.ApproverTypeSubmitterManager},
	}

	got, err := resolver.Resolve(context.Background(), specs, "emp1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"fin1", "fin2", "mgr1", "u-direct"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDropsInactiveUsers(t *testing.T) {
	resolver := NewApproverResolver(testDirectory(), zap.NewNop())

	specs := []workflow.ApproverSpec{
		{Type: workflow.ApproverTypeUser, Value: "u-inactive"},
		{Type: workflow.ApproverTypeUser, Value: "u-direct"},
	}

	got, err := resolver.Resolve(context.Background(), specs, "emp1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"u-direct"}) {
		t.Errorf("expected inactive user dropped, got %v", got)
	}
}

func TestResolveEmptySetIsError(t *testing.T) {
	resolver := NewApproverResolver(testDirectory(), zap.NewNop())

	tests := []struct {
		name        string
		specs       []workflow.ApproverSpec
		submittedBy string
	}{
		{
			name:        "role with no members",
			specs:       []workflow.ApproverSpec{{Type: workflow.ApproverTypeRole, Value: "nonexistent_role"}},
			submittedBy: "emp1",
		},
		{
			name:        "only inactive users",
			specs:       []workflow.ApproverSpec{{Type: workflow.ApproverTypeUser, Value: "u-inactive"}},
			submittedBy: "emp1",
		},
		{
			name:        "submitter without manager",
			specs:       []workflow.ApproverSpec{{Type: workflow.ApproverTypeSubmitterManager}},
			submittedBy: "orphan",
		},
		{
			name:        "submitter with inactive manager",
			specs:       []workflow.ApproverSpec{{Type: workflow.ApproverTypeSubmitterManager}},
			submittedBy: "emp2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.specs, tt.submittedBy)
			if !errors.Is(err, errs.ErrNoEligibleApprovers) {
				t.Fatalf("expected ErrNoEligibleApprovers, got %v", err)
			}
		})
	}
}
