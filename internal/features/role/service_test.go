package role

import (
	"context"
	"testing"

	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRoleRepo struct {
	roles []Role
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *Role) error {
	r.roles = append(r.roles, *role)
	return nil
}

func (r *fakeRoleRepo) FindByID(ctx context.Context, id string) (*Role, error) {
	for i := range r.roles {
		if r.roles[i].ID.Hex() == id {
			return &r.roles[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) FindByName(ctx context.Context, name string) (*Role, error) {
	for i := range r.roles {
		if r.roles[i].Name == name {
			return &r.roles[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) FindByNames(ctx context.Context, names []string) ([]Role, error) {
	var out []Role
	for _, n := range names {
		for i := range r.roles {
			if r.roles[i].Name == n {
				out = append(out, r.roles[i])
			}
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) List(ctx context.Context) ([]Role, error) { return r.roles, nil }

func (r *fakeRoleRepo) Update(ctx context.Context, id string, role *Role) error { return nil }

func (r *fakeRoleRepo) Delete(ctx context.Context, id string) error { return nil }

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func TestRoleAllows(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		resource string
		action   string
		want     bool
	}{
		{
			name:     "explicit grant",
			role:     Role{Permissions: map[string]map[string]bool{"workflows": {"create": true}}},
			resource: "workflows",
			action:   "create",
			want:     true,
		},
		{
			name:     "missing action denied",
			role:     Role{Permissions: map[string]map[string]bool{"workflows": {"read": true}}},
			resource: "workflows",
			action:   "delete",
			want:     false,
		},
		{
			name:     "action wildcard on resource",
			role:     Role{Permissions: map[string]map[string]bool{"requests": {"*": true}}},
			resource: "requests",
			action:   "cancel",
			want:     true,
		},
		{
			name:     "global wildcard",
			role:     Role{Permissions: map[string]map[string]bool{"*": {"*": true}}},
			resource: "anything",
			action:   "delete",
			want:     true,
		},
		{
			name:     "empty permissions denied",
			role:     Role{},
			resource: "workflows",
			action:   "read",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Allows(tt.resource, tt.action); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCheckPermissionAcrossRoles(t *testing.T) {
	repo := &fakeRoleRepo{roles: []Role{
		{ID: primitive.NewObjectID(), Name: "viewer", Permissions: map[string]map[string]bool{"requests": {"read": true}}},
		{ID: primitive.NewObjectID(), Name: "approver", Permissions: map[string]map[string]bool{"requests": {"read": true, "create": true}}},
	}}
	svc := NewRoleService(repo, nopAudit{})

	ok, err := svc.CheckPermission(context.Background(), []string{"viewer", "approver"}, "requests", "create")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected grant from the approver role")
	}

	ok, _ = svc.CheckPermission(context.Background(), []string{"viewer"}, "requests", "create")
	if ok {
		t.Error("expected denial for viewer alone")
	}

	ok, _ = svc.CheckPermission(context.Background(), []string{"unknown"}, "requests", "read")
	if ok {
		t.Error("expected denial for unknown role")
	}
}
