package role

import (
	"context"
	"fmt"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleService manages named permission sets. CheckPermission satisfies the
// middleware's interface and is called on every guarded route.
type RoleService interface {
	CreateRole(ctx context.Context, role *Role) (*Role, error)
	GetRoleByID(ctx context.Context, id string) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id string, role *Role) error
	DeleteRole(ctx context.Context, id string) error
	CheckPermission(ctx context.Context, roleNames []string, resource, action string) (bool, error)
}

type RoleServiceImpl struct {
	RoleRepo     RoleRepository
	AuditService audit.AuditService
}

func NewRoleService(roleRepo RoleRepository, auditService audit.AuditService) RoleService {
	return &RoleServiceImpl{
		RoleRepo:     roleRepo,
		AuditService: auditService,
	}
}

func (s *RoleServiceImpl) CreateRole(ctx context.Context, role *Role) (*Role, error) {
	existing, err := s.RoleRepo.FindByName(ctx, role.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("role %q already exists", role.Name)
	}

	role.ID = primitive.NewObjectID()
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt

	if role.Permissions == nil {
		role.Permissions = make(map[string]map[string]bool)
	}

	if err := s.RoleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "roles", role.ID.Hex(), map[string]common_models.Change{
		"name": {New: role.Name},
	})

	return role, nil
}

func (s *RoleServiceImpl) GetRoleByID(ctx context.Context, id string) (*Role, error) {
	return s.RoleRepo.FindByID(ctx, id)
}

func (s *RoleServiceImpl) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.RoleRepo.FindByName(ctx, name)
}

func (s *RoleServiceImpl) ListRoles(ctx context.Context) ([]Role, error) {
	return s.RoleRepo.List(ctx)
}

func (s *RoleServiceImpl) UpdateRole(ctx context.Context, id string, role *Role) error {
	existing, err := s.RoleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return errs.ErrNotFound
	}

	role.UpdatedAt = time.Now()
	if err := s.RoleRepo.Update(ctx, id, role); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "roles", id, map[string]common_models.Change{
		"permissions": {Old: existing.Permissions, New: role.Permissions},
	})

	return nil
}

func (s *RoleServiceImpl) DeleteRole(ctx context.Context, id string) error {
	role, err := s.RoleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return errs.ErrNotFound
	}
	if role.IsSystem {
		return fmt.Errorf("cannot delete system role %q", role.Name)
	}

	if err := s.RoleRepo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "roles", id, map[string]common_models.Change{
		"name": {Old: role.Name},
	})

	return nil
}

// CheckPermission grants when any of the user's roles allows the action.
func (s *RoleServiceImpl) CheckPermission(ctx context.Context, roleNames []string, resource, action string) (bool, error) {
	roles, err := s.RoleRepo.FindByNames(ctx, roleNames)
	if err != nil {
		return false, err
	}
	for i := range roles {
		if roles[i].Allows(resource, action) {
			return true, nil
		}
	}
	return false, nil
}
