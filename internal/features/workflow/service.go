package workflow

import (
	"context"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/audit"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestCounter is the slice of the request feature this service needs to
// enforce version immutability. Wired through an fx adapter in main.
type RequestCounter interface {
	CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error)
}

type WorkflowService interface {
	CreateDefinition(ctx context.Context, def WorkflowDefinition) (*WorkflowDefinition, error)
	UpdateDefinition(ctx context.Context, id string, def WorkflowDefinition) error
	ActivateVersion(ctx context.Context, entityType string, version int) error
	DeactivateVersion(ctx context.Context, id string) error
	DeleteDefinition(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*WorkflowDefinition, error)
	GetActive(ctx context.Context, entityType string) (*WorkflowDefinition, error)
	ListDefinitions(ctx context.Context) ([]WorkflowDefinition, error)
	ListVersions(ctx context.Context, entityType string) ([]WorkflowDefinition, error)
}

type WorkflowServiceImpl struct {
	Repo         WorkflowRepository
	Requests     RequestCounter
	AuditService audit.AuditService
}

func NewWorkflowService(repo WorkflowRepository, requests RequestCounter, auditService audit.AuditService) WorkflowService {
	return &WorkflowServiceImpl{
		Repo:         repo,
		Requests:     requests,
		AuditService: auditService,
	}
}

// CreateDefinition stores a new definition as the next version for its
// entity type. New versions start inactive; activation is an explicit call.
func (s *WorkflowServiceImpl) CreateDefinition(ctx context.Context, def WorkflowDefinition) (*WorkflowDefinition, error) {
	for i := range def.Steps {
		if def.Steps[i].ID == "" {
			def.Steps[i].ID = uuid.NewString()
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	latest, err := s.Repo.LatestVersion(ctx, def.EntityType)
	if err != nil {
		return nil, err
	}

	def.ID = primitive.NewObjectID()
	def.Version = latest + 1
	def.IsActive = false
	def.CreatedAt = time.Now()
	def.UpdatedAt = def.CreatedAt

	if err := s.Repo.Create(ctx, &def); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_definitions", def.ID.Hex(), map[string]common_models.Change{
		"entity_type": {New: def.EntityType},
		"version":     {New: def.Version},
	})

	return &def, nil
}

// UpdateDefinition rewrites name and steps of an existing version. A version
// referenced by any request is frozen; edits must create a new version.
func (s *WorkflowServiceImpl) UpdateDefinition(ctx context.Context, id string, def WorkflowDefinition) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return errs.ErrNotFound
	}

	count, err := s.Requests.CountByWorkflow(ctx, existing.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errs.ErrDefinitionInUse
	}

	for i := range def.Steps {
		if def.Steps[i].ID == "" {
			def.Steps[i].ID = uuid.NewString()
		}
	}

	def.ID = existing.ID
	def.EntityType = existing.EntityType
	def.Version = existing.Version
	if err := def.Validate(); err != nil {
		return err
	}

	if err := s.Repo.Update(ctx, &def); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_definitions", id, map[string]common_models.Change{
		"steps": {Old: existing.Steps, New: def.Steps},
	})
	return nil
}

// ActivateVersion makes one version the active one for its entity type and
// deactivates every sibling. A definition that fails validation never
// activates.
func (s *WorkflowServiceImpl) ActivateVersion(ctx context.Context, entityType string, version int) error {
	def, err := s.Repo.GetByEntityTypeAndVersion(ctx, entityType, version)
	if err != nil {
		return err
	}
	if def == nil {
		return errs.ErrNotFound
	}

	if err := def.Validate(); err != nil {
		return err
	}

	if err := s.Repo.Activate(ctx, entityType, def.ID); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_definitions", def.ID.Hex(), map[string]common_models.Change{
		"is_active": {Old: false, New: true},
		"version":   {New: version},
	})
	return nil
}

func (s *WorkflowServiceImpl) DeactivateVersion(ctx context.Context, id string) error {
	def, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if def == nil {
		return errs.ErrNotFound
	}
	if err := s.Repo.Deactivate(ctx, def.ID); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_definitions", id, map[string]common_models.Change{
		"is_active": {Old: def.IsActive, New: false},
	})
	return nil
}

// DeleteDefinition removes a version that no request has ever referenced.
func (s *WorkflowServiceImpl) DeleteDefinition(ctx context.Context, id string) error {
	def, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if def == nil {
		return errs.ErrNotFound
	}

	count, err := s.Requests.CountByWorkflow(ctx, def.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errs.ErrDefinitionInUse
	}

	if err := s.Repo.Delete(ctx, def.ID); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_definitions", id, map[string]common_models.Change{
		"definition": {Old: def, New: "DELETED"},
	})
	return nil
}

func (s *WorkflowServiceImpl) GetByID(ctx context.Context, id string) (*WorkflowDefinition, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) GetActive(ctx context.Context, entityType string) (*WorkflowDefinition, error) {
	return s.Repo.GetActiveByEntityType(ctx, entityType)
}

func (s *WorkflowServiceImpl) ListDefinitions(ctx context.Context) ([]WorkflowDefinition, error) {
	return s.Repo.List(ctx)
}

func (s *WorkflowServiceImpl) ListVersions(ctx context.Context, entityType string) ([]WorkflowDefinition, error) {
	return s.Repo.ListVersions(ctx, entityType)
}
