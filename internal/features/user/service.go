package user

import (
	"context"
	"errors"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages directory accounts. The ListActiveUsersWithRole,
// IsUserActive and ManagerOf methods serve the approval engine's directory
// lookups; the rest is account administration.
type UserService interface {
	ListUsers(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.User, int64, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id string, updates map[string]interface{}) error
	UpdateUserStatus(ctx context.Context, id string, status string) error
	DeleteUser(ctx context.Context, id string) error

	ListActiveUsersWithRole(ctx context.Context, role string) ([]string, error)
	IsUserActive(ctx context.Context, userID string) (bool, error)
	ManagerOf(ctx context.Context, userID string) (string, error)
}

type UserServiceImpl struct {
	UserRepo     UserRepository
	AuditService audit.AuditService
}

func NewUserService(userRepo UserRepository, auditService audit.AuditService) UserService {
	return &UserServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
	}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.User, int64, error) {
	if filter == nil {
		filter = make(map[string]interface{})
	}

	offset := (page - 1) * limit
	return s.UserRepo.List(ctx, filter, limit, offset)
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()

	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	if user.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.Password = string(hashed)
	}

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"username": {New: user.Username},
		"email":    {New: user.Email},
		"roles":    {New: user.Roles},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "users", user.ID.Hex(), changes)

	return nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) error {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return errs.ErrNotFound
	}

	changes := make(map[string]models.Change)

	if username, ok := updates["username"].(string); ok && username != user.Username {
		changes["username"] = models.Change{Old: user.Username, New: username}
		user.Username = username
	}
	if email, ok := updates["email"].(string); ok && email != user.Email {
		changes["email"] = models.Change{Old: user.Email, New: email}
		user.Email = email
	}
	if firstName, ok := updates["first_name"].(string); ok && firstName != user.FirstName {
		changes["first_name"] = models.Change{Old: user.FirstName, New: firstName}
		user.FirstName = firstName
	}
	if lastName, ok := updates["last_name"].(string); ok && lastName != user.LastName {
		changes["last_name"] = models.Change{Old: user.LastName, New: lastName}
		user.LastName = lastName
	}
	if managerID, ok := updates["manager_id"].(string); ok && managerID != user.ManagerID {
		changes["manager_id"] = models.Change{Old: user.ManagerID, New: managerID}
		user.ManagerID = managerID
	}
	if roles, ok := updates["roles"].([]interface{}); ok {
		var newRoles []string
		for _, r := range roles {
			if str, ok := r.(string); ok {
				newRoles = append(newRoles, str)
			}
		}
		changes["roles"] = models.Change{Old: user.Roles, New: newRoles}
		user.Roles = newRoles
	}

	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Update(ctx, id, user); err != nil {
		return err
	}

	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "users", id, changes)
	}

	return nil
}

// UpdateUserStatus deactivates or restores an account. Deactivation takes the
// user out of every eligible approver set resolved from here on; already-open
// steps keep their resolved sets.
func (s *UserServiceImpl) UpdateUserStatus(ctx context.Context, id string, status string) error {
	switch status {
	case models.UserStatusActive, models.UserStatusInactive, models.UserStatusSuspended:
	default:
		return errors.New("invalid status: must be active, inactive, or suspended")
	}

	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return errs.ErrNotFound
	}

	changes := map[string]models.Change{
		"status": {Old: user.Status, New: status},
	}

	user.Status = status
	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Update(ctx, id, user); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "users", id, changes)
	return nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id string) error {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return errs.ErrNotFound
	}

	if err := s.UserRepo.Delete(ctx, id); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"deleted":  {Old: false, New: true},
		"username": {Old: user.Username, New: ""},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelete, "users", id, changes)

	return nil
}

func (s *UserServiceImpl) ListActiveUsersWithRole(ctx context.Context, role string) ([]string, error) {
	users, err := s.UserRepo.FindActiveByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.Hex())
	}
	return ids, nil
}

func (s *UserServiceImpl) IsUserActive(ctx context.Context, userID string) (bool, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user != nil && user.Status == models.UserStatusActive, nil
}

func (s *UserServiceImpl) ManagerOf(ctx context.Context, userID string) (string, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.ManagerID, nil
}
