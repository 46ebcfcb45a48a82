package auth

import (
	"context"
	"errors"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/audit"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/user"
	"github.com/NCGHoldings/StoresONE-sub000/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthServiceImpl struct {
	UserRepo     user.UserRepository
	AuditService audit.AuditService
}

func NewAuthService(userRepo user.UserRepository, auditService audit.AuditService) AuthService {
	return &AuthServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newUser := models.User{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Password:  string(hashed),
		Email:     email,
		Status:    models.UserStatusActive,
		Roles:     []string{"employee"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.UserRepo.Create(ctx, &newUser); err != nil {
		return nil, err
	}

	changes := map[string]models.Change{
		"username": {New: username},
		"email":    {New: email},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "users", newUser.ID.Hex(), changes)

	return &newUser, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	usr, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", errors.New("invalid credentials")
	}

	if bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte(password)) != nil {
		return "", errors.New("invalid credentials")
	}

	switch usr.Status {
	case models.UserStatusSuspended:
		return "", errors.New("account suspended")
	case models.UserStatusInactive:
		return "", errors.New("account inactive")
	}

	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}

	token, err := utils.GenerateToken(usr.ID, roles)
	if err != nil {
		return "", err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionLogin, "users", usr.ID.Hex(), nil)

	return token, nil
}
