package main

import (
	"context"
	"errors"
	"log"
	"time"

	common_models "github.com/NCGHoldings/StoresONE-sub000/internal/common/models"
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/database"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/role"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/user"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

// Seed schedules the seeding run after the fx app starts and shuts the app
// down when it finishes.
func Seed(
	lc fx.Lifecycle,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	workflowRepo workflow.WorkflowRepository,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				runSeed(roleRepo, userRepo, workflowRepo)
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func runSeed(roleRepo role.RoleRepository, userRepo user.UserRepository, workflowRepo workflow.WorkflowRepository) {
	ctx := context.Background()

	log.Println("Starting Database Seeding...")

	// 1. Roles
	roles := []role.Role{
		{
			Name:        "admin",
			Description: "Full access to every resource",
			Permissions: map[string]map[string]bool{
				"*": {"*": true},
			},
			IsSystem: true,
		},
		{
			Name:        "employee",
			Description: "Submits approval requests",
			Permissions: map[string]map[string]bool{
				"requests":      {"create": true, "read": true, "cancel": true},
				"notifications": {"read": true},
			},
			IsSystem: true,
		},
		{
			Name:        "finance_manager",
			Description: "Approves finance documents",
			Permissions: map[string]map[string]bool{
				"requests":      {"read": true},
				"workflows":     {"read": true},
				"notifications": {"read": true},
			},
		},
		{
			Name:        "cfo",
			Description: "Final approver for high value documents",
			Permissions: map[string]map[string]bool{
				"requests":      {"read": true},
				"workflows":     {"read": true},
				"notifications": {"read": true},
			},
		},
	}

	for i := range roles {
		r := &roles[i]
		existing, err := roleRepo.FindByName(ctx, r.Name)
		if err != nil {
			log.Fatalf("Failed to look up role %s: %v", r.Name, err)
		}
		if existing != nil {
			log.Printf("Role %s exists, skipping", r.Name)
			continue
		}
		r.CreatedAt = time.Now()
		r.UpdatedAt = time.Now()
		if err := roleRepo.Create(ctx, r); err != nil {
			log.Fatalf("Failed to create role %s: %v", r.Name, err)
		}
		log.Printf("Role %s created", r.Name)
	}

	// 2. Admin user
	existing, err := userRepo.FindByUsername(ctx, "admin")
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		log.Fatalf("Failed to look up admin user: %v", err)
	}
	if existing != nil {
		log.Println("Admin user exists, skipping")
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		admin := &common_models.User{
			Username:  "admin",
			Email:     "admin@example.com",
			Password:  string(hash),
			FirstName: "System",
			LastName:  "Administrator",
			Roles:     []string{"admin"},
			Status:    "active",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			log.Fatalf("Failed to create admin user: %v", err)
		}
		log.Println("Admin user created (username: admin, password: admin123)")
	}

	// 3. Sample workflow definition
	if existing, err := workflowRepo.GetActiveByEntityType(ctx, "purchase_requisition"); err != nil {
		log.Fatalf("Failed to look up sample workflow: %v", err)
	} else if existing != nil {
		log.Println("Sample workflow exists, skipping")
	} else {
		pct := 50
		timeout := 48
		def := &workflow.WorkflowDefinition{
			EntityType: "purchase_requisition",
			Version:    1,
			Name:       "Purchase Requisition Approval",
			IsActive:   true,
			Steps: []workflow.Step{
				{
					ID:           "step-manager",
					Name:         "Manager Review",
					Order:        1,
					ApprovalType: workflow.ApprovalTypeAny,
					CanSkip:      true,
					Approvers: []workflow.ApproverSpec{
						{Type: workflow.ApproverTypeSubmitterManager},
					},
				},
				{
					ID:                 "step-finance",
					Name:               "Finance Review",
					Order:              2,
					ApprovalType:       workflow.ApprovalTypePercentage,
					RequiredPercentage: &pct,
					TimeoutHours:       &timeout,
					EscalationAction:   workflow.EscalationRouteToRole,
					EscalationRole:     "cfo",
					Approvers: []workflow.ApproverSpec{
						{Type: workflow.ApproverTypeRole, Value: "finance_manager"},
					},
					Conditions: []workflow.Condition{
						{
							FieldPath: "total_amount",
							Operator:  workflow.OperatorGt,
							Value:     5000,
							Action:    workflow.ConditionRequire,
						},
					},
				},
				{
					ID:           "step-cfo",
					Name:         "CFO Sign-off",
					Order:        3,
					ApprovalType: workflow.ApprovalTypeAny,
					Approvers: []workflow.ApproverSpec{
						{Type: workflow.ApproverTypeRole, Value: "cfo"},
					},
					Conditions: []workflow.Condition{
						{
							FieldPath: "total_amount",
							Operator:  workflow.OperatorGt,
							Value:     50000,
							Action:    workflow.ConditionRequire,
						},
					},
				},
			},
			CreatedBy: "seed",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := workflowRepo.Create(ctx, def); err != nil {
			log.Fatalf("Failed to create sample workflow: %v", err)
		}
		log.Println("Sample workflow created for purchase_requisition")
	}

	log.Println("Seeding complete")
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app := fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			database.NewDatabase,
			role.NewRoleRepository,
			user.NewUserRepository,
			workflow.NewWorkflowRepository,
		),
		fx.Invoke(Seed),
	)

	app.Run()
}
