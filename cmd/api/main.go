package main

import (
	"context"
	"fmt"
	"log"

	common_api "github.com/NCGHoldings/StoresONE-sub000/internal/common/api"
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/database"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/audit"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/auth"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/notification"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/request"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/role"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/system"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/user"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"
	"github.com/NCGHoldings/StoresONE-sub000/internal/logger"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"
	"github.com/NCGHoldings/StoresONE-sub000/pkg/utils"

	_ "github.com/NCGHoldings/StoresONE-sub000/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// @title           Approval Workflow Engine API
// @version         1.0
// @description     Configurable approval workflows for ERP documents: versioned definitions, conditional steps, consensus policies and deadline escalation.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			user.NewUserRepository,
			role.NewRoleRepository,
			workflow.NewWorkflowRepository,
			request.NewRequestRepository,
			request.NewActionRepository,
			notification.NewNotificationRepository,

			audit.NewAuditService,
			auth.NewAuthService,
			role.NewRoleService,
			user.NewUserService,
			workflow.NewWorkflowService,
			request.NewApproverResolver,
			request.NewRequestService,
			request.NewEscalationClock,
			notification.NewHub,
			notification.NewNotificationService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s role.RoleService) middleware.RoleService { return s },
			func(r user.UserRepository) audit.UserFinder { return r },
			func(s user.UserService) request.Directory { return s },
			func(s notification.NotificationService) request.Notifier { return s },
			func(r request.RequestRepository) workflow.RequestCounter { return r },
			func(r workflow.WorkflowRepository) request.DefinitionSource { return r },

			// Initialize Controller
			auth.NewAuthController,
			role.NewRoleController,
			user.NewUserController,
			audit.NewAuditController,
			workflow.NewWorkflowController,
			request.NewRequestController,
			notification.NewNotificationController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(role.NewRoleApi),
			AsRoute(user.NewUserApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(request.NewRequestApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, clock *request.EscalationClock) {
				lc.Append(fx.Hook{
					OnStart: clock.Start,
					OnStop:  clock.Stop,
				})
			},
		),
	)

	app.Run()
}
