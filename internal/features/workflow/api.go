package workflow

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller  *WorkflowController
	roleService middleware.RoleService
	config      *config.Config
}

func NewWorkflowApi(controller *WorkflowController, roleService middleware.RoleService, config *config.Config) *WorkflowApi {
	return &WorkflowApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	workflows := app.Group("/api/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	workflows.Post("/", middleware.RequirePermission(h.roleService, "workflows", "create"), h.controller.CreateDefinition)
	workflows.Get("/", middleware.RequirePermission(h.roleService, "workflows", "read"), h.controller.ListDefinitions)
	workflows.Get("/active/:entityType", middleware.RequirePermission(h.roleService, "workflows", "read"), h.controller.GetActive)
	workflows.Get("/:entityType/versions", middleware.RequirePermission(h.roleService, "workflows", "read"), h.controller.ListVersions)
	workflows.Post("/:entityType/versions/:version/activate", middleware.RequirePermission(h.roleService, "workflows", "update"), h.controller.ActivateVersion)
	workflows.Get("/:id", middleware.RequirePermission(h.roleService, "workflows", "read"), h.controller.GetDefinition)
	workflows.Put("/:id", middleware.RequirePermission(h.roleService, "workflows", "update"), h.controller.UpdateDefinition)
	workflows.Post("/:id/deactivate", middleware.RequirePermission(h.roleService, "workflows", "update"), h.controller.DeactivateVersion)
	workflows.Delete("/:id", middleware.RequirePermission(h.roleService, "workflows", "delete"), h.controller.DeleteDefinition)
}
