package role

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RoleApi struct {
	controller  *RoleController
	roleService middleware.RoleService
	config      *config.Config
}

func NewRoleApi(controller *RoleController, roleService middleware.RoleService, config *config.Config) *RoleApi {
	return &RoleApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *RoleApi) Setup(app *fiber.App) {
	roles := app.Group("/api/roles", middleware.AuthMiddleware(h.config.SkipAuth))

	roles.Post("/", middleware.RequirePermission(h.roleService, "roles", "create"), h.controller.CreateRole)
	roles.Get("/", middleware.RequirePermission(h.roleService, "roles", "read"), h.controller.ListRoles)
	roles.Get("/:id", middleware.RequirePermission(h.roleService, "roles", "read"), h.controller.GetRole)
	roles.Put("/:id", middleware.RequirePermission(h.roleService, "roles", "update"), h.controller.UpdateRole)
	roles.Delete("/:id", middleware.RequirePermission(h.roleService, "roles", "delete"), h.controller.DeleteRole)
}
