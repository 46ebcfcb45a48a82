package user

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller  *UserController
	roleService middleware.RoleService
	config      *config.Config
}

func NewUserApi(controller *UserController, roleService middleware.RoleService, config *config.Config) *UserApi {
	return &UserApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))

	users.Get("/", middleware.RequirePermission(h.roleService, "users", "read"), h.controller.ListUsers)
	users.Post("/", middleware.RequirePermission(h.roleService, "users", "create"), h.controller.CreateUser)
	users.Get("/:id", middleware.RequirePermission(h.roleService, "users", "read"), h.controller.GetUser)
	users.Put("/:id", middleware.RequirePermission(h.roleService, "users", "update"), h.controller.UpdateUser)
	users.Patch("/:id/status", middleware.RequirePermission(h.roleService, "users", "update"), h.controller.UpdateUserStatus)
	users.Delete("/:id", middleware.RequirePermission(h.roleService, "users", "delete"), h.controller.DeleteUser)
}
