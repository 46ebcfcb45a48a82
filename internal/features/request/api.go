package request

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RequestApi struct {
	controller  *RequestController
	roleService middleware.RoleService
	config      *config.Config
}

func NewRequestApi(controller *RequestController, roleService middleware.RoleService, config *config.Config) *RequestApi {
	return &RequestApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *RequestApi) Setup(app *fiber.App) {
	requests := app.Group("/api/requests", middleware.AuthMiddleware(h.config.SkipAuth))

	requests.Post("/", middleware.RequirePermission(h.roleService, "requests", "create"), h.controller.Submit)
	requests.Get("/", middleware.RequirePermission(h.roleService, "requests", "read"), h.controller.List)
	requests.Get("/pending", h.controller.PendingForMe)
	requests.Get("/:id", middleware.RequirePermission(h.roleService, "requests", "read"), h.controller.Get)
	requests.Get("/:id/history", middleware.RequirePermission(h.roleService, "requests", "read"), h.controller.History)
	requests.Post("/:id/actions", h.controller.RecordAction)
	requests.Post("/:id/cancel", middleware.RequirePermission(h.roleService, "requests", "cancel"), h.controller.Cancel)
	requests.Post("/:id/reevaluate", middleware.RequirePermission(h.roleService, "requests", "admin"), h.controller.Reevaluate)
	requests.Post("/:id/escalate", middleware.RequirePermission(h.roleService, "requests", "admin"), h.controller.Escalate)
}
