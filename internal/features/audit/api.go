package audit

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller  *AuditController
	config      *config.Config
	roleService middleware.RoleService
}

func NewAuditApi(controller *AuditController, config *config.Config, roleService middleware.RoleService) *AuditApi {
	return &AuditApi{
		controller:  controller,
		config:      config,
		roleService: roleService,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	audit := app.Group("/api/audit-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	audit.Get("/", middleware.RequirePermission(h.roleService, "audit_logs", "read"), h.controller.ListLogs)
}
