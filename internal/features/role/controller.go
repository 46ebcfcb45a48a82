package role

import (
	"errors"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"

	"github.com/gofiber/fiber/v2"
)

type RoleController struct {
	Service RoleService
}

func NewRoleController(service RoleService) *RoleController {
	return &RoleController{Service: service}
}

// CreateRole godoc
// @Summary Create a role
// @Tags roles
// @Accept json
// @Produce json
// @Param role body Role true "Role"
// @Success 201 {object} Role
// @Router /api/roles [post]
func (c *RoleController) CreateRole(ctx *fiber.Ctx) error {
	var role Role
	if err := ctx.BodyParser(&role); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	created, err := c.Service.CreateRole(ctx.UserContext(), &role)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(created)
}

// ListRoles godoc
// @Summary List roles
// @Tags roles
// @Produce json
// @Success 200 {array} Role
// @Router /api/roles [get]
func (c *RoleController) ListRoles(ctx *fiber.Ctx) error {
	roles, err := c.Service.ListRoles(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(roles)
}

// GetRole godoc
// @Summary Get a role by ID
// @Tags roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} Role
// @Failure 404 {object} map[string]string
// @Router /api/roles/{id} [get]
func (c *RoleController) GetRole(ctx *fiber.Ctx) error {
	role, err := c.Service.GetRoleByID(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if role == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Role not found"})
	}
	return ctx.JSON(role)
}

// UpdateRole godoc
// @Summary Update a role
// @Tags roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param role body Role true "Role"
// @Success 200 {object} map[string]string
// @Router /api/roles/{id} [put]
func (c *RoleController) UpdateRole(ctx *fiber.Ctx) error {
	var role Role
	if err := ctx.BodyParser(&role); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateRole(ctx.UserContext(), ctx.Params("id"), &role); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Role not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Role updated successfully"})
}

// DeleteRole godoc
// @Summary Delete a non-system role
// @Tags roles
// @Param id path string true "Role ID"
// @Success 204 {object} nil "No Content"
// @Router /api/roles/{id} [delete]
func (c *RoleController) DeleteRole(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteRole(ctx.UserContext(), ctx.Params("id")); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Role not found"})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
