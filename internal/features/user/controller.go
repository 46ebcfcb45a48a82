package user

import (
	"errors"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	Service UserService
}

func NewUserController(service UserService) *UserController {
	return &UserController{Service: service}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Param role query string false "Filter by role name"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Router /api/users [get]
func (c *UserController) ListUsers(ctx *fiber.Ctx) error {
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))

	filter := map[string]interface{}{}
	if role := ctx.Query("role"); role != "" {
		filter["roles"] = role
	}
	if status := ctx.Query("status"); status != "" {
		filter["status"] = status
	}

	users, total, err := c.Service.ListUsers(ctx.UserContext(), filter, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUser godoc
// @Summary Get a user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string
// @Router /api/users/{id} [get]
func (c *UserController) GetUser(ctx *fiber.Ctx) error {
	user, err := c.Service.GetUserByID(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if user == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return ctx.JSON(user)
}

// CreateUser godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.User true "User"
// @Success 201 {object} models.User
// @Router /api/users [post]
func (c *UserController) CreateUser(ctx *fiber.Ctx) error {
	var user models.User
	if err := ctx.BodyParser(&user); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.CreateUser(ctx.UserContext(), &user); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser godoc
// @Summary Update user fields
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param updates body map[string]interface{} true "Field updates"
// @Success 200 {object} map[string]string
// @Router /api/users/{id} [put]
func (c *UserController) UpdateUser(ctx *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := ctx.BodyParser(&updates); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateUser(ctx.UserContext(), ctx.Params("id"), updates); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "User updated successfully"})
}

// UpdateUserStatus godoc
// @Summary Activate, deactivate or suspend a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string
// @Router /api/users/{id}/status [patch]
func (c *UserController) UpdateUserStatus(ctx *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateUserStatus(ctx.UserContext(), ctx.Params("id"), body.Status); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "User status updated"})
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags users
// @Param id path string true "User ID"
// @Success 204 {object} nil "No Content"
// @Router /api/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteUser(ctx.UserContext(), ctx.Params("id")); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
