package workflow

import (
	"errors"
	"strconv"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"

	"github.com/gofiber/fiber/v2"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrDefinitionInUse):
		return fiber.StatusConflict
	case errs.IsConfiguration(err):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// CreateDefinition godoc
// @Summary Create a workflow definition version
// @Description Stores a new definition as the next version for its entity type. New versions start inactive.
// @Tags workflows
// @Accept json
// @Produce json
// @Param definition body WorkflowDefinition true "Workflow Definition"
// @Success 201 {object} WorkflowDefinition
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 422 {object} map[string]string "Configuration error"
// @Router /api/workflows [post]
func (c *WorkflowController) CreateDefinition(ctx *fiber.Ctx) error {
	var input WorkflowDefinition
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	def, err := c.Service.CreateDefinition(ctx.UserContext(), input)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(def)
}

// UpdateDefinition godoc
// @Summary Update a workflow definition version
// @Description Rewrites name and steps of a version. Rejected once any request references the version.
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Definition ID"
// @Param definition body WorkflowDefinition true "Workflow Definition"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "Version is referenced by requests"
// @Router /api/workflows/{id} [put]
func (c *WorkflowController) UpdateDefinition(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	var input WorkflowDefinition
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateDefinition(ctx.UserContext(), id, input); err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Definition updated successfully"})
}

// ActivateVersion godoc
// @Summary Activate a workflow definition version
// @Description Makes the version active for its entity type and deactivates all siblings.
// @Tags workflows
// @Produce json
// @Param entityType path string true "Entity Type"
// @Param version path int true "Version"
// @Success 200 {object} map[string]string
// @Failure 422 {object} map[string]string "Definition fails validation"
// @Router /api/workflows/{entityType}/versions/{version}/activate [post]
func (c *WorkflowController) ActivateVersion(ctx *fiber.Ctx) error {
	entityType := ctx.Params("entityType")
	version, err := strconv.Atoi(ctx.Params("version"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid version"})
	}

	if err := c.Service.ActivateVersion(ctx.UserContext(), entityType, version); err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Version activated"})
}

// DeactivateVersion godoc
// @Summary Deactivate a workflow definition version
// @Tags workflows
// @Param id path string true "Definition ID"
// @Success 200 {object} map[string]string
// @Router /api/workflows/{id}/deactivate [post]
func (c *WorkflowController) DeactivateVersion(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.Service.DeactivateVersion(ctx.UserContext(), id); err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Version deactivated"})
}

// DeleteDefinition godoc
// @Summary Delete an unreferenced workflow definition version
// @Tags workflows
// @Param id path string true "Definition ID"
// @Success 204 {object} nil "No Content"
// @Failure 409 {object} map[string]string "Version is referenced by requests"
// @Router /api/workflows/{id} [delete]
func (c *WorkflowController) DeleteDefinition(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.Service.DeleteDefinition(ctx.UserContext(), id); err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// GetDefinition godoc
// @Summary Get a workflow definition by ID
// @Tags workflows
// @Produce json
// @Param id path string true "Definition ID"
// @Success 200 {object} WorkflowDefinition
// @Failure 404 {object} map[string]string
// @Router /api/workflows/{id} [get]
func (c *WorkflowController) GetDefinition(ctx *fiber.Ctx) error {
	def, err := c.Service.GetByID(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if def == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Definition not found"})
	}
	return ctx.JSON(def)
}

// GetActive godoc
// @Summary Get the active workflow definition for an entity type
// @Tags workflows
// @Produce json
// @Param entityType path string true "Entity Type"
// @Success 200 {object} WorkflowDefinition
// @Failure 404 {object} map[string]string "No active definition"
// @Router /api/workflows/active/{entityType} [get]
func (c *WorkflowController) GetActive(ctx *fiber.Ctx) error {
	def, err := c.Service.GetActive(ctx.UserContext(), ctx.Params("entityType"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if def == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active definition for this entity type"})
	}
	return ctx.JSON(def)
}

// ListDefinitions godoc
// @Summary List all workflow definitions
// @Tags workflows
// @Produce json
// @Success 200 {array} WorkflowDefinition
// @Router /api/workflows [get]
func (c *WorkflowController) ListDefinitions(ctx *fiber.Ctx) error {
	defs, err := c.Service.ListDefinitions(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(defs)
}

// ListVersions godoc
// @Summary List all versions for an entity type
// @Tags workflows
// @Produce json
// @Param entityType path string true "Entity Type"
// @Success 200 {array} WorkflowDefinition
// @Router /api/workflows/{entityType}/versions [get]
func (c *WorkflowController) ListVersions(ctx *fiber.Ctx) error {
	defs, err := c.Service.ListVersions(ctx.UserContext(), ctx.Params("entityType"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(defs)
}
