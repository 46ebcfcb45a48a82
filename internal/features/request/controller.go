package request

import (
	"errors"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type RequestController struct {
	Service RequestService
}

func NewRequestController(service RequestService) *RequestController {
	return &RequestController{Service: service}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrStaleState), errors.Is(err, errs.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, errs.ErrNotEligible):
		return fiber.StatusForbidden
	case errs.IsConfiguration(err):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// Submit godoc
// @Summary Submit a document for approval
// @Description Binds the document to the active workflow version for its entity type and opens the first applicable step.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body SubmitInput true "Submission"
// @Success 201 {object} Request
// @Failure 422 {object} map[string]string "No active workflow for entity type"
// @Router /api/requests [post]
func (c *RequestController) Submit(ctx *fiber.Ctx) error {
	var input SubmitInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if input.SubmittedBy == "" {
		if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
			input.SubmittedBy = claims.UserID
		}
	}

	req, err := c.Service.Submit(ctx.UserContext(), input)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(req)
}

// RecordAction godoc
// @Summary Record an approve or reject decision
// @Description Appends the actor's decision against the current step and advances the request when the step resolves.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param action body ActionInput true "Decision"
// @Success 200 {object} Request
// @Failure 403 {object} map[string]string "Actor not in the eligible set"
// @Failure 409 {object} map[string]string "Step already resolved or request terminal"
// @Router /api/requests/{id}/actions [post]
func (c *RequestController) RecordAction(ctx *fiber.Ctx) error {
	var input ActionInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	input.RequestID = ctx.Params("id")
	if input.ActorID == "" {
		if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
			input.ActorID = claims.UserID
		}
	}

	req, err := c.Service.RecordAction(ctx.UserContext(), input)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(req)
}

// Cancel godoc
// @Summary Cancel a pending request
// @Description Administrative override to the terminal cancelled state.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} Request
// @Failure 409 {object} map[string]string "Request already resolved"
// @Router /api/requests/{id}/cancel [post]
func (c *RequestController) Cancel(ctx *fiber.Ctx) error {
	var body struct {
		Comment string `json:"comment"`
	}
	_ = ctx.BodyParser(&body)

	actorID := ""
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		actorID = claims.UserID
	}

	req, err := c.Service.Cancel(ctx.UserContext(), ctx.Params("id"), actorID, body.Comment)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(req)
}

// Reevaluate godoc
// @Summary Retry a blocked request
// @Description Re-runs approver resolution and condition evaluation at the step that blocked.
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} Request
// @Failure 409 {object} map[string]string "Request is not blocked"
// @Router /api/requests/{id}/reevaluate [post]
func (c *RequestController) Reevaluate(ctx *fiber.Ctx) error {
	req, err := c.Service.Reevaluate(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(req)
}

// Escalate godoc
// @Summary Force an escalation check on a request
// @Description Applies the current step's escalation action if its deadline has elapsed. Normally driven by the scheduler.
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} Request
// @Failure 409 {object} map[string]string "No elapsed deadline on the current step"
// @Router /api/requests/{id}/escalate [post]
func (c *RequestController) Escalate(ctx *fiber.Ctx) error {
	req, err := c.Service.Escalate(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(req)
}

// Get godoc
// @Summary Get a request by ID
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} Request
// @Failure 404 {object} map[string]string
// @Router /api/requests/{id} [get]
func (c *RequestController) Get(ctx *fiber.Ctx) error {
	req, err := c.Service.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if req == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	}
	return ctx.JSON(req)
}

// History godoc
// @Summary List the full action history of a request
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} Action
// @Router /api/requests/{id}/history [get]
func (c *RequestController) History(ctx *fiber.Ctx) error {
	actions, err := c.Service.History(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(actions)
}

// List godoc
// @Summary List requests with optional filters
// @Tags requests
// @Produce json
// @Param status query string false "Status filter"
// @Param entity_type query string false "Entity type filter"
// @Param blocked query bool false "Only blocked requests"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} map[string]interface{}
// @Router /api/requests [get]
func (c *RequestController) List(ctx *fiber.Ctx) error {
	filters := map[string]interface{}{}
	if status := ctx.Query("status"); status != "" {
		filters["status"] = status
	}
	if entityType := ctx.Query("entity_type"); entityType != "" {
		filters["entity_type"] = entityType
	}
	if ctx.Query("blocked") == "true" {
		filters["blocked"] = true
	}

	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))

	requests, total, err := c.Service.List(ctx.UserContext(), filters, page, limit)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  requests,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// PendingForMe godoc
// @Summary List requests waiting on the authenticated user
// @Tags requests
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} map[string]interface{}
// @Router /api/requests/pending [get]
func (c *RequestController) PendingForMe(ctx *fiber.Ctx) error {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))

	requests, total, err := c.Service.ListPendingForApprover(ctx.UserContext(), claims.UserID, page, limit)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  requests,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
