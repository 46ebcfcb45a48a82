package notification

import (
	"github.com/NCGHoldings/StoresONE-sub000/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	service NotificationService
}

func NewNotificationController(service NotificationService) *NotificationController {
	return &NotificationController{
		service: service,
	}
}

func claimsUserID(ctx *fiber.Ctx) (string, bool) {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

// List godoc
// @Summary List the authenticated user's notifications
// @Tags notifications
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} map[string]interface{}
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *fiber.Ctx) error {
	userID, ok := claimsUserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 10))

	notifications, total, err := c.service.GetUserNotifications(ctx.UserContext(), userID, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUnreadCount godoc
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount(ctx *fiber.Ctx) error {
	userID, ok := claimsUserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	count, err := c.service.GetUnreadCount(ctx.UserContext(), userID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]string
// @Router /api/notifications/{id}/read [put]
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	userID, ok := claimsUserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := c.service.MarkAsRead(ctx.UserContext(), ctx.Params("id"), userID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "success"})
}

// MarkAllAsRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Success 200 {object} map[string]string
// @Router /api/notifications/mark-all-read [post]
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	userID, ok := claimsUserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := c.service.MarkAllAsRead(ctx.UserContext(), userID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "success"})
}
