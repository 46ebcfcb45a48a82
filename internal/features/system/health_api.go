package system

import (
	"context"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/api"
	"github.com/NCGHoldings/StoresONE-sub000/internal/database"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type HealthApi struct {
	db *database.MongodbDB
}

func NewHealthApi(db *database.MongodbDB) api.Route {
	return &HealthApi{db: db}
}

// Setup registers liveness and readiness probes.
func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/readyz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := h.db.Client.Ping(ctx, readpref.Primary()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})
}
