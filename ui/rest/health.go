package rest

import (
	"github.com/ak-softwares/wa-api-sub000/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Health struct {
	DB   *gorm.DB
	Pool *msgworker.Pool
}

func InitRestHealth(app fiber.Router, db *gorm.DB, pool *msgworker.Pool) Health {
	rest := Health{DB: db, Pool: pool}

	app.Get("/health", rest.GetStatus)
	return rest
}

func (controller *Health) GetStatus(c *fiber.Ctx) error {
	dbStatus := "ok"
	if sqlDB, err := controller.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unreachable"
	}

	results := fiber.Map{
		"database": dbStatus,
		"workers":  controller.Pool.GetStats(),
	}
	if dbStatus != "ok" {
		return c.Status(503).JSON(fiber.Map{
			"status":  503,
			"code":    "SERVICE_UNAVAILABLE",
			"results": results,
		})
	}
	return respondSuccess(c, "Service healthy", results)
}
