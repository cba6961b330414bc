package rest

import (
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/ak-softwares/wa-api-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// respondError maps typed errors to their status code; everything else is a 500.
func respondError(c *fiber.Ctx, err error) error {
	if generic, ok := err.(pkgError.GenericError); ok {
		return c.Status(generic.StatusCode()).JSON(utils.ResponseData{
			Status:  generic.StatusCode(),
			Code:    generic.ErrCode(),
			Message: generic.Error(),
		})
	}
	return c.Status(500).JSON(utils.ResponseData{
		Status:  500,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	})
}

func respondSuccess(c *fiber.Ctx, message string, results any) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: results,
	})
}
