package rest

import (
	"github.com/ak-softwares/wa-api-sub000/domains/agent"
	"github.com/ak-softwares/wa-api-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Agent struct {
	Forwarder agent.IForwarder
}

func InitRestAgent(app fiber.Router, forwarder agent.IForwarder) Agent {
	rest := Agent{Forwarder: forwarder}

	app.Post("/agent/test", rest.TestWebhook)
	return rest
}

// TestWebhook sends a synthetic event through the same transport as live
// forwarding, so the operator can verify reachability before enabling agent
// mode.
func (controller *Agent) TestWebhook(c *fiber.Ctx) error {
	var request struct {
		WebhookURL string `json:"webhook_url"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if request.WebhookURL == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "webhook_url is required"})
	}

	result := controller.Forwarder.Test(c.UserContext(), request.WebhookURL)
	if !result.Success {
		return c.Status(502).JSON(utils.ResponseData{
			Status:  502,
			Code:    "WEBHOOK_ERROR",
			Message: result.Message,
			Results: result,
		})
	}
	return respondSuccess(c, "Agent webhook reachable", result)
}
