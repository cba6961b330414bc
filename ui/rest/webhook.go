package rest

import (
	"context"

	domainInbound "github.com/ak-softwares/wa-api-sub000/domains/inbound"
	"github.com/ak-softwares/wa-api-sub000/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Webhook struct {
	Service     domainInbound.IInboundUsecase
	Pool        *msgworker.Pool
	VerifyToken string
}

func InitRestWebhook(app fiber.Router, service domainInbound.IInboundUsecase, pool *msgworker.Pool, verifyToken string) Webhook {
	rest := Webhook{Service: service, Pool: pool, VerifyToken: verifyToken}

	app.Get("/webhook", rest.Verify)
	app.Post("/webhook", rest.Receive)
	return rest
}

// Verify answers the provider's subscription handshake.
func (controller *Webhook) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == controller.VerifyToken && challenge != "" {
		return c.SendString(challenge)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// Receive acks immediately and hands the parsed events to the worker pool.
// The provider redelivers on non-2xx responses, so slow processing must never
// delay the response; the dedup layer absorbs any redeliveries that do occur.
func (controller *Webhook) Receive(c *fiber.Ctx) error {
	events, updates, err := domainInbound.ParseEnvelope(c.Body())
	if err != nil {
		logrus.WithError(err).Warn("[WEBHOOK] Malformed notification body")
		// Still 200: a malformed body never gets better on redelivery.
		return c.SendStatus(fiber.StatusOK)
	}

	for _, evt := range events {
		evt := evt
		controller.Pool.Dispatch(msgworker.Job{
			AccountID: evt.PhoneNumberID,
			ChatKey:   evt.From,
			Handler: func(ctx context.Context) error {
				return controller.Service.HandleMessage(ctx, evt)
			},
		})
	}

	for _, upd := range updates {
		upd := upd
		controller.Pool.Dispatch(msgworker.Job{
			AccountID: "status",
			ChatKey:   upd.WaMessageID,
			Handler: func(ctx context.Context) error {
				return controller.Service.HandleStatus(ctx, upd)
			},
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
