package rest

import (
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	"github.com/ak-softwares/wa-api-sub000/pkg/utils"
	"github.com/ak-softwares/wa-api-sub000/usecase"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

type Chat struct {
	Service usecase.IChatUsecase
}

func InitRestChat(app fiber.Router, service usecase.IChatUsecase) Chat {
	rest := Chat{Service: service}

	app.Get("/chats", rest.ListChats)
	app.Post("/chats/broadcast", rest.CreateBroadcast)
	app.Get("/chats/:chat_id", rest.GetChat)
	app.Get("/chats/:chat_id/messages", rest.Messages)
	app.Post("/chats/:chat_id/read", rest.MarkRead)
	app.Post("/chats/:chat_id/favourite", rest.SetFavourite)
	app.Get("/usage", rest.ListUsage)
	return rest
}

// chatView decorates a chat with a human-readable last-activity hint for the
// console list.
type chatView struct {
	chat.Chat
	LastActivity string `json:"last_activity,omitempty"`
}

func (controller *Chat) ListChats(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id is required"})
	}

	chats, err := controller.Service.ListChats(c.UserContext(), userID, c.Query("wa_account_id"),
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, err)
	}

	views := make([]chatView, len(chats))
	for i, ch := range chats {
		views[i] = chatView{Chat: ch}
		if ch.LastMessageAt != nil {
			views[i].LastActivity = humanize.Time(*ch.LastMessageAt)
		}
	}
	return respondSuccess(c, "Chats retrieved", views)
}

func (controller *Chat) GetChat(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id is required"})
	}

	ch, err := controller.Service.GetChat(c.UserContext(), userID, c.Params("chat_id"))
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Chat retrieved", ch)
}

func (controller *Chat) Messages(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id is required"})
	}

	msgs, err := controller.Service.Messages(c.UserContext(), userID, c.Params("chat_id"), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Messages retrieved", msgs)
}

func (controller *Chat) MarkRead(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id is required"})
	}

	if err := controller.Service.MarkRead(c.UserContext(), userID, c.Params("chat_id")); err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Chat marked as read", nil)
}

func (controller *Chat) SetFavourite(c *fiber.Ctx) error {
	var request struct {
		UserID    string `json:"user_id"`
		Favourite bool   `json:"favourite"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if request.UserID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id is required"})
	}

	if err := controller.Service.SetFavourite(c.UserContext(), request.UserID, c.Params("chat_id"), request.Favourite); err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Chat favourite updated", nil)
}

func (controller *Chat) CreateBroadcast(c *fiber.Ctx) error {
	var request struct {
		UserID      string   `json:"user_id"`
		WaAccountID string   `json:"wa_account_id"`
		ChatName    string   `json:"chat_name"`
		Numbers     []string `json:"numbers"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if request.UserID == "" || request.WaAccountID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id and wa_account_id are required"})
	}

	bc, err := controller.Service.CreateBroadcast(c.UserContext(), request.UserID, request.WaAccountID, request.ChatName, request.Numbers)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Broadcast chat created", bc)
}

func (controller *Chat) ListUsage(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: "user_id is required"})
	}

	rows, err := controller.Service.ListUsage(c.UserContext(), userID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Usage retrieved", rows)
}
