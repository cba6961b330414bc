package rest

import (
	"github.com/ak-softwares/wa-api-sub000/domains/account"
	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	"github.com/ak-softwares/wa-api-sub000/usecase"
	"github.com/ak-softwares/wa-api-sub000/pkg/utils"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/ak-softwares/wa-api-sub000/validations"
	"github.com/gofiber/fiber/v2"
)

type Send struct {
	Service     domainSend.ISendUsecase
	ChatService usecase.IChatUsecase
	Accounts    account.IAccountRepository
}

func InitRestSend(app fiber.Router, service domainSend.ISendUsecase, chatService usecase.IChatUsecase, accounts account.IAccountRepository) Send {
	rest := Send{Service: service, ChatService: chatService, Accounts: accounts}

	app.Post("/send/message", rest.SendMessage)
	app.Post("/send/template", rest.SendTemplate)
	app.Post("/send/broadcast", rest.SendBroadcast)
	return rest
}

// loadOwnedAccount fetches the account and enforces the user boundary.
func (controller *Send) loadOwnedAccount(c *fiber.Ctx, userID, waAccountID string) (*account.WaAccount, error) {
	acc, err := controller.Accounts.GetByID(c.UserContext(), waAccountID)
	if err != nil {
		return nil, err
	}
	if acc.UserID != userID {
		return nil, pkgError.NotFoundError("account not found")
	}
	return acc, nil
}

func (controller *Send) SendMessage(c *fiber.Ctx) error {
	var request domainSend.SendMessageRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if err := validations.ValidateSendMessage(c.UserContext(), request); err != nil {
		return respondError(c, err)
	}

	acc, err := controller.loadOwnedAccount(c, request.UserID, request.WaAccountID)
	if err != nil {
		return respondError(c, err)
	}

	msg, err := controller.Service.SendSingle(c.UserContext(), acc, request.To, request.Message, domainSend.SingleOptions{})
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Message dispatched", msg)
}

func (controller *Send) SendTemplate(c *fiber.Ctx) error {
	var request domainSend.SendTemplateRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if err := validations.ValidateSendTemplate(c.UserContext(), request); err != nil {
		return respondError(c, err)
	}

	acc, err := controller.loadOwnedAccount(c, request.UserID, request.WaAccountID)
	if err != nil {
		return respondError(c, err)
	}

	msg, err := controller.Service.SendTemplate(c.UserContext(), acc, request.To, request.TemplateName, request.LanguageCode)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Template dispatched", msg)
}

func (controller *Send) SendBroadcast(c *fiber.Ctx) error {
	var request domainSend.SendBroadcastRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if err := validations.ValidateSendBroadcast(c.UserContext(), request); err != nil {
		return respondError(c, err)
	}

	acc, err := controller.loadOwnedAccount(c, request.UserID, request.WaAccountID)
	if err != nil {
		return respondError(c, err)
	}

	bc, err := controller.ChatService.GetChat(c.UserContext(), request.UserID, request.ChatID)
	if err != nil {
		return respondError(c, err)
	}

	msg, report, err := controller.Service.SendBroadcast(c.UserContext(), acc, bc, request.Message)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, "Broadcast dispatched", domainSend.SendBroadcastResponse{
		Message: msg,
		Report:  report,
	})
}
