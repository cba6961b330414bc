package usecase

import (
	"context"

	"github.com/ak-softwares/wa-api-sub000/domains/account"
	"github.com/ak-softwares/wa-api-sub000/domains/agent"
	domainAI "github.com/ak-softwares/wa-api-sub000/domains/ai"
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	domainInbound "github.com/ak-softwares/wa-api-sub000/domains/inbound"
	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	"github.com/ak-softwares/wa-api-sub000/domains/notify"
	"github.com/ak-softwares/wa-api-sub000/pkg/dedupe"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	"github.com/sirupsen/logrus"
)

const aiReplyTag = "aichat"

type serviceInbound struct {
	accounts  account.IAccountRepository
	chatStore chat.IChatStore
	deduper   dedupe.Deduper
	forwarder agent.IForwarder
	generator domainAI.IReplyGenerator
	sender    domainSend.ISendUsecase
	emitter   notify.IEmitter
}

func NewInboundService(
	accounts account.IAccountRepository,
	chatStore chat.IChatStore,
	deduper dedupe.Deduper,
	forwarder agent.IForwarder,
	generator domainAI.IReplyGenerator,
	sender domainSend.ISendUsecase,
	emitter notify.IEmitter,
) domainInbound.IInboundUsecase {
	return &serviceInbound{
		accounts:  accounts,
		chatStore: chatStore,
		deduper:   deduper,
		forwarder: forwarder,
		generator: generator,
		sender:    sender,
		emitter:   emitter,
	}
}

// HandleMessage processes one inbound user message: persist it, then run
// exactly one reply strategy according to the account's AI mode. The account
// snapshot loaded here is used for the whole event, so a concurrent config
// change never mixes strategies.
func (service serviceInbound) HandleMessage(ctx context.Context, evt domainInbound.Event) error {
	if !service.deduper.MarkOnce(ctx, evt.MessageID) {
		logrus.WithField("message_id", evt.MessageID).Debug("[INBOUND] Duplicate event skipped")
		return nil
	}

	acc, err := service.accounts.GetDefaultByPhoneNumberID(ctx, evt.PhoneNumberID)
	if err != nil {
		if _, ok := err.(pkgError.NotFoundError); ok {
			logrus.WithField("phone_number_id", evt.PhoneNumberID).Warn("[INBOUND] Event for unknown phone number dropped")
			return nil
		}
		return err
	}

	c, err := service.chatStore.ResolveOrCreate(ctx, acc.UserID, acc.ID, chat.Participant{
		Number: evt.From,
		Name:   evt.SenderName,
	})
	if err != nil {
		return err
	}

	msg := &chat.Message{
		UserID:    acc.UserID,
		ChatID:    c.ID,
		To:        acc.PhoneNumberID,
		From:      evt.From,
		Body:      evt.Text,
		Status:    chat.StatusDelivered,
		Type:      chat.MessageTypeText,
		CreatedAt: evt.Timestamp,
	}
	if err := service.chatStore.AppendMessage(ctx, msg); err != nil {
		return err
	}
	if err := service.chatStore.Touch(ctx, c.ID, evt.Text, evt.Timestamp, true); err != nil {
		logrus.WithError(err).WithField("chat_id", c.ID).Warn("[INBOUND] Chat touch failed")
	}

	switch mode := acc.AI.(type) {
	case account.AgentWebhook:
		service.forwardToAgent(ctx, mode, evt)
	case account.DirectChat:
		service.replyWithModel(ctx, acc, mode, c, evt)
	}
	return nil
}

// forwardToAgent relays the raw event. The agent endpoint owns the reply
// decision; its failures are logged by the forwarder and never retried.
func (service serviceInbound) forwardToAgent(ctx context.Context, mode account.AgentWebhook, evt domainInbound.Event) {
	result := service.forwarder.Forward(ctx, mode.URL, evt.Raw)
	if !result.Success {
		logrus.WithFields(logrus.Fields{
			"message_id": evt.MessageID,
			"reason":     result.Message,
		}).Warn("[INBOUND] Agent forward unsuccessful")
	}
}

// replyWithModel generates and sends an auto-reply. A generation failure is
// swallowed: the inbound message is already persisted, and the operator can
// still reply by hand.
func (service serviceInbound) replyWithModel(ctx context.Context, acc *account.WaAccount, mode account.DirectChat, c *chat.Chat, evt domainInbound.Event) {
	result, err := service.generator.Generate(ctx, domainAI.GenerateRequest{
		UserID:        acc.UserID,
		ChatID:        c.ID,
		PhoneNumberID: acc.PhoneNumberID,
		Prompt:        mode.Prompt,
		Model:         mode.Model,
		UserName:      evt.SenderName,
		UserPhone:     evt.From,
	})
	if err != nil {
		logrus.WithError(err).WithField("chat_id", c.ID).Warn("[INBOUND] AI reply generation failed")
		return
	}

	sent, err := service.sender.SendSingle(ctx, acc, evt.From, result.Reply, domainSend.SingleOptions{
		Tag:       aiReplyTag,
		AiUsageID: result.UsageID,
	})
	if err != nil {
		logrus.WithError(err).WithField("chat_id", c.ID).Error("[INBOUND] AI reply dispatch failed")
		return
	}
	if sent.Status == chat.StatusSent {
		service.emitter.Notify(acc.UserID, notify.EventAIReply, c, sent)
	}
}

// HandleStatus applies one provider delivery-state callback.
func (service serviceInbound) HandleStatus(ctx context.Context, upd domainInbound.StatusUpdate) error {
	updated, err := service.chatStore.UpdateStatusByWaMessageID(ctx, upd.WaMessageID, upd.Status)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}

	c, err := service.chatStore.GetByID(ctx, updated.ChatID)
	if err != nil {
		logrus.WithError(err).WithField("chat_id", updated.ChatID).Warn("[INBOUND] Chat lookup for status event failed")
		return nil
	}
	service.emitter.Notify(updated.UserID, notify.EventMessageStatus, c, updated)
	return nil
}
