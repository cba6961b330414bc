package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/account"
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	"github.com/sirupsen/logrus"
)

// broadcastConcurrency caps in-flight provider calls per broadcast so a large
// recipient list cannot exhaust connections.
const broadcastConcurrency = 8

type serviceSend struct {
	provider    domainSend.IProviderClient
	chatStore   chat.IChatStore
	sendTimeout time.Duration
}

func NewSendService(provider domainSend.IProviderClient, chatStore chat.IChatStore, sendTimeout time.Duration) domainSend.ISendUsecase {
	if sendTimeout == 0 {
		sendTimeout = 15 * time.Second
	}
	return &serviceSend{
		provider:    provider,
		chatStore:   chatStore,
		sendTimeout: sendTimeout,
	}
}

// SendSingle sends one text message. A Message row is always appended: Sent
// with the provider id on success, Failed with the error otherwise. The
// returned error covers storage failures only.
func (service serviceSend) SendSingle(ctx context.Context, acc *account.WaAccount, to, body string, opts domainSend.SingleOptions) (*chat.Message, error) {
	c, err := service.chatStore.ResolveOrCreate(ctx, acc.UserID, acc.ID, chat.Participant{Number: to})
	if err != nil {
		return nil, err
	}

	waMessageID, sendErr := service.callProvider(ctx, acc, func(callCtx context.Context) (string, error) {
		return service.provider.SendText(callCtx, credentialsFor(acc), to, body)
	})

	msg := &chat.Message{
		UserID:    acc.UserID,
		ChatID:    c.ID,
		To:        to,
		From:      acc.PhoneNumberID,
		Body:      body,
		Type:      chat.MessageTypeText,
		Tag:       opts.Tag,
		AiUsageID: opts.AiUsageID,
		CreatedAt: time.Now().UTC(),
	}
	service.applyOutcome(msg, waMessageID, sendErr)

	if err := service.chatStore.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	if msg.Status == chat.StatusSent {
		if err := service.chatStore.Touch(ctx, c.ID, body, msg.CreatedAt, false); err != nil {
			logrus.WithError(err).WithField("chat_id", c.ID).Warn("[SEND] Chat touch failed")
		}
	}
	return msg, nil
}

// SendTemplate sends one pre-approved template message.
func (service serviceSend) SendTemplate(ctx context.Context, acc *account.WaAccount, to, templateName, languageCode string) (*chat.Message, error) {
	c, err := service.chatStore.ResolveOrCreate(ctx, acc.UserID, acc.ID, chat.Participant{Number: to})
	if err != nil {
		return nil, err
	}

	waMessageID, sendErr := service.callProvider(ctx, acc, func(callCtx context.Context) (string, error) {
		return service.provider.SendTemplate(callCtx, credentialsFor(acc), to, templateName, languageCode)
	})

	msg := &chat.Message{
		UserID:    acc.UserID,
		ChatID:    c.ID,
		To:        to,
		From:      acc.PhoneNumberID,
		Template:  templateName,
		Type:      chat.MessageTypeTemplate,
		CreatedAt: time.Now().UTC(),
	}
	service.applyOutcome(msg, waMessageID, sendErr)

	if err := service.chatStore.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	if msg.Status == chat.StatusSent {
		if err := service.chatStore.Touch(ctx, c.ID, "template: "+templateName, msg.CreatedAt, false); err != nil {
			logrus.WithError(err).WithField("chat_id", c.ID).Warn("[SEND] Chat touch failed")
		}
	}
	return msg, nil
}

// SendBroadcast fans the body out to every participant of the broadcast chat.
// Recipient failures are isolated: each one becomes a report entry, and the
// fan-out always runs to completion. Exactly one summary Message row is
// written regardless of how many recipients failed.
func (service serviceSend) SendBroadcast(ctx context.Context, acc *account.WaAccount, broadcastChat *chat.Chat, body string) (*chat.Message, []domainSend.RecipientResult, error) {
	participants := broadcastChat.Participants
	results := make([]domainSend.RecipientResult, len(participants))

	var wg sync.WaitGroup
	sem := make(chan struct{}, broadcastConcurrency)
	for i, p := range participants {
		wg.Add(1)
		go func(i int, to string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			waMessageID, err := service.callProvider(ctx, acc, func(callCtx context.Context) (string, error) {
				return service.provider.SendText(callCtx, credentialsFor(acc), to, body)
			})
			if err != nil {
				results[i] = domainSend.RecipientResult{To: to, Success: false, Error: err.Error()}
				return
			}
			results[i] = domainSend.RecipientResult{To: to, Success: true, WaMessageID: waMessageID}
		}(i, p.Number)
	}
	wg.Wait()

	sent := 0
	for _, r := range results {
		if r.Success {
			sent++
		}
	}

	msg := &chat.Message{
		UserID:    acc.UserID,
		ChatID:    broadcastChat.ID,
		To:        "broadcast",
		From:      acc.PhoneNumberID,
		Body:      body,
		Type:      chat.MessageTypeText,
		Status:    chat.StatusSent,
		CreatedAt: time.Now().UTC(),
	}
	if sent == 0 {
		msg.Status = chat.StatusFailed
		msg.Error = "all recipients failed"
	}

	if err := service.chatStore.AppendMessage(ctx, msg); err != nil {
		return nil, results, err
	}
	if sent > 0 {
		if err := service.chatStore.Touch(ctx, broadcastChat.ID, body, msg.CreatedAt, false); err != nil {
			logrus.WithError(err).WithField("chat_id", broadcastChat.ID).Warn("[SEND] Chat touch failed")
		}
	}

	logrus.WithFields(logrus.Fields{
		"chat_id":    broadcastChat.ID,
		"recipients": len(participants),
		"sent":       sent,
		"failed":     len(participants) - sent,
	}).Info("[SEND] Broadcast completed")

	return msg, results, nil
}

// callProvider runs one provider call under the per-call timeout.
func (service serviceSend) callProvider(ctx context.Context, acc *account.WaAccount, call func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, service.sendTimeout)
	defer cancel()
	return call(callCtx)
}

func (service serviceSend) applyOutcome(msg *chat.Message, waMessageID string, sendErr error) {
	if sendErr != nil {
		msg.Status = chat.StatusFailed
		msg.Error = sendErr.Error()
		logrus.WithError(sendErr).WithFields(logrus.Fields{
			"to":   msg.To,
			"type": msg.Type,
		}).Warn("[SEND] Provider send failed")
		return
	}
	msg.Status = chat.StatusSent
	msg.WaMessageID = waMessageID
}

func credentialsFor(acc *account.WaAccount) domainSend.Credentials {
	return domainSend.Credentials{
		PhoneNumberID:  acc.PhoneNumberID,
		PermanentToken: acc.PermanentToken,
	}
}
