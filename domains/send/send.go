package send

import (
	"context"

	"github.com/ak-softwares/wa-api-sub000/domains/account"
	"github.com/ak-softwares/wa-api-sub000/domains/chat"
)

// Credentials identify one provider phone number for an outbound call.
type Credentials struct {
	PhoneNumberID  string
	PermanentToken string
}

// IProviderClient is the messaging provider's send API. Implementations must
// return the provider-assigned message id on success and an error otherwise;
// the dispatcher converts errors into Failed message rows, never exceptions.
type IProviderClient interface {
	SendText(ctx context.Context, creds Credentials, to, body string) (string, error)
	SendTemplate(ctx context.Context, creds Credentials, to, templateName, languageCode string) (string, error)
}

// SingleOptions carry provenance for a single send.
type SingleOptions struct {
	Tag       string
	AiUsageID string
}

// RecipientResult is the outcome for one broadcast recipient. Entries are
// independent: a failure at one index never affects the others.
type RecipientResult struct {
	To          string `json:"to"`
	Success     bool   `json:"success"`
	WaMessageID string `json:"wa_message_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ISendUsecase dispatches outbound messages through the provider and keeps
// the local ledger consistent. SendSingle and SendBroadcast always produce a
// Message row; the returned error covers storage failures only, never
// provider failures.
type ISendUsecase interface {
	SendSingle(ctx context.Context, acc *account.WaAccount, to, body string, opts SingleOptions) (*chat.Message, error)
	SendTemplate(ctx context.Context, acc *account.WaAccount, to, templateName, languageCode string) (*chat.Message, error)
	SendBroadcast(ctx context.Context, acc *account.WaAccount, broadcastChat *chat.Chat, body string) (*chat.Message, []RecipientResult, error)
}

// --- REST DTOs ---

type SendMessageRequest struct {
	UserID      string `json:"user_id"`
	WaAccountID string `json:"wa_account_id"`
	To          string `json:"to"`
	Message     string `json:"message"`
}

type SendTemplateRequest struct {
	UserID       string `json:"user_id"`
	WaAccountID  string `json:"wa_account_id"`
	To           string `json:"to"`
	TemplateName string `json:"template_name"`
	LanguageCode string `json:"language_code"`
}

type SendBroadcastRequest struct {
	UserID      string `json:"user_id"`
	WaAccountID string `json:"wa_account_id"`
	ChatID      string `json:"chat_id"`
	Message     string `json:"message"`
}

type SendBroadcastResponse struct {
	Message *chat.Message     `json:"message"`
	Report  []RecipientResult `json:"report"`
}
