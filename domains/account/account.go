package account

import (
	"context"
	"strings"
	"time"
)

// AIMode is the account's auto-reply configuration as a tagged variant, so
// the mutual-exclusion invariant between agent-webhook mode and direct-chat
// mode is carried by the type system rather than by flag-checking order.
type AIMode interface {
	isAIMode()
}

// Disabled means no auto-reply: inbound messages are persisted for the human
// operator and nothing else happens.
type Disabled struct{}

// AgentWebhook forwards inbound events to a user-owned HTTP endpoint which is
// solely responsible for deciding whether and how to reply.
type AgentWebhook struct {
	URL    string
	Prompt string
}

// DirectChat generates replies with a hosted chat-completion model.
type DirectChat struct {
	Prompt string
	Model  string
}

func (Disabled) isAIMode()     {}
func (AgentWebhook) isAIMode() {}
func (DirectChat) isAIMode()   {}

// ModeFromFlags maps the legacy dual-flag representation (aiAgent / aiChat
// stored side by side) to the tagged variant. When both are active the agent
// webhook wins, matching the original decision-table precedence.
func ModeFromFlags(agentActive bool, webhookURL, agentPrompt string, chatActive bool, chatPrompt, chatModel string) AIMode {
	if agentActive && strings.TrimSpace(webhookURL) != "" {
		return AgentWebhook{URL: webhookURL, Prompt: agentPrompt}
	}
	if chatActive {
		return DirectChat{Prompt: chatPrompt, Model: chatModel}
	}
	return Disabled{}
}

// WaAccount is one connected WhatsApp Business phone number owned by a user.
// The pipeline treats a loaded snapshot as immutable for the duration of one
// event's processing; only the out-of-scope setup flows mutate it.
type WaAccount struct {
	ID                      string
	UserID                  string
	PhoneNumberID           string
	WabaID                  string
	BusinessID              string
	PermanentToken          string
	IsPhoneNumberRegistered bool
	IsAppSubscribed         bool
	Default                 bool
	AI                      AIMode
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

type IAccountRepository interface {
	GetByID(ctx context.Context, id string) (*WaAccount, error)
	// GetDefaultByPhoneNumberID resolves the single default account for an
	// inbound phone number id. At most one account per user has Default set.
	GetDefaultByPhoneNumberID(ctx context.Context, phoneNumberID string) (*WaAccount, error)
	Save(ctx context.Context, acc *WaAccount) error
}
