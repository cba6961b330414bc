package chat

import (
	"context"
	"time"
)

type ChatType string

const (
	ChatTypeSingle    ChatType = "single"
	ChatTypeBroadcast ChatType = "broadcast"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeTemplate MessageType = "template"
	MessageTypeMedia    MessageType = "media"
)

// MessageStatus follows Sent -> Delivered -> Read. Failed is only assigned at
// creation time and has no outgoing transitions.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

var statusRank = map[MessageStatus]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// CanTransition reports whether a provider status callback may move a message
// from s to next. Failed is terminal, and statuses never move backwards.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	if s == StatusFailed || next == StatusFailed {
		return false
	}
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > cur
}

// Participant is one member of a chat, unique by number within the chat.
type Participant struct {
	Number   string `json:"number"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type Chat struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	WaAccountID   string        `json:"wa_account_id"`
	Type          ChatType      `json:"type"`
	ChatName      string        `json:"chat_name,omitempty"`
	Participants  []Participant `json:"participants"`
	LastMessage   string        `json:"last_message,omitempty"`
	LastMessageAt *time.Time    `json:"last_message_at,omitempty"`
	IsFavourite   bool          `json:"is_favourite"`
	UnreadCount   int           `json:"unread_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Message is the append-only ledger entry for one outbound or inbound message.
// Rows are created with status Sent or Failed (outbound) or Delivered
// (inbound); later mutations come only from provider status callbacks.
type Message struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ChatID      string        `json:"chat_id"`
	To          string        `json:"to"`
	From        string        `json:"from"`
	Body        string        `json:"message,omitempty"`
	Template    string        `json:"template,omitempty"`
	WaMessageID string        `json:"wa_message_id,omitempty"`
	Status      MessageStatus `json:"status"`
	Type        MessageType   `json:"type"`
	Tag         string        `json:"tag,omitempty"`
	AiUsageID   string        `json:"ai_usage_id,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// AiUsage records one model invocation. Immutable after creation; messages
// reference it via AiUsageID, never the reverse, so billing rollups survive
// message deletion.
type AiUsage struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	InputCost    float64   `json:"input_cost"`
	OutputCost   float64   `json:"output_cost"`
	TotalCost    float64   `json:"total_cost"`
	CreatedAt    time.Time `json:"created_at"`
}

// IChatStore is the set of invariant-preserving read/write operations the
// pipeline relies on. ResolveOrCreate must be race-free: two concurrent calls
// for the same (userID, waAccountID, number) never produce two chats.
type IChatStore interface {
	ResolveOrCreate(ctx context.Context, userID, waAccountID string, participant Participant) (*Chat, error)
	CreateBroadcast(ctx context.Context, userID, waAccountID, chatName string, participants []Participant) (*Chat, error)
	GetByID(ctx context.Context, chatID string) (*Chat, error)
	List(ctx context.Context, userID, waAccountID string, limit, offset int) ([]Chat, error)
	Touch(ctx context.Context, chatID, lastMessage string, at time.Time, incrementUnread bool) error
	MarkRead(ctx context.Context, chatID string) error
	SetFavourite(ctx context.Context, chatID string, favourite bool) error

	AppendMessage(ctx context.Context, msg *Message) error
	// RecentMessages returns up to limit messages for the chat, newest first.
	RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
	// UpdateStatusByWaMessageID applies a provider status callback, enforcing
	// the Sent -> Delivered -> Read machine. Out-of-order or terminal
	// transitions and unknown ids are ignored, not errors; the updated message
	// is returned only when a transition was applied.
	UpdateStatusByWaMessageID(ctx context.Context, waMessageID string, status MessageStatus) (*Message, error)
}

// IUsageStore persists AiUsage records.
type IUsageStore interface {
	CreateUsage(ctx context.Context, usage *AiUsage) error
	ListUsage(ctx context.Context, userID string, limit, offset int) ([]AiUsage, error)
}
