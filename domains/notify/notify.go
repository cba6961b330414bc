package notify

import "github.com/ak-softwares/wa-api-sub000/domains/chat"

type Event string

const (
	// EventAIReply is emitted once per successfully auto-sent AI reply so a
	// connected client sees the new message without polling.
	EventAIReply Event = "AI_REPLY"
	// EventMessageStatus is emitted when a provider callback moves a message
	// through its status machine.
	EventMessageStatus Event = "MESSAGE_STATUS"
)

// IEmitter publishes a realtime event to the per-user channel. Fire and
// forget: the message is already durably stored, so a publish failure must
// never fail the caller's operation.
type IEmitter interface {
	Notify(userID string, event Event, c *chat.Chat, m *chat.Message)
}
