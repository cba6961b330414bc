package inbound

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ak-softwares/wa-api-sub000/domains/chat"
)

// Event is one parsed inbound user message from the provider webhook. Raw
// carries the original change value so agent-webhook forwarding can relay the
// payload untouched.
type Event struct {
	PhoneNumberID string
	From          string
	SenderName    string
	MessageID     string
	Text          string
	Timestamp     time.Time
	Raw           map[string]any
}

// StatusUpdate is one provider-side delivery state transition for a
// previously sent message.
type StatusUpdate struct {
	WaMessageID string
	Status      chat.MessageStatus
	Timestamp   time.Time
}

// IInboundUsecase orchestrates one inbound webhook event: persist, pick
// exactly one reply strategy, dispatch, notify. Errors never propagate in a
// way that would delay the webhook acknowledgment.
type IInboundUsecase interface {
	HandleMessage(ctx context.Context, evt Event) error
	HandleStatus(ctx context.Context, upd StatusUpdate) error
}

// --- Provider webhook envelope ---

// Envelope mirrors the Graph API webhook notification shape. Only the
// "messages" field of each change is meaningful to this pipeline.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type changeValue struct {
	Metadata struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		From      string `json:"from"`
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Text      struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
	Statuses []struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	} `json:"statuses"`
}

var callbackStatuses = map[string]chat.MessageStatus{
	"delivered": chat.StatusDelivered,
	"read":      chat.StatusRead,
}

// ParseEnvelope extracts the message events and status updates from one
// webhook notification. Unknown change fields and unsupported status values
// are skipped, not errors: the provider sends more than this pipeline models.
func ParseEnvelope(body []byte) ([]Event, []StatusUpdate, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, err
	}

	var events []Event
	var updates []StatusUpdate
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			var value changeValue
			if err := json.Unmarshal(change.Value, &value); err != nil {
				continue
			}
			var raw map[string]any
			_ = json.Unmarshal(change.Value, &raw)

			names := make(map[string]string, len(value.Contacts))
			for _, c := range value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, m := range value.Messages {
				events = append(events, Event{
					PhoneNumberID: value.Metadata.PhoneNumberID,
					From:          m.From,
					SenderName:    names[m.From],
					MessageID:     m.ID,
					Text:          m.Text.Body,
					Timestamp:     parseEpoch(m.Timestamp),
					Raw:           raw,
				})
			}

			for _, s := range value.Statuses {
				status, ok := callbackStatuses[s.Status]
				if !ok {
					continue
				}
				updates = append(updates, StatusUpdate{
					WaMessageID: s.ID,
					Status:      status,
					Timestamp:   parseEpoch(s.Timestamp),
				})
			}
		}
	}
	return events, updates, nil
}

func parseEpoch(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(n, 0).UTC()
}
