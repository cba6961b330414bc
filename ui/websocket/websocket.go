package websocket

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/ak-softwares/wa-api-sub000/domains/chat"
	"github.com/ak-softwares/wa-api-sub000/domains/notify"
	"github.com/ak-softwares/wa-api-sub000/infrastructure/valkey"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	valkeylib "github.com/valkey-io/valkey-go"
)

// UserEvent is one realtime console event, scoped to a single user.
type UserEvent struct {
	UserID   string        `json:"user_id"`
	Event    notify.Event  `json:"event"`
	Chat     *chat.Chat    `json:"chat,omitempty"`
	Message  *chat.Message `json:"message,omitempty"`
	SenderID string        `json:"sender_id,omitempty"`
}

var (
	clients    = make(map[*websocket.Conn]string) // conn -> userID
	register   = make(chan registration)
	events     = make(chan UserEvent, 256)
	unregister = make(chan *websocket.Conn)

	vkClient *valkey.Client
	wsChan   = "waconsole:ws_events"
	localID  string
)

type registration struct {
	conn   *websocket.Conn
	userID string
}

// SetValkeyClient enables cross-server event fan-out. Without it the hub
// serves local connections only.
func SetValkeyClient(client *valkey.Client, serverID string) {
	vkClient = client
	localID = serverID
}

// Emitter adapts the hub to the notification contract used by the pipeline.
type Emitter struct{}

var _ notify.IEmitter = Emitter{}

// Notify is fire-and-forget: a full event buffer drops the event rather than
// blocking the pipeline.
func (Emitter) Notify(userID string, event notify.Event, c *chat.Chat, m *chat.Message) {
	select {
	case events <- UserEvent{UserID: userID, Event: event, Chat: c, Message: m}:
	default:
		logrus.WithField("user_id", userID).Warn("[WS] Event buffer full, notification dropped")
	}
}

func deliverToLocal(evt UserEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn, userID := range clients {
		if userID != evt.UserID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
		}
	}
}

func publishToValkey(evt UserEvent) {
	if vkClient == nil {
		return
	}

	evt.SenderID = localID
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	ctx := context.Background()
	cmd := vkClient.Inner().B().Publish().Channel(wsChan).Message(string(data)).Build()
	if err := vkClient.Inner().Do(ctx, cmd).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func startValkeySubscriber() {
	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		err := vkClient.Inner().Receive(context.Background(), vkClient.Inner().B().Subscribe().Channel(wsChan).Build(), func(msg valkeylib.PubSubMessage) {
			var evt UserEvent
			if err := json.Unmarshal([]byte(msg.Message), &evt); err == nil {
				// Avoid loops: ignore events published by this same server.
				if evt.SenderID == localID {
					return
				}
				deliverToLocal(evt)
			}
		})
		if err != nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(clients, conn)
}

// RunHub owns the client map; all mutations happen on this goroutine.
func RunHub() {
	if vkClient != nil {
		startValkeySubscriber()
	}

	for {
		select {
		case reg := <-register:
			clients[reg.conn] = reg.userID
			logrus.WithField("user_id", reg.userID).Debug("[WS] Connection registered")

		case conn := <-unregister:
			delete(clients, conn)
			logrus.Debug("[WS] Connection unregistered")

		case evt := <-events:
			deliverToLocal(evt)
			if vkClient != nil {
				publishToValkey(evt)
			}
		}
	}
}

func RegisterRoutes(app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		userID := conn.Query("user_id")
		if userID == "" {
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			_ = conn.Close()
			return
		}

		defer func() {
			unregister <- conn
			_ = conn.Close()
		}()

		register <- registration{conn: conn, userID: userID}

		// Reads only keep the connection alive; the console never pushes
		// commands over the socket.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Println("read error:", err)
				}
				return
			}
		}
	}))
}
