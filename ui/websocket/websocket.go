// Package websocket streams scheduler events (publishes, reminders, admin
// alerts) to connected dashboard clients. With Valkey configured the hub
// relays events across nodes over Pub/Sub, so a publish executed on one
// instance reaches dashboards connected to any other.
package websocket

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/contentops/scheduler/infrastructure/valkey"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	valkeylib "github.com/valkey-io/valkey-go"
)

type client struct{}

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

var (
	Clients    = make(map[*websocket.Conn]client)
	Register   = make(chan *websocket.Conn)
	Broadcast  = make(chan BroadcastMessage, 64)
	Unregister = make(chan *websocket.Conn)

	vkClient *valkey.Client
	wsChan   = "scheduler:ws_broadcast"
	localID  string
)

// SetValkeyClient enables the distributed broadcast relay.
func SetValkeyClient(client *valkey.Client, serverID string) {
	vkClient = client
	localID = serverID
}

func handleRegister(conn *websocket.Conn) {
	Clients[conn] = client{}
	logrus.Debug("[WS] Connection registered")
}

func handleUnregister(conn *websocket.Conn) {
	delete(Clients, conn)
	logrus.Debug("[WS] Connection unregistered")
}

func broadcastToLocal(message BroadcastMessage) {
	marshalMessage, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range Clients {
		if err := conn.WriteMessage(websocket.TextMessage, marshalMessage); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
		}
	}
}

func publishToValkey(message BroadcastMessage) {
	if vkClient == nil {
		return
	}

	// Attach local ID as sender
	message.SenderID = localID

	data, err := json.Marshal(message)
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
	if vkClient == nil {
		return
	}

	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		err := vkClient.Inner().Receive(context.Background(), vkClient.Inner().B().Subscribe().Channel(wsChan).Build(), func(msg valkeylib.PubSubMessage) {
			handleRelayFrame(msg.Message)
		})
		if err != nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

// handleRelayFrame enqueues a frame received over Pub/Sub for the hub loop.
// Only RunHub touches the client map, so relayed frames never write to it
// from the subscriber goroutine.
func handleRelayFrame(payload string) {
	var broadcastMsg BroadcastMessage
	if err := json.Unmarshal([]byte(payload), &broadcastMsg); err != nil {
		return
	}
	// Avoid loops: ignore messages sent by this same instance
	if broadcastMsg.SenderID == localID {
		return
	}
	select {
	case Broadcast <- broadcastMsg:
	default:
		logrus.Warn("[WS] Broadcast buffer full, dropped relayed frame")
	}
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(Clients, conn)
}

func RunHub() {
	// If Valkey is enabled, start the subscriber
	if vkClient != nil {
		startValkeySubscriber()
	}

	for {
		select {
		case conn := <-Register:
			handleRegister(conn)

		case conn := <-Unregister:
			handleUnregister(conn)

		case message := <-Broadcast:
			// 1. Send to local clients immediately
			broadcastToLocal(message)

			// 2. If Valkey is active, propagate locally-originated frames
			// to other servers. Relayed frames already carry their
			// origin's sender id and must not be re-published.
			if vkClient != nil && message.SenderID == "" {
				publishToValkey(message)
			}
		}
	}
}

// Sink adapts the hub to the scheduler's notification interface: every
// notice becomes a broadcast frame. Delivery is best-effort; a full buffer
// drops the frame rather than stalling a publish.
type Sink struct{}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) NotifyScheduledContent(_ context.Context, n domain.ScheduledContentNotice) error {
	frame := BroadcastMessage{
		Code:    "SCHEDULE_" + strings.ToUpper(string(n.Action)),
		Message: n.Message,
		Result: map[string]any{
			"schedule_id":  n.ScheduleID,
			"content_type": n.ContentType,
			"content_id":   n.ContentID,
			"when":         n.When,
			"actor":        n.Actor,
		},
	}
	select {
	case Broadcast <- frame:
	default:
		logrus.Warnf("[WS] Broadcast buffer full, dropped frame for schedule %s", n.ScheduleID)
	}
	return nil
}

func RegisterRoutes(app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			Unregister <- conn
			_ = conn.Close()
		}()

		Register <- conn

		// The feed is one-way; the read loop only watches for close frames.
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
