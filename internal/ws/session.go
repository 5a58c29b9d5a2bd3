package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// Ingestor is the message ingestion pipeline as the realtime transport sees
// it: one entry point per delivery model.
type Ingestor interface {
	SendToConversation(ctx context.Context, senderID, conversationID int, content string) (models.Message, error)
	SendToItem(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error)
}

// TokenValidator authenticates a bearer token into a principal.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (clients.Principal, error)
}

// SessionHandler upgrades websocket connections and runs one session per
// connection. A session may join any number of rooms; conversation rooms
// require participancy, item rooms admit any authenticated user.
type SessionHandler struct {
	hub       *Hub
	convRepo  repositories.ConversationRepository
	ingestor  Ingestor
	auth      TokenValidator
	frameWait time.Duration
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(hub *Hub, convRepo repositories.ConversationRepository, ingestor Ingestor, auth TokenValidator) *SessionHandler {
	return &SessionHandler{
		hub:       hub,
		convRepo:  convRepo,
		ingestor:  ingestor,
		auth:      auth,
		frameWait: 10 * time.Second,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts the session loop.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	principal, err := h.validateToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := newSafeConn(raw)

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      principal.ID,
		UserName:    principal.Name,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive("session")
	observability.IncWSEvent("session", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   sessionEventPayload(info, "ws_connect", 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go h.run(conn, info)
}

// run is the per-connection session loop. It owns the set of rooms this
// connection has joined and tears all of them down on exit, so an abrupt
// disconnect needs no explicit leave from the client.
func (h *SessionHandler) run(conn *safeConn, info ConnInfo) {
	joined := make(map[Room]struct{})
	var closeReason string

	defer func() {
		for room := range joined {
			h.hub.Leave(room, conn)
		}
		observability.DecWSActive("session")
		observability.IncWSEvent("session", "ws_disconnect")
		_ = observability.PublishEvent(context.Background(), "ws_events.sessions", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   sessionEventPayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("session", "ws_error")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.writeError(conn, "malformed frame")
			continue
		}
		h.handleFrame(conn, info, joined, frame)
	}
}

func (h *SessionHandler) handleFrame(conn *safeConn, info ConnInfo, joined map[Room]struct{}, frame ClientFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), h.frameWait)
	defer cancel()

	if !frame.Room.Kind.Valid() {
		h.writeError(conn, "unknown room kind")
		return
	}

	switch frame.Type {
	case FrameJoin:
		if frame.Room.Kind == RoomConversation {
			member, err := h.convRepo.IsParticipant(ctx, frame.Room.ID, info.UserID)
			if err != nil || !member {
				h.writeError(conn, "not authorized for conversation")
				return
			}
		}
		h.hub.Join(frame.Room, conn, info)
		observability.IncWSEvent(string(frame.Room.Kind), "room_join")
	case FrameLeave:
		h.hub.Leave(frame.Room, conn)
		delete(joined, frame.Room)
		observability.IncWSEvent(string(frame.Room.Kind), "room_leave")
		return
	case FrameSend:
		h.handleSend(ctx, conn, info, frame)
		return
	default:
		h.writeError(conn, "unknown frame type")
		return
	}
	joined[frame.Room] = struct{}{}
}

func (h *SessionHandler) handleSend(ctx context.Context, conn *safeConn, info ConnInfo, frame ClientFrame) {
	var (
		msg interface{}
		err error
	)
	switch frame.Room.Kind {
	case RoomConversation:
		msg, err = h.ingestor.SendToConversation(ctx, info.UserID, frame.Room.ID, frame.Content)
	case RoomItem:
		msg, err = h.ingestor.SendToItem(ctx, frame.Room.ID, info.UserID, info.UserName, frame.Content)
	}
	if err != nil {
		h.writeError(conn, err.Error())
		return
	}

	// The broadcast already reached this connection if it joined the room;
	// the ack covers senders that post without joining.
	room := frame.Room
	ack := ServerFrame{Type: FrameAck, Room: &room, Message: msg}
	payload, merr := json.Marshal(ack)
	if merr != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *SessionHandler) writeError(conn *safeConn, reason string) {
	payload, err := json.Marshal(ServerFrame{Type: FrameError, Error: reason})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *SessionHandler) validateToken(ctx context.Context, header string) (clients.Principal, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.auth.ValidateToken(ctx, parts[1])
	}
	return clients.Principal{}, errors.New("invalid token")
}

func sessionEventPayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "session",
			"resource_id": 0,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
