package ws

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/observability"
)

// Conn is the slice of *websocket.Conn the hub needs. Narrowing it keeps the
// registry testable without a network.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const hubShards = 16

type shard struct {
	mu    sync.RWMutex
	rooms map[Room]map[Conn]ConnInfo
}

// Hub owns all live room membership. The registry is sharded by room so a
// broadcast never takes a global lock; each shard guards a map from room to
// its current member connections.
type Hub struct {
	shards [hubShards]*shard
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i] = &shard{rooms: make(map[Room]map[Conn]ConnInfo)}
	}
	return h
}

func (h *Hub) shardFor(room Room) *shard {
	f := fnv.New32a()
	f.Write([]byte(room.String()))
	return h.shards[f.Sum32()%hubShards]
}

// Join registers a connection as a member of a room. Joining a room the
// connection already belongs to is a no-op.
func (h *Hub) Join(room Room, conn Conn, info ConnInfo) {
	s := h.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[room]
	if !ok {
		members = make(map[Conn]ConnInfo)
		s.rooms[room] = members
	}
	if _, joined := members[conn]; joined {
		return
	}
	members[conn] = info
}

// Leave removes a connection from a room. Leaving a room the connection is
// not a member of is a no-op. Empty rooms are dropped from the registry.
func (h *Hub) Leave(room Room, conn Conn) {
	s := h.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
}

// IsMember reports whether the connection currently belongs to the room.
func (h *Hub) IsMember(room Room, conn Conn) bool {
	s := h.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room][conn]
	return ok
}

// RoomSize returns the current number of members in a room.
func (h *Hub) RoomSize(room Room) int {
	s := h.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}

// Broadcast sends the frame to every current member of the room, the sender
// included, and returns the number of connections written to. Connections
// whose write fails are closed and evicted. Broadcast is called only after
// the message has been persisted.
func (h *Hub) Broadcast(room Room, frame ServerFrame) int {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return 0
	}

	s := h.shardFor(room)
	s.mu.RLock()
	conns := make(map[Conn]ConnInfo, len(s.rooms[room]))
	for conn, info := range s.rooms[room] {
		conns[conn] = info
	}
	s.mu.RUnlock()

	delivered := 0
	for conn, info := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.Leave(room, conn)
			h.publishWSError(room, info, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) publishWSError(room Room, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        string(room.Kind),
			"resource_id": room.ID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(room.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(string(room.Kind), "ws_error")
}

func wsRoutingKey(kind RoomKind) string {
	if kind == RoomItem {
		return "ws_events.items"
	}
	return "ws_events.conversations"
}
