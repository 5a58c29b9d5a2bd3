package ws

// ClientFrame is a JSON frame sent by a connected client.
type ClientFrame struct {
	Type    string `json:"type"`
	Room    Room   `json:"room"`
	Content string `json:"content,omitempty"`
}

// Client frame types.
const (
	FrameJoin  = "join"
	FrameLeave = "leave"
	FrameSend  = "send"
)

// ServerFrame is a JSON frame pushed to connected clients. Message holds
// either a models.Message or a models.ItemMessage depending on the room kind.
type ServerFrame struct {
	Type    string      `json:"type"`
	Room    *Room       `json:"room,omitempty"`
	Message interface{} `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server frame types.
const (
	FrameMessage = "message"
	FrameAck     = "ack"
	FrameError   = "error"
)
