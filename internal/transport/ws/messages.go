package ws

// MessageType represents the type of an inbound WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgMarkCell MessageType = "mark_cell"
	MsgPing     MessageType = "ping"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type MessageType `json:"type"`
	Row  *int        `json:"row,omitempty"`
	Col  *int        `json:"col,omitempty"`
}
