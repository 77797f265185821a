package domain

// EventType tags a real-time message sent to clients.
type EventType string

const (
	EventSync               EventType = "sync"
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerUpdated      EventType = "player_updated"
	EventBingo              EventType = "bingo"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventRoomReset          EventType = "room_reset"
	EventRoomExpired        EventType = "room_expired"
	EventError              EventType = "error"
	EventPong               EventType = "pong"
)

// Event is the closed set of messages on the real-time channel. Exactly one
// constructor exists per EventType; unused fields are omitted on the wire.
type Event struct {
	Type       EventType        `json:"type"`
	Player     *PlayerSnapshot  `json:"player,omitempty"`
	Players    []PlayerSnapshot `json:"players,omitempty"`
	PlayerID   string           `json:"playerId,omitempty"`
	PlayerName string           `json:"playerName,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// NewSyncEvent carries the initial snapshot of the other players on connect.
func NewSyncEvent(players []PlayerSnapshot) Event {
	return Event{Type: EventSync, Players: players}
}

// NewPlayerJoinedEvent announces a new player to the rest of the room.
func NewPlayerJoinedEvent(p PlayerSnapshot) Event {
	return Event{Type: EventPlayerJoined, Player: &p}
}

// NewPlayerUpdatedEvent carries a player's full snapshot after a board change.
func NewPlayerUpdatedEvent(p PlayerSnapshot) Event {
	return Event{Type: EventPlayerUpdated, Player: &p}
}

// NewBingoEvent names a player whose board just reached bingo.
func NewBingoEvent(playerID, playerName string) Event {
	return Event{Type: EventBingo, PlayerID: playerID, PlayerName: playerName}
}

// NewPlayerLeftEvent announces that a player record left the room.
func NewPlayerLeftEvent(playerID, playerName string) Event {
	return Event{Type: EventPlayerLeft, PlayerID: playerID, PlayerName: playerName}
}

// NewPlayerDisconnectedEvent announces a dropped connection; the player record
// survives for reconnect.
func NewPlayerDisconnectedEvent(playerID, playerName string) Event {
	return Event{Type: EventPlayerDisconnected, PlayerID: playerID, PlayerName: playerName}
}

// NewPlayerReconnectedEvent announces that a known player re-attached.
func NewPlayerReconnectedEvent(playerID, playerName string) Event {
	return Event{Type: EventPlayerReconnected, PlayerID: playerID, PlayerName: playerName}
}

// NewRoomResetEvent tells clients the room is being torn down by request.
func NewRoomResetEvent(message string) Event {
	return Event{Type: EventRoomReset, Message: message}
}

// NewRoomExpiredEvent tells clients the room passed its TTL.
func NewRoomExpiredEvent(message string) Event {
	return Event{Type: EventRoomExpired, Message: message}
}

// NewErrorEvent reports a channel-level error to one client.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// NewPongEvent answers a client ping.
func NewPongEvent() Event {
	return Event{Type: EventPong}
}
