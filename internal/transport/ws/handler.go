package ws

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"meetingbingo/internal/app"
	"meetingbingo/internal/domain"
)

// Handler handles WebSocket connections at /ws/{meetingId}/{playerId}
type Handler struct {
	registry *app.Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(registry *app.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checks are handled by the CORS layer for REST; the
				// game has no auth, so the channel accepts any origin.
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection, validates the room and player, sends the
// initial sync snapshot, and runs the client pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	meetingID := vars["meetingId"]
	playerID := vars["playerId"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	room, err := h.registry.GetRoom(meetingID)
	if err != nil {
		h.rejectConn(conn, "Room not found")
		return
	}

	client := NewClient(conn, room, playerID, h.logger)

	others, err := room.Attach(playerID, client)
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotFound) {
			h.rejectConn(conn, "Player not found")
		} else {
			h.rejectConn(conn, "Connection rejected")
		}
		return
	}

	client.Send(domain.NewSyncEvent(others))

	h.logger.Info("websocket connected",
		"meetingId", meetingID,
		"playerId", playerID,
	)

	client.Run()
}

// rejectConn reports the failure to the peer and closes the raw connection.
func (h *Handler) rejectConn(conn *websocket.Conn, message string) {
	conn.WriteJSON(domain.NewErrorEvent(message))
	conn.Close()
}
