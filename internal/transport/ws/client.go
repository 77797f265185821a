package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meetingbingo/internal/app"
	"meetingbingo/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

var errClientGone = errors.New("client closed or send buffer full")

// Client represents a WebSocket client connection for one player in one room
type Client struct {
	conn     *websocket.Conn
	room     *app.Room
	playerID string
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, room *app.Room, playerID string, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		room:     room,
		playerID: playerID,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Send implements app.ClientConn. A closed client or a full send buffer is
// reported as an error so the broadcast path can prune this connection.
func (c *Client) Send(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientGone
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errClientGone
	}
}

// Close implements app.ClientConn. It stops the client accepting new events;
// the write pump drains everything already queued, sends the close frame, and
// only then closes the socket, so final notifications such as a room reset
// still reach the peer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return nil
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection. Its exit is the
// inbound-side disconnect path and must converge with broadcast-failure
// pruning, so it funnels into Room.Disconnect.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.room.Disconnect(c.playerID, c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// On Close it drains the queue before the close frame; the socket itself is
// closed only when the pump exits.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.drainPending()
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainPending writes the events queued before Close, then the close frame.
// Close set the closed flag first, so nothing new can enter the channel while
// this runs.
func (c *Client) drainPending() {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Send(domain.NewErrorEvent("Invalid message format"))
		return
	}

	switch msg.Type {
	case MsgMarkCell:
		c.handleMarkCell(msg)
	case MsgPing:
		c.room.Ping(c.playerID)
		c.Send(domain.NewPongEvent())
	default:
		c.Send(domain.NewErrorEvent("Unknown message type"))
	}
}

// handleMarkCell marks a cell on the player's own board
func (c *Client) handleMarkCell(msg ClientMessage) {
	if msg.Row == nil || msg.Col == nil {
		c.Send(domain.NewErrorEvent("row and col are required"))
		return
	}

	if _, err := c.room.Mark(c.playerID, *msg.Row, *msg.Col); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCell):
			c.Send(domain.NewErrorEvent("Cell out of range"))
		case errors.Is(err, domain.ErrPlayerNotFound):
			c.Send(domain.NewErrorEvent("Player not found"))
		default:
			c.Send(domain.NewErrorEvent(err.Error()))
		}
	}
}
