package app

import (
	"log/slog"
	"sync"
	"time"

	"meetingbingo/internal/domain"
	"meetingbingo/internal/match"
)

// ClientConn is the live connection handle a room keeps per player.
type ClientConn interface {
	Send(event domain.Event) error
	Close() error
}

// Room is the authoritative state container for one meeting. All access goes
// through its mutex; a room never exposes its internal maps.
type Room struct {
	meetingID string
	mode      domain.GameMode
	createdAt time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	players map[string]*domain.PlayerState
	conns   map[string]ClientConn
}

// NewRoom creates an empty room for a meeting.
func NewRoom(meetingID string, mode domain.GameMode, logger *slog.Logger) *Room {
	return &Room{
		meetingID: meetingID,
		mode:      mode,
		createdAt: time.Now(),
		logger:    logger,
		players:   make(map[string]*domain.PlayerState),
		conns:     make(map[string]ClientConn),
	}
}

// MeetingID returns the external room key.
func (r *Room) MeetingID() string {
	return r.meetingID
}

// CreatedAt returns when the room was created; used only for expiry.
func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// Mode returns the room's game mode.
func (r *Room) Mode() domain.GameMode {
	return r.mode
}

// PlayerCount returns the number of player records, connected or not.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Join sweeps stale player records sharing the joiner's identity signal,
// inserts a new player, notifies the rest of the room, and returns the new
// player's id plus a snapshot of the other players.
func (r *Room) Join(playerID, playerName, identity string) []domain.PlayerSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stale := range r.staleRecordsLocked(playerName, identity) {
		r.logger.Info("removing stale player",
			"meetingId", r.meetingID,
			"playerId", stale.ID,
			"playerName", stale.Name,
		)
		r.dropConnLocked(stale.ID)
		delete(r.players, stale.ID)
		r.broadcastLocked(domain.NewPlayerLeftEvent(stale.ID, stale.Name), "")
	}

	player := domain.NewPlayer(playerID, playerName, identity, r.mode)
	r.players[playerID] = player

	r.broadcastLocked(domain.NewPlayerJoinedEvent(player.Snapshot()), playerID)

	return r.snapshotLocked(playerID)
}

// staleRecordsLocked returns the player records the join-time dedup sweep
// should remove. Free-space mode matches disconnected players by display
// name; full-card mode matches by client identity regardless of connection
// state.
func (r *Room) staleRecordsLocked(playerName, identity string) []*domain.PlayerState {
	var stale []*domain.PlayerState
	for _, p := range r.players {
		switch r.mode {
		case domain.ModeFullCard:
			if identity != "" && p.Identity == identity {
				stale = append(stale, p)
			}
		default:
			if p.Name == playerName && !p.Connected {
				stale = append(stale, p)
			}
		}
	}
	return stale
}

// Leave marks the player disconnected and notifies the room. The player
// record is kept so board progress survives a reconnect. Unknown players are
// a no-op.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return
	}

	player.Connected = false
	r.dropConnLocked(playerID)
	r.broadcastLocked(domain.NewPlayerLeftEvent(player.ID, player.Name), "")
}

// Mark sets a cell on the player's board, recomputes bingo, and broadcasts
// the update to every room member including the actor. The bingo event fires
// only when the flag transitions to true.
func (r *Room) Mark(playerID string, row, col int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return false, domain.ErrPlayerNotFound
	}
	if !(domain.Cell{Row: row, Col: col}).InBounds() {
		return player.HasBingo, domain.ErrInvalidCell
	}

	newBingo := player.Mark(row, col)

	r.broadcastLocked(domain.NewPlayerUpdatedEvent(player.Snapshot()), "")
	if newBingo {
		r.broadcastLocked(domain.NewBingoEvent(player.ID, player.Name), "")
	}

	return player.HasBingo, nil
}

// SetWords assigns the player's card words.
func (r *Room) SetWords(playerID string, words domain.WordGrid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	player.Words = words
	player.Touch()
	return nil
}

// ApplyTranscript matches the transcript against the player's own card and
// marks every matched cell. One player_updated broadcast covers all marks;
// bingo fires at most once, on the transition.
func (r *Room) ApplyTranscript(playerID, transcript string, matcher *match.Matcher) ([]domain.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}

	cells := matcher.FindMatches(transcript, player.Words)
	if len(cells) == 0 {
		return nil, nil
	}

	newBingo := false
	for _, c := range cells {
		if player.Mark(c.Row, c.Col) {
			newBingo = true
		}
	}

	r.broadcastLocked(domain.NewPlayerUpdatedEvent(player.Snapshot()), "")
	if newBingo {
		r.broadcastLocked(domain.NewBingoEvent(player.ID, player.Name), "")
	}

	return cells, nil
}

// Snapshot returns the public state of every player except the excluded one.
func (r *Room) Snapshot(excludePlayerID string) []domain.PlayerSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(excludePlayerID)
}

func (r *Room) snapshotLocked(excludePlayerID string) []domain.PlayerSnapshot {
	snapshots := make([]domain.PlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		if p.ID == excludePlayerID {
			continue
		}
		snapshots = append(snapshots, p.Snapshot())
	}
	return snapshots
}

// Attach registers a live connection for a known player, marks them
// connected, announces the reconnect to the rest of the room, and returns the
// snapshot for the initial sync message. A previous connection for the same
// player is closed and replaced.
func (r *Room) Attach(playerID string, conn ClientConn) ([]domain.PlayerSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}

	if old, ok := r.conns[playerID]; ok {
		old.Close()
	}
	r.conns[playerID] = conn
	player.Connected = true
	player.Touch()

	r.broadcastLocked(domain.NewPlayerReconnectedEvent(player.ID, player.Name), playerID)

	return r.snapshotLocked(playerID), nil
}

// Disconnect handles a dropped connection detected by the read loop. It is
// idempotent and converges with the broadcast-failure path: the connection is
// removed, the player marked disconnected, and peers notified once. A
// non-nil conn identifies the caller's connection so a stale read loop cannot
// tear down a replacement; nil forces the disconnect.
func (r *Room) Disconnect(playerID string, conn ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn != nil {
		if current, ok := r.conns[playerID]; ok && current != conn {
			return
		}
	}

	r.dropConnLocked(playerID)

	player, ok := r.players[playerID]
	if !ok || !player.Connected {
		return
	}
	player.Connected = false
	r.broadcastLocked(domain.NewPlayerDisconnectedEvent(player.ID, player.Name), playerID)
}

// Ping refreshes the player's activity timestamp.
func (r *Room) Ping(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if player, ok := r.players[playerID]; ok {
		player.Touch()
	}
}

// Shutdown notifies every member with the given event, force-closes all
// connections, and marks everyone disconnected. Used by reset and expiry.
func (r *Room) Shutdown(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(event, "")

	for id, conn := range r.conns {
		conn.Close()
		delete(r.conns, id)
	}
	for _, p := range r.players {
		p.Connected = false
	}
}
