package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"meetingbingo/internal/domain"
	"meetingbingo/internal/match"
)

const (
	// DefaultRoomTTL is how long a room lives after creation.
	DefaultRoomTTL = time.Hour

	// DefaultSweepInterval is how often the reaper looks for expired rooms.
	DefaultSweepInterval = 5 * time.Minute
)

// RegistryConfig tunes room lifecycle and matching behavior.
type RegistryConfig struct {
	Mode          domain.GameMode
	RoomTTL       time.Duration
	SweepInterval time.Duration
	GapTolerance  int
}

// Registry owns every active room, keyed by meeting id. Rooms are created
// lazily on first join and removed by reset, expiry, or shutdown. It is the
// only process-wide mutable state. Joins run under the lock so membership and
// registration stay atomic; teardown (reset, sweep) collects rooms under the
// lock and shuts them down outside it.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	mode    domain.GameMode
	ttl     time.Duration
	matcher *match.Matcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewRegistry creates a registry and starts its expiry reaper.
func NewRegistry(cfg RegistryConfig, logger *slog.Logger) *Registry {
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = DefaultRoomTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeFreeSpace
	}

	r := &Registry{
		rooms:   make(map[string]*Room),
		mode:    cfg.Mode,
		ttl:     cfg.RoomTTL,
		matcher: match.New(cfg.GapTolerance),
		logger:  logger,
		done:    make(chan struct{}),
	}

	go r.reaperLoop(cfg.SweepInterval)

	return r
}

// Join adds a player to the meeting's room, creating the room if absent. The
// returned snapshot holds the other players only. The member is inserted while
// the registry lock is held so a concurrent reset or expiry sweep cannot
// orphan the join: Sends are non-blocking buffer puts, so holding the lock
// across the room's join broadcast is safe.
func (r *Registry) Join(meetingID, playerName, identity string) (string, []domain.PlayerSnapshot) {
	playerID := uuid.New().String()

	r.mu.Lock()
	room, ok := r.rooms[meetingID]
	if !ok {
		room = NewRoom(meetingID, r.mode, r.logger)
		r.rooms[meetingID] = room
		r.logger.Info("room created", "meetingId", meetingID, "mode", r.mode)
	}
	others := room.Join(playerID, playerName, identity)
	r.mu.Unlock()

	r.logger.Info("player joined",
		"meetingId", meetingID,
		"playerId", playerID,
		"playerName", playerName,
		"players", room.PlayerCount(),
	)

	return playerID, others
}

// GetRoom returns the room for a meeting id.
func (r *Registry) GetRoom(meetingID string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[meetingID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Leave marks the player disconnected, keeping their record for reconnect.
// Missing rooms and players are a no-op.
func (r *Registry) Leave(meetingID, playerID string) {
	room, err := r.GetRoom(meetingID)
	if err != nil {
		return
	}
	room.Leave(playerID)
}

// Mark marks a cell on the player's board and reports the bingo flag.
func (r *Registry) Mark(meetingID, playerID string, row, col int) (bool, error) {
	room, err := r.GetRoom(meetingID)
	if err != nil {
		return false, err
	}
	return room.Mark(playerID, row, col)
}

// SetWords assigns a player's card words.
func (r *Registry) SetWords(meetingID, playerID string, words domain.WordGrid) error {
	room, err := r.GetRoom(meetingID)
	if err != nil {
		return err
	}
	return room.SetWords(playerID, words)
}

// ApplyTranscript auto-marks the named player's card from a transcript and
// returns the matched cells.
func (r *Registry) ApplyTranscript(meetingID, playerID, transcript string) ([]domain.Cell, error) {
	room, err := r.GetRoom(meetingID)
	if err != nil {
		return nil, err
	}
	return room.ApplyTranscript(playerID, transcript, r.matcher)
}

// Snapshot returns the public state of every player in the room.
func (r *Registry) Snapshot(meetingID string) ([]domain.PlayerSnapshot, error) {
	room, err := r.GetRoom(meetingID)
	if err != nil {
		return nil, err
	}
	return room.Snapshot(""), nil
}

// Reset tears down one room: members are notified, connections force-closed,
// and the room removed. Resetting an absent room succeeds.
func (r *Registry) Reset(meetingID string) {
	r.mu.Lock()
	room, ok := r.rooms[meetingID]
	if ok {
		delete(r.rooms, meetingID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	room.Shutdown(domain.NewRoomResetEvent("Game has been reset"))
	r.logger.Info("room reset", "meetingId", meetingID)
}

// ResetAll tears down every room.
func (r *Registry) ResetAll() int {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()

	for _, room := range rooms {
		room.Shutdown(domain.NewRoomResetEvent("Server reset - all games cleared"))
	}

	r.logger.Info("all rooms reset", "rooms", len(rooms))
	return len(rooms)
}

// RoomCount returns the number of active rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close stops the reaper and force-closes every room's connections.
func (r *Registry) Close() {
	select {
	case <-r.done:
		return
	default:
		close(r.done)
	}

	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()

	for _, room := range rooms {
		room.Shutdown(domain.NewRoomResetEvent("Server shutting down"))
	}
}

// reaperLoop periodically evicts rooms older than the TTL.
func (r *Registry) reaperLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.SweepExpired(time.Now())
		}
	}
}

// SweepExpired removes every room whose age exceeds the TTL, notifying and
// disconnecting its members. One room's teardown cannot abort the sweep for
// the others.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	expired := make([]*Room, 0)
	for meetingID, room := range r.rooms {
		if now.Sub(room.CreatedAt()) > r.ttl {
			expired = append(expired, room)
			delete(r.rooms, meetingID)
		}
	}
	remaining := len(r.rooms)
	r.mu.Unlock()

	for _, room := range expired {
		age := now.Sub(room.CreatedAt())
		r.logger.Info("room expired",
			"meetingId", room.MeetingID(),
			"ageMinutes", int(age.Minutes()),
		)
		room.Shutdown(domain.NewRoomExpiredEvent("Game session expired"))
	}

	if len(expired) > 0 {
		r.logger.Info("expired rooms removed", "removed", len(expired), "remaining", remaining)
	}
	return len(expired)
}
