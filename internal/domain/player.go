package domain

import "time"

// PlayerState is one participant's identity and board state within a room.
type PlayerState struct {
	ID           string
	Name         string
	Identity     string // observed network origin of the join request; never serialized
	Marked       CellGrid
	Words        WordGrid
	HasBingo     bool
	Connected    bool
	LastActivity time.Time
}

// NewPlayer creates a connected player. In free-space mode the center cell is
// marked from the start.
func NewPlayer(id, name, identity string, mode GameMode) *PlayerState {
	p := &PlayerState{
		ID:           id,
		Name:         name,
		Identity:     identity,
		Connected:    true,
		LastActivity: time.Now(),
	}
	if mode == ModeFreeSpace {
		p.Marked[BoardSize/2][BoardSize/2] = true
	}
	return p
}

// Mark sets a cell and recomputes the bingo flag. It reports whether the flag
// transitioned from false to true. Marking an already-marked cell leaves the
// grid unchanged.
func (p *PlayerState) Mark(row, col int) (newBingo bool) {
	p.Marked[row][col] = true
	p.LastActivity = time.Now()
	had := p.HasBingo
	p.HasBingo = HasBingo(p.Marked)
	return p.HasBingo && !had
}

// Touch refreshes the activity timestamp (keep-alive).
func (p *PlayerState) Touch() {
	p.LastActivity = time.Now()
}

// PlayerSnapshot is the public view of a player shared with other
// participants. The client identity and card words stay private.
type PlayerSnapshot struct {
	PlayerID    string   `json:"playerId"`
	PlayerName  string   `json:"playerName"`
	MarkedCells CellGrid `json:"markedCells"`
	HasBingo    bool     `json:"hasBingo"`
	Connected   bool     `json:"connected"`
}

// Snapshot returns the player's public view.
func (p *PlayerState) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		MarkedCells: p.Marked,
		HasBingo:    p.HasBingo,
		Connected:   p.Connected,
	}
}
