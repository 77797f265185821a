package app

// Best-effort fan-out to the room's live connections. Delivery failures are
// isolated per recipient: a connection that fails a send is pruned and its
// player marked disconnected, which is the system's only disconnect detection
// for write failures.

import "meetingbingo/internal/domain"

// broadcastLocked delivers the event to every connection except the excluded
// player. Caller must hold r.mu.
func (r *Room) broadcastLocked(event domain.Event, excludePlayerID string) {
	var dead []string
	for playerID, conn := range r.conns {
		if playerID == excludePlayerID {
			continue
		}
		if err := conn.Send(event); err != nil {
			r.logger.Debug("send failed, pruning connection",
				"meetingId", r.meetingID,
				"playerId", playerID,
				"error", err,
			)
			dead = append(dead, playerID)
		}
	}

	for _, playerID := range dead {
		r.dropConnLocked(playerID)
		if player, ok := r.players[playerID]; ok {
			player.Connected = false
		}
	}
}

// dropConnLocked closes and removes the player's connection if one is live.
// Caller must hold r.mu.
func (r *Room) dropConnLocked(playerID string) {
	if conn, ok := r.conns[playerID]; ok {
		conn.Close()
		delete(r.conns, playerID)
	}
}
