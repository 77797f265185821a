package domain

// GameMode selects the card and reconnect-dedup rules for a room.
type GameMode string

const (
	// ModeFreeSpace pre-marks the center cell as a free space. Stale player
	// records are swept on join by display name, but only when disconnected.
	ModeFreeSpace GameMode = "free-space"

	// ModeFullCard treats the center as a regular word cell. Stale player
	// records are swept on join by client identity regardless of connection
	// state.
	ModeFullCard GameMode = "full-card"
)

// ParseGameMode maps a config string to a GameMode, defaulting to free-space.
func ParseGameMode(s string) GameMode {
	if GameMode(s) == ModeFullCard {
		return ModeFullCard
	}
	return ModeFreeSpace
}
