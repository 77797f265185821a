package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidCell    = errors.New("cell out of range")
)
