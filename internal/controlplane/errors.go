package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrNoGameState = errors.New("no game state stored")
)
