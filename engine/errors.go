package engine

import "errors"

var (
	// ErrChainInactive is returned when a trigger is dispatched against a
	// deactivated chain. No execution record is created.
	ErrChainInactive = errors.New("engine: chain is not active")
	// ErrNotFound is returned when the dispatched chain id or routing token
	// matches nothing.
	ErrNotFound = errors.New("engine: not found")
)
