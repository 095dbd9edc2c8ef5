package session

import "errors"

// Decode failures. Every one of them feeds the same self-heal path in Store.
var (
	ErrNoRecord           = errors.New("no persisted session")
	ErrMalformedRecord    = errors.New("malformed session record")
	ErrMissingField       = errors.New("missing required field")
	ErrNotCorroborated    = errors.New("session record not corroborated by legacy markers")
	ErrInsufficientLegacy = errors.New("insufficient legacy session data")
	ErrUnsupportedSchema  = errors.New("unsupported session schema version")

	// ErrKeyNotFound is returned by Storage implementations for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)
