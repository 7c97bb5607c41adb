package shade

import "errors"

var (
	// ErrTransport means every delivery attempt failed; the shade did not move.
	ErrTransport = errors.New("command not delivered")
	// ErrPositionUnknown rejects a relative move before any reference run.
	ErrPositionUnknown = errors.New("shade position unknown")
	// ErrOutOfRange rejects a travel time or position outside accepted bounds.
	ErrOutOfRange = errors.New("value out of range")

	ErrUnknownShade   = errors.New("unknown shade")
	ErrUnknownCommand = errors.New("unknown command")
	ErrDuplicateShade = errors.New("shade already exists")
)
