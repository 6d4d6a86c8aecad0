package measure

import "errors"

var (
	// ErrEmptyCommand indicates a measurement was requested for an
	// empty or absent command. Checked before any process is spawned.
	ErrEmptyCommand = errors.New("measure: command cannot be empty")

	// ErrNegativeValue indicates a result field below zero. Reaching it
	// means an internal invariant was violated, not a caller mistake.
	ErrNegativeValue = errors.New("measure: negative value")
)
