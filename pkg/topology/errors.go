package topology

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID        = errors.New("channel and pad ids must be positive")
	ErrInvalidPosition  = errors.New("pad column and row must not be negative")
	ErrDuplicateChannel = errors.New("channel already mapped")
	ErrDuplicatePad     = errors.New("pad already mapped")
	ErrCellOccupied     = errors.New("grid cell already holds a pad")
	ErrFinalized        = errors.New("topology is finalized")
	ErrPadNotFound      = errors.New("pad not found")
	ErrNoNeighbor       = errors.New("pad has no neighbor in that direction")
	ErrInvalidSize      = errors.New("invalid pad size")
)

// MappingError reports a rejected channel to pad mapping.
type MappingError struct {
	Channel Channel
	Pad     Pad
	Err     error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping channel %d to pad %d: %v", e.Channel, e.Pad, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
