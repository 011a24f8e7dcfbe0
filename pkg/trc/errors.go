package trc

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound    = errors.New("trace file not found")
	ErrRead            = errors.New("error reading trace file")
	ErrInvalidFormat   = errors.New("invalid trace format")
	ErrZeroSampleCount = errors.New("trace declares zero samples")
)

// Result codes written next to decoded data, as produced by the acquisition tools.
const (
	CodeSuccess         = 0
	CodeFileNotFound    = -1
	CodeReadError       = -2
	CodeInvalidFormat   = -3
	CodeZeroSampleCount = -4
)

// Code maps a decode error to its numeric result code.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrFileNotFound):
		return CodeFileNotFound
	case errors.Is(err, ErrRead):
		return CodeReadError
	case errors.Is(err, ErrZeroSampleCount):
		return CodeZeroSampleCount
	default:
		return CodeInvalidFormat
	}
}

// ErrSampleWindow reports a sample array that does not fit in the buffer.
type ErrSampleWindow struct {
	Start  int
	Length int
	Size   int
}

func (e *ErrSampleWindow) Error() string {
	return fmt.Sprintf("sample array [%d, %d) exceeds buffer of %d bytes", e.Start, e.Start+e.Length, e.Size)
}

func (e *ErrSampleWindow) Unwrap() error {
	return ErrInvalidFormat
}
