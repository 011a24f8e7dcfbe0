package reco

import (
	"errors"
	"fmt"

	"github.com/next-exp/acreco_go/pkg/topology"
)

var (
	ErrNoSections           = errors.New("calibration has no sections")
	ErrIncompatibleTopology = errors.New("data topology is not a sub-block of the calibration topology")
	ErrMissingChannel       = errors.New("no features for channel")
	ErrNoPairs              = errors.New("data topology has no neighbor pad pairs")
)

// MissingSectionError is returned when a pad pair has no calibration section.
type MissingSectionError struct {
	Pads topology.PadPair
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("no calibration section for pads (%d, %d)", e.Pads.First, e.Pads.Second)
}

// CoverageError reports the first data pad without a normalization factor.
type CoverageError struct {
	Pad     topology.Pad
	Channel topology.Channel
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("normalization factor for pad %d (channel %d) not found", e.Pad, e.Channel)
}

// IncompatibleTopologyError names the first data pad missing from the
// calibration topology. Pad is topology.NoPad when every pad exists but the
// arrangement differs.
type IncompatibleTopologyError struct {
	Pad     topology.Pad
	Channel topology.Channel
}

func (e *IncompatibleTopologyError) Error() string {
	if e.Pad == topology.NoPad {
		return ErrIncompatibleTopology.Error() + ": pad arrangement differs"
	}
	return fmt.Sprintf("%v: pad %d (channel %d) not in calibration topology", ErrIncompatibleTopology, e.Pad, e.Channel)
}

func (e *IncompatibleTopologyError) Unwrap() error { return ErrIncompatibleTopology }

// DuplicateSectionError is returned by New when two sections share a pad pair.
type DuplicateSectionError struct {
	Pads topology.PadPair
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("duplicate calibration section for pads (%d, %d)", e.Pads.First, e.Pads.Second)
}
