package topology

import "fmt"

// Size is the physical extent of a pad: Width along columns, Height along rows.
type Size struct {
	Width  float64
	Height float64
}

func validSize(s Size) bool {
	if s.Width < 0 || s.Height < 0 {
		return false
	}
	return s.Width != 0 || s.Height != 0
}

// SetUniformPadSize gives every pad, present and future, the same size.
func (t *Topology) SetUniformPadSize(width float64, height float64) error {
	s := Size{Width: width, Height: height}
	if !validSize(s) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidSize, width, height)
	}
	for pad := range t.channelOf {
		t.sizes[pad] = s
	}
	t.uniform = &s
	return nil
}

// SetPadSize overrides the size of one pad and leaves uniform mode.
func (t *Topology) SetPadSize(pad Pad, width float64, height float64) error {
	s := Size{Width: width, Height: height}
	if !validSize(s) {
		return fmt.Errorf("pad %d: %w: %gx%g", pad, ErrInvalidSize, width, height)
	}
	if _, ok := t.channelOf[pad]; !ok {
		return fmt.Errorf("pad %d: %w", pad, ErrPadNotFound)
	}
	t.uniform = nil
	t.sizes[pad] = s
	return nil
}

// PadSize returns the size of pad, or false when none was set.
func (t *Topology) PadSize(pad Pad) (Size, bool) {
	if t.uniform != nil {
		return *t.uniform, true
	}
	s, ok := t.sizes[pad]
	return s, ok
}

func (t *Topology) UniformPadSize() (Size, bool) {
	if t.uniform == nil {
		return Size{}, false
	}
	return *t.uniform, true
}
