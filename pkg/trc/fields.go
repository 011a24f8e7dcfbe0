package trc

import (
	"bytes"
	"encoding/binary"
	"math"
)

// fieldReader decodes descriptor fields at offsets relative to the WAVEDESC
// marker. A field that does not fit in the buffer decodes to its zero value.
type fieldReader struct {
	data  []byte
	base  int
	order binary.ByteOrder
}

func (r fieldReader) field(offset int, length int) ([]byte, bool) {
	start := r.base + offset
	if offset < 0 || start < 0 || start+length > len(r.data) {
		return nil, false
	}
	return r.data[start : start+length], true
}

func (r fieldReader) byteAt(offset int) uint8 {
	b, ok := r.field(offset, 1)
	if !ok {
		return 0
	}
	return b[0]
}

func (r fieldReader) int16(offset int) int16 {
	b, ok := r.field(offset, 2)
	if !ok {
		return 0
	}
	return int16(r.order.Uint16(b))
}

func (r fieldReader) int32(offset int) int32 {
	b, ok := r.field(offset, 4)
	if !ok {
		return 0
	}
	return int32(r.order.Uint32(b))
}

func (r fieldReader) float32(offset int) float32 {
	b, ok := r.field(offset, 4)
	if !ok {
		return 0
	}
	return math.Float32frombits(r.order.Uint32(b))
}

func (r fieldReader) float64(offset int) float64 {
	b, ok := r.field(offset, 8)
	if !ok {
		return 0
	}
	return math.Float64frombits(r.order.Uint64(b))
}

// string reads a fixed width, NUL terminated text field.
func (r fieldReader) string(offset int, length int) string {
	b, ok := r.field(offset, length)
	if !ok {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
