package trc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	marker       = "WAVEDESC"
	markerWindow = 50
)

// Waveform holds the time axis in seconds and the amplitudes in volts.
type Waveform struct {
	Time      []float64
	Amplitude []float64
}

func (w Waveform) Len() int {
	return len(w.Time)
}

type Trace struct {
	Header   Header
	Waveform Waveform
}

// Decode parses a LeCroy .trc buffer.
//
// When decimate > 0 and the trace holds more samples, exactly decimate
// samples are kept, taken every n/decimate samples starting from the first
// one. No averaging or filtering is applied.
func Decode(data []byte, decimate int) (*Trace, error) {
	window := data
	if len(window) > markerWindow {
		window = window[:markerWindow]
	}
	base := bytes.Index(window, []byte(marker))
	if base < 0 {
		return nil, fmt.Errorf("%w: %s marker not found", ErrInvalidFormat, marker)
	}

	r := fieldReader{data: data, base: base, order: byteOrder(data, base)}
	header := parseHeader(r)

	start := int64(base) + int64(header.WaveDescriptor) + int64(header.UserText) + int64(header.TrigTimeArray)
	length := int64(header.WaveArray1)
	if header.WaveDescriptor < 0 || header.UserText < 0 || header.TrigTimeArray < 0 || length < 0 ||
		start+length > int64(len(data)) {
		return nil, &ErrSampleWindow{Start: int(start), Length: int(length), Size: len(data)}
	}
	if header.WaveArrayCount == 0 {
		return nil, ErrZeroSampleCount
	}

	raw := data[start : start+length]
	amplitude := decodeSamples(raw, &header)
	time := make([]float64, len(amplitude))
	for i := range time {
		time[i] = float64(float32(i)*header.HorizInterval) + header.HorizOffset
	}

	trace := &Trace{
		Header:   header,
		Waveform: Waveform{Time: time, Amplitude: amplitude},
	}
	if decimate > 0 && len(time) > decimate {
		trace.Waveform = trace.Waveform.decimate(decimate)
	}
	return trace, nil
}

// byteOrder reads the COMM_ORDER flag. Big endian files store 0 as 00 00,
// little endian files store 1 as 01 00, so the raw bytes decide the order
// regardless of the host.
func byteOrder(data []byte, base int) binary.ByteOrder {
	probe := fieldReader{data: data, base: base, order: binary.LittleEndian}
	if probe.int16(offCommOrder) == 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decodeSamples(raw []byte, h *Header) []float64 {
	width := h.SampleWidth()
	n := len(raw) / width
	amplitude := make([]float64, n)
	for i := 0; i < n; i++ {
		var value float32
		if width == 1 {
			value = float32(int8(raw[i]))
		} else {
			value = float32(int16(h.Order.Uint16(raw[2*i:])))
		}
		amplitude[i] = float64(h.VerticalGain*value - h.VerticalOffset)
	}
	return amplitude
}

func (w Waveform) decimate(target int) Waveform {
	stride := len(w.Time) / target
	out := Waveform{
		Time:      make([]float64, target),
		Amplitude: make([]float64, target),
	}
	for i := 0; i < target; i++ {
		out.Time[i] = w.Time[i*stride]
		out.Amplitude[i] = w.Amplitude[i*stride]
	}
	return out
}
