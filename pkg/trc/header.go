package trc

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const Unknown = "Unknown"

// Descriptor offsets, relative to the WAVEDESC marker.
const (
	offTemplateName     = 16
	offCommType         = 32
	offCommOrder        = 34
	offWaveDescriptor   = 36
	offUserText         = 40
	offTrigTimeArray    = 48
	offWaveArray1       = 60
	offInstrumentName   = 76
	offInstrumentNumber = 92
	offWaveArrayCount   = 116
	offVerticalGain     = 156
	offVerticalOffset   = 160
	offNominalBits      = 172
	offHorizInterval    = 176
	offHorizOffset      = 180
	offTriggerTime      = 296
	offRecordType       = 316
	offProcessingDone   = 318
	offTimeBase         = 324
	offVerticalCoupling = 326
	offBandwidthLimit   = 334
	offWaveSource       = 344

	nameLength = 16
)

var recordTypeNames = []string{
	"single_sweep", "interleaved", "histogram", "graph",
	"filter_coefficient", "complex", "extrema", "sequence_obsolete",
	"centered_RIS", "peak_detect",
}

var processingNames = []string{
	"No Processing", "FIR Filter", "interpolated", "sparsed",
	"autoscaled", "no_resulst", "rolling", "cumulative",
}

var couplingNames = []string{"DC50", "GND", "DC1M", "GND", "AC1M"}

var bandwidthNames = []string{"off", "on"}

var waveSourceNames = []string{"Channel 1", "Channel 2", "Channel 3", "Channel 4", Unknown}

func lookup(table []string, index int16) string {
	if index < 0 || int(index) >= len(table) {
		return Unknown
	}
	return table[index]
}

type RecordType int16

func (r RecordType) String() string { return lookup(recordTypeNames, int16(r)) }

type Processing int16

func (p Processing) String() string { return lookup(processingNames, int16(p)) }

type Coupling int16

func (c Coupling) String() string { return lookup(couplingNames, int16(c)) }

type Bandwidth int16

func (b Bandwidth) String() string { return lookup(bandwidthNames, int16(b)) }

type WaveSource int16

func (w WaveSource) String() string { return lookup(waveSourceNames, int16(w)) }

// TimeBase indexes the 1-2-5 sequence from 1 ps/div to 5 ks/div; 100 means
// an external clock.
type TimeBase int16

const TimeBaseExternal TimeBase = 100

var timeBaseValues = []int{1, 2, 5, 10, 20, 50, 100, 200, 500}
var timeBaseUnits = []string{"ps", "ns", "us", "ms", "s", "ks"}

func (t TimeBase) String() string {
	if t == TimeBaseExternal {
		return "EXTERNAL"
	}
	if t < 0 || t >= 48 {
		return Unknown
	}
	i := int(t)
	return fmt.Sprintf("%d %s/div", timeBaseValues[i%len(timeBaseValues)], timeBaseUnits[i/len(timeBaseValues)])
}

type Header struct {
	MarkerOffset     int
	Order            binary.ByteOrder
	TemplateName     string
	CommType         int16
	WaveDescriptor   int32
	UserText         int32
	TrigTimeArray    int32
	WaveArray1       int32
	InstrumentName   string
	InstrumentNumber int32
	WaveArrayCount   int32
	VerticalGain     float32
	VerticalOffset   float32
	NominalBits      int16
	HorizInterval    float32
	HorizOffset      float64
	TriggerTime      string
	RecordType       RecordType
	ProcessingDone   Processing
	TimeBase         TimeBase
	VerticalCoupling Coupling
	BandwidthLimit   Bandwidth
	WaveSource       WaveSource
}

// SampleWidth is the size in bytes of one raw sample.
func (h *Header) SampleWidth() int {
	if h.CommType == 0 {
		return 1
	}
	return 2
}

// Endianness returns ">" for big endian files and "<" for little endian ones.
func (h *Header) Endianness() string {
	if h.Order == binary.BigEndian {
		return ">"
	}
	return "<"
}

func parseHeader(r fieldReader) Header {
	return Header{
		MarkerOffset:     r.base,
		Order:            r.order,
		TemplateName:     r.string(offTemplateName, nameLength),
		CommType:         r.int16(offCommType),
		WaveDescriptor:   r.int32(offWaveDescriptor),
		UserText:         r.int32(offUserText),
		TrigTimeArray:    r.int32(offTrigTimeArray),
		WaveArray1:       r.int32(offWaveArray1),
		InstrumentName:   r.string(offInstrumentName, nameLength),
		InstrumentNumber: r.int32(offInstrumentNumber),
		WaveArrayCount:   r.int32(offWaveArrayCount),
		VerticalGain:     r.float32(offVerticalGain),
		VerticalOffset:   r.float32(offVerticalOffset),
		NominalBits:      r.int16(offNominalBits),
		HorizInterval:    r.float32(offHorizInterval),
		HorizOffset:      r.float64(offHorizOffset),
		TriggerTime:      parseTimestamp(r, offTriggerTime),
		RecordType:       RecordType(r.int16(offRecordType)),
		ProcessingDone:   Processing(r.int16(offProcessingDone)),
		TimeBase:         TimeBase(r.int16(offTimeBase)),
		VerticalCoupling: Coupling(r.int16(offVerticalCoupling)),
		BandwidthLimit:   Bandwidth(r.int16(offBandwidthLimit)),
		WaveSource:       WaveSource(r.int16(offWaveSource)),
	}
}

// parseTimestamp formats the 16 byte trigger time block:
// seconds (float64), minutes, hours, days, months (bytes), year (int16).
func parseTimestamp(r fieldReader, offset int) string {
	seconds := r.float64(offset)
	minute := r.byteAt(offset + 8)
	hour := r.byteAt(offset + 9)
	day := r.byteAt(offset + 10)
	month := r.byteAt(offset + 11)
	year := r.int16(offset + 12)
	return fmt.Sprintf("%d-%02d-%02d %02d:%02d:%.2f", year, month, day, hour, minute, seconds)
}

func (h *Header) String() string {
	var sb strings.Builder
	sb.WriteString("LeCroy scope data\n")
	fmt.Fprintf(&sb, "Endianness: %s\n", h.Endianness())
	fmt.Fprintf(&sb, "Instrument: %s\n", h.InstrumentName)
	fmt.Fprintf(&sb, "Instrument Number: %d\n", h.InstrumentNumber)
	fmt.Fprintf(&sb, "Template Name: %s\n", h.TemplateName)
	fmt.Fprintf(&sb, "Channel: %s\n", h.WaveSource)
	fmt.Fprintf(&sb, "WaveArrayCount: %d\n", h.WaveArrayCount)
	fmt.Fprintf(&sb, "Vertical Gain/Offset: %g / %g\n", h.VerticalGain, h.VerticalOffset)
	fmt.Fprintf(&sb, "Horizontal Interval/Offset: %g / %g\n", h.HorizInterval, h.HorizOffset)
	fmt.Fprintf(&sb, "Nominal Bits: %d\n", h.NominalBits)
	fmt.Fprintf(&sb, "Vertical Coupling: %s\n", h.VerticalCoupling)
	fmt.Fprintf(&sb, "Bandwidth Limit: %s\n", h.BandwidthLimit)
	fmt.Fprintf(&sb, "Record Type: %s\n", h.RecordType)
	fmt.Fprintf(&sb, "Processing: %s\n", h.ProcessingDone)
	fmt.Fprintf(&sb, "TimeBase: %s\n", h.TimeBase)
	fmt.Fprintf(&sb, "TriggerTime: %s\n", h.TriggerTime)
	return sb.String()
}
