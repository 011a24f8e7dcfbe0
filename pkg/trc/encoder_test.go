package trc

import (
	"encoding/binary"
	"math"
)

const descriptorLength = 346

// traceSpec describes a synthetic .trc buffer for tests.
type traceSpec struct {
	order      binary.ByteOrder
	prefix     int
	commType   int16
	gain       float32
	offset     float32
	interval   float32
	hOffset    float64
	samples    []int16
	userText   int32
	trigTime   int32
	count      int32
	instrument string
	recordType int16
	timeBase   int16
	coupling   int16
	bandwidth  int16
	source     int16
}

func defaultSpec(order binary.ByteOrder) traceSpec {
	return traceSpec{
		order:      order,
		prefix:     11,
		commType:   1,
		gain:       0.5,
		offset:     0.25,
		interval:   1e-9,
		hOffset:    -5e-9,
		samples:    []int16{0, 10, 20, 30, -40, 1000, -1000, 7},
		instrument: "LECROYWR8404M",
		recordType: 0,
		timeBase:   14,
		coupling:   0,
		bandwidth:  1,
		source:     1,
	}
}

func buildTrace(s traceSpec) []byte {
	width := 2
	if s.commType == 0 {
		width = 1
	}
	count := s.count
	if count == 0 {
		count = int32(len(s.samples))
	}
	sampleBytes := len(s.samples) * width
	size := s.prefix + descriptorLength + int(s.userText) + int(s.trigTime) + sampleBytes
	buf := make([]byte, size)
	base := s.prefix
	copy(buf, "#9000000000")
	copy(buf[base:], marker)
	copy(buf[base+offTemplateName:], "LECROY_2_3")

	put16 := func(off int, v int16) { s.order.PutUint16(buf[base+off:], uint16(v)) }
	put32 := func(off int, v int32) { s.order.PutUint32(buf[base+off:], uint32(v)) }
	putF32 := func(off int, v float32) { s.order.PutUint32(buf[base+off:], math.Float32bits(v)) }
	putF64 := func(off int, v float64) { s.order.PutUint64(buf[base+off:], math.Float64bits(v)) }

	put16(offCommType, s.commType)
	if s.order == binary.LittleEndian {
		put16(offCommOrder, 1)
	}
	put32(offWaveDescriptor, descriptorLength)
	put32(offUserText, s.userText)
	put32(offTrigTimeArray, s.trigTime)
	put32(offWaveArray1, int32(sampleBytes))
	copy(buf[base+offInstrumentName:], s.instrument)
	put32(offInstrumentNumber, 6012)
	put32(offWaveArrayCount, count)
	putF32(offVerticalGain, s.gain)
	putF32(offVerticalOffset, s.offset)
	put16(offNominalBits, 8)
	putF32(offHorizInterval, s.interval)
	putF64(offHorizOffset, s.hOffset)

	putF64(offTriggerTime, 42.125)
	buf[base+offTriggerTime+8] = 7
	buf[base+offTriggerTime+9] = 13
	buf[base+offTriggerTime+10] = 21
	buf[base+offTriggerTime+11] = 3
	put16(offTriggerTime+12, 2024)

	put16(offRecordType, s.recordType)
	put16(offProcessingDone, 0)
	put16(offTimeBase, s.timeBase)
	put16(offVerticalCoupling, s.coupling)
	put16(offBandwidthLimit, s.bandwidth)
	put16(offWaveSource, s.source)

	start := base + descriptorLength + int(s.userText) + int(s.trigTime)
	for i, v := range s.samples {
		if width == 1 {
			buf[start+i] = byte(int8(v))
		} else {
			s.order.PutUint16(buf[start+2*i:], uint16(v))
		}
	}
	return buf
}
