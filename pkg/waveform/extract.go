package waveform

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Extract computes the features of a waveform given in seconds and volts.
// Only the first n samples are used. An empty or nil input yields a record
// flagged NoWaveform.
func Extract(time []float64, amplitude []float64, n int, cfg Config) Features {
	f := NewFeatures()
	ExtractInto(&f, time, amplitude, n, cfg)
	return f
}

// ExtractInto fills f in place. When there is no waveform only the validity
// mask is written and every other field keeps the value set by the caller.
func ExtractInto(f *Features, time []float64, amplitude []float64, n int, cfg Config) {
	p, ok := NewPulse(time, amplitude, n)
	if !ok {
		f.Valid = NoWaveform
		return
	}
	*f = p.Extract(cfg)
}

// levelScan tracks the crossings searched on one edge of the pulse.
type levelScan struct {
	t10, t50, t90, tThr       float64
	found10, found50, found90 bool
	foundThr                  bool
}

func newLevelScan() levelScan {
	return levelScan{t10: NotFoundTime, t50: NotFoundTime, t90: NotFoundTime, tThr: NotFoundTime}
}

func (s *levelScan) done() bool {
	return s.found10 && s.found50 && s.found90 && s.foundThr
}

// Extract computes the features of the pulse.
func (p Pulse) Extract(cfg Config) Features {
	f := NewFeatures()
	n := p.Len()
	if n == 0 {
		f.Valid = NoWaveform
		return f
	}
	f.NSamples = n
	dt := p.interval()

	up, down := p.windowBounds(cfg)

	f.PedStart, f.PedStartStdDev = pedestal(p.Amplitude[:up])

	endSamples := make([]float64, 0, n-down)
	for i := down; i < n; i++ {
		if p.Time[i] > cfg.WindowLo {
			endSamples = append(endSamples, p.Amplitude[i])
		}
	}
	f.PedEnd, f.PedEndStdDev = pedestal(endSamples)

	ped := f.PedStart
	peak := -1
	maxAmp := -1e9
	for i := up; i <= down; i++ {
		t := p.Time[i]
		if t < cfg.WindowLo || t > cfg.WindowHi {
			continue
		}
		amp := p.Amplitude[i] - ped
		f.QFull += amp * dt
		if amp > maxAmp {
			maxAmp = amp
			f.TAmp = t
			peak = i
		}
	}
	if peak < 0 {
		f.Valid |= RangeError | NoT1Found | NoT1At10 | NoT1At50 | NoT1At90 |
			NoT2Found | NoT2At10 | NoT2At50 | NoT2At90
		return f
	}
	f.Amp = maxAmp

	half := 0
	if dt > 0 {
		half = int(2.0 / dt)
	}
	for i := max(peak-half, 0); i <= min(peak+half, n-1); i++ {
		f.QPm2ns += (p.Amplitude[i] - ped) * dt
	}

	// The partial charges keep accumulating across both edges: a bucket
	// collects every visited sample until its own level is crossed.
	var q10, q50, q90 float64
	scan := func(from int, to int, step int) levelScan {
		s := newLevelScan()
		for i := from; i != to+step; i += step {
			amp := p.Amplitude[i] - ped
			if !s.found90 && amp <= 0.9*maxAmp {
				s.t90, _ = p.crossing(i, 0.9*maxAmp, ped)
				s.found90 = true
			}
			if !s.found50 && amp <= 0.5*maxAmp {
				s.t50, _ = p.crossing(i, 0.5*maxAmp, ped)
				s.found50 = true
			}
			if !s.found10 && amp <= 0.1*maxAmp {
				s.t10, _ = p.crossing(i, 0.1*maxAmp, ped)
				s.found10 = true
			}
			if !s.foundThr && amp < cfg.Threshold && cfg.Threshold < maxAmp {
				s.tThr, _ = p.crossing(i, cfg.Threshold, ped)
				s.foundThr = true
			}

			if !s.found10 {
				q10 += amp * dt
			}
			if !s.found50 {
				q50 += amp * dt
			}
			if !s.found90 {
				q90 += amp * dt
			}
			if s.done() {
				break
			}
		}
		return s
	}

	rising := scan(peak, up, -1)
	f.T1, f.T1At10, f.T1At50, f.T1At90 = rising.tThr, rising.t10, rising.t50, rising.t90
	f.Valid |= missing(rising, NoT1Found, NoT1At10, NoT1At50, NoT1At90)

	falling := scan(peak, down, 1)
	f.T2, f.T2At10, f.T2At50, f.T2At90 = falling.tThr, falling.t10, falling.t50, falling.t90
	f.Valid |= missing(falling, NoT2Found, NoT2At10, NoT2At50, NoT2At90)

	f.Q10, f.Q50, f.Q90 = q10, q50, q90
	f.TOA = f.T1At50
	f.Charge = f.Q50
	return f
}

// windowBounds returns the first samples at or after each window edge.
// They default to the first and last samples when the edge is not crossed.
func (p Pulse) windowBounds(cfg Config) (up int, down int) {
	n := p.Len()
	up, down = 0, n-1
	for i := 1; i < n; i++ {
		prev, cur := p.Time[i-1], p.Time[i]
		if prev < cfg.WindowLo && cur >= cfg.WindowLo {
			up = i
		}
		if prev < cfg.WindowHi && cur >= cfg.WindowHi {
			down = i
		}
	}
	return up, down
}

func missing(s levelScan, thr Flag, at10 Flag, at50 Flag, at90 Flag) Flag {
	var flags Flag
	if !s.foundThr {
		flags |= thr
	}
	if !s.found10 {
		flags |= at10
	}
	if !s.found50 {
		flags |= at50
	}
	if !s.found90 {
		flags |= at90
	}
	return flags
}

// pedestal returns the mean and population standard deviation of samples.
func pedestal(samples []float64) (mean float64, stdDev float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	mean = stat.Mean(samples, nil)
	return mean, math.Sqrt(stat.PopVariance(samples, nil))
}
