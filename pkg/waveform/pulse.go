package waveform

// Pulse is a sampled waveform in ns and mV.
type Pulse struct {
	Time      []float64
	Amplitude []float64
}

// NewPulse converts the first n samples of a seconds/volts waveform. It
// returns false when there is nothing to convert.
func NewPulse(time []float64, amplitude []float64, n int) (Pulse, bool) {
	if time == nil || amplitude == nil || n <= 0 {
		return Pulse{}, false
	}
	n = min(n, len(time), len(amplitude))
	if n == 0 {
		return Pulse{}, false
	}
	p := Pulse{
		Time:      make([]float64, n),
		Amplitude: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p.Time[i] = time[i] * 1e9
		p.Amplitude[i] = amplitude[i] * 1e3
	}
	return p, true
}

func (p Pulse) Len() int {
	return len(p.Time)
}

// interval returns the sampling period, assuming uniform sampling.
func (p Pulse) interval() float64 {
	if p.Len() < 2 {
		return 0
	}
	return p.Time[1] - p.Time[0]
}

// crossing returns the interpolated time at which the pedestal subtracted
// amplitude reaches level around sample i. It tries the pair (i-1, i) first
// and (i, i+1) second; at the ends of the pulse only the inner pair exists.
// When no pair brackets the level the time of sample i is returned with ok
// set to false.
func (p Pulse) crossing(i int, level float64, pedestal float64) (t float64, ok bool) {
	n := p.Len()
	if n < 2 {
		return p.Time[i], false
	}

	var pairs [][2]int
	switch {
	case i == 0:
		pairs = [][2]int{{0, 1}}
	case i >= n-1:
		pairs = [][2]int{{n - 2, n - 1}}
	default:
		pairs = [][2]int{{i - 1, i}, {i, i + 1}}
	}

	for _, pair := range pairs {
		tb, ta := p.Time[pair[0]], p.Time[pair[1]]
		ab, aa := p.Amplitude[pair[0]]-pedestal, p.Amplitude[pair[1]]-pedestal
		if !between(level, ab, aa) {
			continue
		}
		if aa == ab {
			return tb, true
		}
		return tb + (ta-tb)*(level-ab)/(aa-ab), true
	}
	return p.Time[i], false
}

func between(value float64, a float64, b float64) bool {
	low, high := min(a, b), max(a, b)
	return value >= low && value <= high
}
