package reco

import (
	"fmt"
	"slices"
	"strings"

	"github.com/next-exp/acreco_go/pkg/topology"
	"github.com/next-exp/acreco_go/pkg/waveform"
	"golang.org/x/exp/maps"
)

const (
	// SignalFloor is the normalized charge under which both pads of a pair
	// are considered empty.
	SignalFloor = 10.0
	// EdgeFraction is the share of the pair sum under which a pad is too weak
	// for the linear fit and the position is clamped to the section edge.
	EdgeFraction = 0.15
)

type Status int

const (
	Linear Status = iota
	ClampedLeft
	ClampedRight
	BelowFloor
)

var statusStrings = []string{
	"linear",
	"clamped_left",
	"clamped_right",
	"below_floor",
}

func (s Status) String() string {
	if s < Linear || s > BelowFloor {
		return "UNKNOWN"
	}
	return statusStrings[s]
}

// Estimate is a reconstructed coordinate. When Status is BelowFloor, X is 0
// and carries no position.
type Estimate struct {
	X      float64
	Status Status
}

// Hit is the result of reconstructing one event.
type Hit struct {
	Pads        topology.PadPair
	Channels    topology.ChannelPair
	SignalLeft  float64
	SignalRight float64
	X           float64
	Y           float64
	Status      Status
}

// Reconstructor estimates hit positions from the charge shared by neighbor
// pads. The calibration topology describes the setup the sections were
// measured with, the data topology the one used to take data. Both are
// finalized by New. After setup a Reconstructor is read-only and safe for
// concurrent use.
type Reconstructor struct {
	calibration *topology.Topology
	data        *topology.Topology
	sections    map[topology.PadPair]Section
	norm        map[topology.Pad]float64
}

func New(calibration *topology.Topology, data *topology.Topology, sections []Section) (*Reconstructor, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	calibration.Finalize()
	data.Finalize()
	r := &Reconstructor{
		calibration: calibration,
		data:        data,
		sections:    make(map[topology.PadPair]Section, len(sections)),
		norm:        make(map[topology.Pad]float64),
	}
	for _, s := range sections {
		if _, ok := r.sections[s.Pads]; ok {
			return nil, &DuplicateSectionError{Pads: s.Pads}
		}
		r.sections[s.Pads] = s
	}
	return r, nil
}

// SetNormFactors stores the factor of every data pad. It fails on the first
// data pad missing from factors, leaving the stored factors untouched.
func (r *Reconstructor) SetNormFactors(factors map[topology.Pad]float64) error {
	for _, pad := range r.data.Pads() {
		if _, ok := factors[pad]; !ok {
			return &CoverageError{Pad: pad, Channel: r.data.Channel(pad)}
		}
	}
	for _, pad := range r.data.Pads() {
		r.norm[pad] = factors[pad]
	}
	return nil
}

// NormFactorsFromCalibration uses the factors stored with the first section.
// Factor i belongs to calibration channel i+1.
func (r *Reconstructor) NormFactorsFromCalibration() error {
	first := r.sortedPairs()[0]
	factors := make(map[topology.Pad]float64)
	for idx, f := range r.sections[first].Factors {
		pad := r.calibration.Pad(topology.Channel(idx + 1))
		if pad == topology.NoPad {
			continue
		}
		factors[pad] = f
	}
	return r.SetNormFactors(factors)
}

func (r *Reconstructor) NormFactor(pad topology.Pad) (float64, bool) {
	f, ok := r.norm[pad]
	return f, ok
}

// Validate checks that the data topology fits in the calibration topology,
// that every data pad has a normalization factor and that every data pair has
// a calibration section.
func (r *Reconstructor) Validate() error {
	if !r.data.SubsetOf(r.calibration) {
		return r.incompatibility()
	}
	for _, pad := range r.data.Pads() {
		if _, ok := r.norm[pad]; !ok {
			return &CoverageError{Pad: pad, Channel: r.data.Channel(pad)}
		}
	}
	for _, pair := range r.data.PairsX() {
		if _, ok := r.sections[pair]; !ok {
			return &MissingSectionError{Pads: pair}
		}
	}
	return nil
}

func (r *Reconstructor) incompatibility() error {
	for _, pad := range r.data.Pads() {
		if r.calibration.Channel(pad) == topology.NoChannel {
			return &IncompatibleTopologyError{Pad: pad, Channel: r.data.Channel(pad)}
		}
	}
	return &IncompatibleTopologyError{Pad: topology.NoPad, Channel: topology.NoChannel}
}

// Reconstruct estimates the X position of a hit shared by the two pads of
// pads, given their raw signals.
func (r *Reconstructor) Reconstruct(pads topology.PadPair, left float64, right float64) (Estimate, error) {
	section, ok := r.sections[pads]
	if !ok {
		return Estimate{}, &MissingSectionError{Pads: pads}
	}
	normLeft, normRight, err := r.normalize(pads, left, right)
	if err != nil {
		return Estimate{}, err
	}

	if normLeft < SignalFloor && normRight < SignalFloor {
		return Estimate{X: 0, Status: BelowFloor}, nil
	}
	sum := normLeft + normRight
	if normLeft < EdgeFraction*sum {
		return Estimate{X: section.EdgeRight + r.padWidth(pads.Second)/2, Status: ClampedRight}, nil
	}
	if normRight < EdgeFraction*sum {
		return Estimate{X: section.EdgeLeft - r.padWidth(pads.First)/2, Status: ClampedLeft}, nil
	}
	return Estimate{X: section.Position(normLeft / sum), Status: Linear}, nil
}

func (r *Reconstructor) normalize(pads topology.PadPair, left float64, right float64) (float64, float64, error) {
	fl, ok := r.norm[pads.First]
	if !ok {
		return 0, 0, &CoverageError{Pad: pads.First, Channel: r.data.Channel(pads.First)}
	}
	fr, ok := r.norm[pads.Second]
	if !ok {
		return 0, 0, &CoverageError{Pad: pads.Second, Channel: r.data.Channel(pads.Second)}
	}
	return left * fl, right * fr, nil
}

// padWidth reads the calibration topology, then the data topology, 0 when
// neither knows the pad size.
func (r *Reconstructor) padWidth(pad topology.Pad) float64 {
	if size, ok := r.calibration.PadSize(pad); ok {
		return size.Width
	}
	size, _ := r.data.PadSize(pad)
	return size.Width
}

// ReconstructFromFeatures picks the data pair with the largest normalized
// charge sum and reconstructs the hit on it. Y is always 0.
func (r *Reconstructor) ReconstructFromFeatures(features map[int]waveform.Features) (Hit, error) {
	pairs := r.data.PairsX()
	if len(pairs) == 0 {
		return Hit{}, ErrNoPairs
	}

	var best Hit
	bestSum := 0.0
	found := false
	for _, pair := range pairs {
		channels, _ := r.data.ChannelPairX(pair)
		left, ok := features[int(channels.First)]
		if !ok {
			return Hit{}, fmt.Errorf("%w %d", ErrMissingChannel, channels.First)
		}
		right, ok := features[int(channels.Second)]
		if !ok {
			return Hit{}, fmt.Errorf("%w %d", ErrMissingChannel, channels.Second)
		}
		normLeft, normRight, err := r.normalize(pair, left.Charge, right.Charge)
		if err != nil {
			return Hit{}, err
		}
		if sum := normLeft + normRight; !found || sum > bestSum {
			found = true
			bestSum = sum
			best = Hit{
				Pads:        pair,
				Channels:    channels,
				SignalLeft:  left.Charge,
				SignalRight: right.Charge,
			}
		}
	}

	estimate, err := r.Reconstruct(best.Pads, best.SignalLeft, best.SignalRight)
	if err != nil {
		return Hit{}, err
	}
	best.X = estimate.X
	best.Status = estimate.Status
	return best, nil
}

// PadRightSection returns the section between pad and its right neighbor in
// the calibration topology.
func (r *Reconstructor) PadRightSection(pad topology.Pad) (Section, error) {
	right, err := r.calibration.RightPad(pad)
	if err != nil {
		return Section{}, fmt.Errorf("right section of pad %d: %w", pad, err)
	}
	pair := topology.PadPair{First: pad, Second: right}
	section, ok := r.sections[pair]
	if !ok {
		return Section{}, &MissingSectionError{Pads: pair}
	}
	return section, nil
}

func (r *Reconstructor) Sections() []Section {
	sections := make([]Section, 0, len(r.sections))
	for _, pair := range r.sortedPairs() {
		sections = append(sections, r.sections[pair])
	}
	return sections
}

func (r *Reconstructor) sortedPairs() []topology.PadPair {
	pairs := maps.Keys(r.sections)
	slices.SortFunc(pairs, func(a, b topology.PadPair) int {
		if a.First != b.First {
			return int(a.First) - int(b.First)
		}
		return int(a.Second) - int(b.Second)
	})
	return pairs
}

func (r *Reconstructor) String() string {
	var sb strings.Builder
	sb.WriteString("Data topology:\n")
	sb.WriteString(r.data.String())
	sb.WriteString("\nCalibration topology:\n")
	sb.WriteString(r.calibration.String())
	fmt.Fprintf(&sb, "Calibrated with %d sections:\n", len(r.sections))
	for _, pair := range r.calibration.PairsX() {
		section, ok := r.sections[pair]
		if !ok {
			fmt.Fprintf(&sb, " Pads (%d, %d) not calibrated\n", pair.First, pair.Second)
			continue
		}
		channels, _ := r.calibration.ChannelPairX(pair)
		fmt.Fprintf(&sb, " %s, channels (%d, %d)\n", section, channels.First, channels.Second)
	}
	sb.WriteString("Pad normalization factors:\n")
	pads := maps.Keys(r.norm)
	slices.Sort(pads)
	for _, pad := range pads {
		fmt.Fprintf(&sb, " Pad %d: %g\n", pad, r.norm[pad])
	}
	return sb.String()
}
