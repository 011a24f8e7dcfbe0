package reco

import (
	"fmt"

	"github.com/next-exp/acreco_go/pkg/topology"
)

// Section is the linear calibration of one (left, right) pad pair:
// ratio = A0 + A1*x, valid between EdgeLeft and EdgeRight. Factors holds the
// normalization factor of every calibration channel, indexed by channel-1.
type Section struct {
	Pads      topology.PadPair
	A0        float64
	A1        float64
	EdgeLeft  float64
	EdgeRight float64
	Factors   []float64
}

// Position inverts the linear fit.
func (s Section) Position(ratio float64) float64 {
	return (ratio - s.A0) / s.A1
}

func (s Section) String() string {
	return fmt.Sprintf("Pads (%d, %d), EdgeX (%g, %g), ratio = %g + %g * x, %d factors",
		s.Pads.First, s.Pads.Second, s.EdgeLeft, s.EdgeRight, s.A0, s.A1, len(s.Factors))
}
