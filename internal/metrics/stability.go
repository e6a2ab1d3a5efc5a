package metrics

import (
	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/sim"
)

// DefaultSettleSpeed is the mean speed below which a pile counts as at rest.
const DefaultSettleSpeed = 0.05

// Settled is the fraction of samples in which the mean particle speed was
// below threshold. Empty samples count as settled.
type Settled struct {
	name      string
	threshold float64
	settled   int
	samples   int
}

func NewSettled(threshold float64) *Settled {
	return &Settled{
		name:      "settled",
		threshold: threshold,
	}
}

func (s *Settled) Name() string {
	return s.name
}

func (s *Settled) Observe(e *sand.Engine, t float64) {
	s.samples++
	if e.Stats().MeanSpeed < s.threshold {
		s.settled++
	}
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.settled) / float64(s.samples)
}

func (s *Settled) Reset() {
	s.settled = 0
	s.samples = 0
}

// Default returns the metric set used by the run command.
func Default() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewEnergyDecay(),
		NewPeakSpeed(),
		NewSettled(DefaultSettleSpeed),
	}
}
