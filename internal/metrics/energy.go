package metrics

import (
	"github.com/san-kum/sandsim/internal/sand"
)

// KineticEnergy reports the mean total kinetic energy over the samples.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(e *sand.Engine, t float64) {
	k.total += e.KineticEnergy()
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.samples = 0
}

// EnergyDecay is the ratio of the last observed kinetic energy to the
// first non-zero one. A pile that has come to rest reads near 0.
type EnergyDecay struct {
	name    string
	initial float64
	current float64
}

func NewEnergyDecay() *EnergyDecay {
	return &EnergyDecay{name: "energy_decay"}
}

func (d *EnergyDecay) Name() string { return d.name }

func (d *EnergyDecay) Observe(e *sand.Engine, t float64) {
	ke := e.KineticEnergy()
	if d.initial == 0 {
		d.initial = ke
	}
	d.current = ke
}

func (d *EnergyDecay) Value() float64 {
	if d.initial == 0 {
		return 0
	}
	return d.current / d.initial
}

func (d *EnergyDecay) Reset() {
	d.initial = 0
	d.current = 0
}

// PeakSpeed is the largest particle speed seen in any sample.
type PeakSpeed struct {
	name string
	peak float64
}

func NewPeakSpeed() *PeakSpeed {
	return &PeakSpeed{name: "peak_speed"}
}

func (p *PeakSpeed) Name() string { return p.name }

func (p *PeakSpeed) Observe(e *sand.Engine, t float64) {
	if s := e.MaxSpeed(); s > p.peak {
		p.peak = s
	}
}

func (p *PeakSpeed) Value() float64 { return p.peak }

func (p *PeakSpeed) Reset() { p.peak = 0 }
