package sand

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Snapshot is the render-ready projection of the active particles.
// Positions and Colors are interleaved xyz/rgb; all three slices share
// particle order.
type Snapshot struct {
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
	Sizes     []float32 `json:"sizes"`
}

// Count returns the number of particles in the snapshot.
func (s Snapshot) Count() int { return len(s.Sizes) }

// Stats summarises the active particles.
type Stats struct {
	Count      int     `json:"count"`
	MeanSpeed  float64 `json:"mean_speed"`
	MeanHeight float64 `json:"mean_height"`
}

// ParticleData builds a snapshot of the active particles. It does not
// mutate the engine.
func (e *Engine) ParticleData() Snapshot {
	n := e.ActiveCount()
	snap := Snapshot{
		Positions: make([]float32, 0, n*3),
		Colors:    make([]float32, 0, n*3),
		Sizes:     make([]float32, 0, n),
	}
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		props := &e.materials[p.props]
		snap.Positions = append(snap.Positions,
			float32(p.Position[0]), float32(p.Position[1]), float32(p.Position[2]))
		snap.Colors = append(snap.Colors,
			float32(props.Color[0]), float32(props.Color[1]), float32(props.Color[2]))
		snap.Sizes = append(snap.Sizes, float32(props.Size))
	}
	return snap
}

// Stats returns count, mean speed and mean height of the active particles,
// all zero when there are none.
func (e *Engine) Stats() Stats {
	var st Stats
	var speed, height float64
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		st.Count++
		speed += p.Velocity.Len()
		height += p.Position[1]
	}
	if st.Count == 0 {
		return Stats{}
	}
	st.MeanSpeed = speed / float64(st.Count)
	st.MeanHeight = height / float64(st.Count)
	return st
}

// KineticEnergy is the sum of ½mv² over active particles.
func (e *Engine) KineticEnergy() float64 {
	ke := 0.0
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		ke += 0.5 * e.materials[p.props].Mass * p.Velocity.Dot(p.Velocity)
	}
	return ke
}

// Momentum is the total linear momentum of active particles.
func (e *Engine) Momentum() mgl64.Vec3 {
	var m mgl64.Vec3
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		m = m.Add(p.Velocity.Mul(e.materials[p.props].Mass))
	}
	return m
}

// MaxSpeed returns the largest particle speed, 0 when empty.
func (e *Engine) MaxSpeed() float64 {
	peak := 0.0
	for i := range e.particles {
		if e.particles[i].Active {
			peak = math.Max(peak, e.particles[i].Velocity.Len())
		}
	}
	return peak
}
