package scene

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/sandsim/internal/sand"
)

const (
	QuickAddCount  = 50
	QuickAddSpread = 5.0
)

var quickAddCenter = mgl64.Vec3{0, 35, 0}

// Emitter pours particles into the scene once per frame while enabled.
type Emitter struct {
	Enabled  bool
	Category sand.Category
	Rate     int
	Spread   float64
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

func DefaultEmitter() Emitter {
	return Emitter{
		Category: sand.Normal,
		Rate:     10,
		Spread:   2,
		Position: mgl64.Vec3{0, 40, 0},
		Velocity: mgl64.Vec3{0, -5, 0},
	}
}

// Emit adds one frame's worth of particles. It is a no-op when disabled.
func (em *Emitter) Emit(e *sand.Engine) error {
	if !em.Enabled || em.Rate <= 0 {
		return nil
	}
	return e.AddParticlesBurst(em.Position, em.Rate, em.Spread, em.Category, em.Velocity)
}

// Burst adds count particles at the emitter regardless of Enabled.
func (em *Emitter) Burst(e *sand.Engine, count int) error {
	return e.AddParticlesBurst(em.Position, count, em.Spread, em.Category, mgl64.Vec3{})
}

// Rain drops count particles from random points over most of the floor,
// high in the box, falling slowly.
func Rain(e *sand.Engine, count int, cat sand.Category, rng *rand.Rand) error {
	for i := 0; i < count; i++ {
		pos := mgl64.Vec3{
			-20 + rng.Float64()*40,
			35 + rng.Float64()*15,
			-20 + rng.Float64()*40,
		}
		if _, err := e.AddParticle(pos, mgl64.Vec3{0, -2, 0}, cat, nil); err != nil {
			return err
		}
	}
	return nil
}

// QuickAdd drops a small cloud of cat above the middle of the box.
func QuickAdd(e *sand.Engine, cat sand.Category) error {
	return e.AddParticlesBurst(quickAddCenter, QuickAddCount, QuickAddSpread, cat, mgl64.Vec3{})
}
