package scene

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/sandsim/internal/sand"
)

var ErrUnknownPreset = errors.New("scene: unknown preset")

// Builder populates an engine. rng drives the randomized presets.
type Builder func(e *sand.Engine, rng *rand.Rand) error

var Presets = map[string]Builder{
	"pyramid": func(e *sand.Engine, _ *rand.Rand) error {
		return Pyramid(e, mgl64.Vec3{0, 0.5, 0}, 12, sand.Normal)
	},
	"floating-cube": func(e *sand.Engine, _ *rand.Rand) error {
		return Cube(e, mgl64.Vec3{0, 25, 0}, 8, sand.Heavy)
	},
	"bouncing-sphere": func(e *sand.Engine, _ *rand.Rand) error {
		return Sphere(e, mgl64.Vec3{0, 30, 0}, 6, sand.Bouncy)
	},
	"rainbow": func(e *sand.Engine, _ *rand.Rand) error {
		return RainbowLayers(e, mgl64.Vec3{0, 0.5, 0}, 20, 15)
	},
	"fountain": func(e *sand.Engine, rng *rand.Rand) error {
		return Fountain(e, mgl64.Vec3{0, 5, 0}, 200, sand.Light, rng)
	},
	"explosion": func(e *sand.Engine, rng *rand.Rand) error {
		return Explosion(e, mgl64.Vec3{0, 20, 0}, 300, sand.Explosive, rng)
	},
	"hourglass": func(e *sand.Engine, _ *rand.Rand) error {
		return Hourglass(e, mgl64.Vec3{0, 25, 0}, 8, sand.Normal)
	},
	"wall": func(e *sand.Engine, _ *rand.Rand) error {
		return Wall(e, mgl64.Vec3{-10, 0.5, 0}, 20, 15, sand.Heavy)
	},
	"double-cube": func(e *sand.Engine, _ *rand.Rand) error {
		if err := Cube(e, mgl64.Vec3{-8, 25, 0}, 5, sand.Heavy); err != nil {
			return err
		}
		return Cube(e, mgl64.Vec3{8, 25, 0}, 5, sand.Light)
	},
	"chaos": func(e *sand.Engine, _ *rand.Rand) error {
		if err := Sphere(e, mgl64.Vec3{-10, 30, -10}, 4, sand.Bouncy); err != nil {
			return err
		}
		if err := Sphere(e, mgl64.Vec3{10, 35, 10}, 4, sand.Viscous); err != nil {
			return err
		}
		return Cube(e, mgl64.Vec3{0, 40, 0}, 5, sand.Explosive)
	},
	"dunes": func(e *sand.Engine, rng *rand.Rand) error {
		return Dunes(e, mgl64.Vec3{0, 0.5, 0}, 10, 5, sand.Normal, rng.Int63())
	},
}

// Names lists the presets in sorted order.
func Names() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply clears e and builds the named preset. On an unknown name the
// engine is left untouched.
func Apply(e *sand.Engine, name string, rng *rand.Rand) error {
	build, ok := Presets[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	e.ClearParticles()
	return build(e, rng)
}
