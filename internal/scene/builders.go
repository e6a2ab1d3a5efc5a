package scene

import (
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/sandsim/internal/sand"
)

// Spacing is the lattice pitch used by every builder.
const Spacing = 0.9

const pyramidRise = 0.8

// floorHalf is floor(-n/2) for n >= 0.
func floorHalf(n int) int { return -(n + 1) / 2 }

func place(e *sand.Engine, pos mgl64.Vec3, cat sand.Category) error {
	_, err := e.AddParticle(pos, mgl64.Vec3{}, cat, nil)
	return err
}

// Pyramid stacks square layers that shrink by one particle per level,
// starting from a base of base particles.
func Pyramid(e *sand.Engine, center mgl64.Vec3, base int, cat sand.Category) error {
	for level := 0; level < base; level++ {
		size := base - level
		y := center[1] + float64(level)*pyramidRise
		for x := floorHalf(size); x <= size/2; x++ {
			for z := floorHalf(size); z <= size/2; z++ {
				pos := mgl64.Vec3{center[0] + float64(x)*Spacing, y, center[2] + float64(z)*Spacing}
				if err := place(e, pos, cat); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Wall builds a width x height sheet in the xy plane starting at start.
func Wall(e *sand.Engine, start mgl64.Vec3, width, height int, cat sand.Category) error {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pos := mgl64.Vec3{start[0] + float64(x)*Spacing, start[1] + float64(y)*Spacing, start[2]}
			if err := place(e, pos, cat); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cube builds a block centered on center in x and z and rising size
// layers from center's height.
func Cube(e *sand.Engine, center mgl64.Vec3, size int, cat sand.Category) error {
	half := size / 2
	for x := -half; x <= half; x++ {
		for y := 0; y < size; y++ {
			for z := -half; z <= half; z++ {
				pos := center.Add(mgl64.Vec3{float64(x), float64(y), float64(z)}.Mul(Spacing))
				if err := place(e, pos, cat); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Sphere fills lattice points within radius, lifted so its lowest layer
// sits near center.
func Sphere(e *sand.Engine, center mgl64.Vec3, radius int, cat sand.Category) error {
	r := float64(radius)
	for x := -radius; x <= radius; x++ {
		for y := -radius; y <= radius; y++ {
			for z := -radius; z <= radius; z++ {
				if math.Sqrt(float64(x*x+y*y+z*z)) > r {
					continue
				}
				pos := mgl64.Vec3{
					center[0] + float64(x)*Spacing,
					center[1] + r + float64(y)*Spacing,
					center[2] + float64(z)*Spacing,
				}
				if err := place(e, pos, cat); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RainbowLayers stacks one band per category, bottom to top in catalog
// order.
func RainbowLayers(e *sand.Engine, center mgl64.Vec3, width, height int) error {
	cats := sand.Categories()
	band := height / len(cats)
	for i, cat := range cats {
		y0 := center[1] + float64(i*band)*Spacing
		for y := 0; y < band; y++ {
			for x := floorHalf(width); x < width/2; x++ {
				pos := mgl64.Vec3{center[0] + float64(x)*Spacing, y0 + float64(y)*Spacing, center[2]}
				if err := place(e, pos, cat); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Fountain launches count particles from center, mostly upward with a
// random horizontal heading.
func Fountain(e *sand.Engine, center mgl64.Vec3, count int, cat sand.Category, rng *rand.Rand) error {
	for i := 0; i < count; i++ {
		angle := rng.Float64() * 2 * math.Pi
		speed := 5 + rng.Float64()*10
		vel := mgl64.Vec3{math.Cos(angle) * speed * 0.3, speed, math.Sin(angle) * speed * 0.3}
		if _, err := e.AddParticle(center, vel, cat, nil); err != nil {
			return err
		}
	}
	return nil
}

// Explosion throws count particles out of center in random directions
// with an extra upward kick.
func Explosion(e *sand.Engine, center mgl64.Vec3, count int, cat sand.Category, rng *rand.Rand) error {
	for i := 0; i < count; i++ {
		theta := rng.Float64() * math.Pi
		phi := rng.Float64() * 2 * math.Pi
		speed := 10 + rng.Float64()*15
		dir := mgl64.SphericalToCartesian(1, theta, phi)
		// SphericalToCartesian puts the polar axis on z
		vel := mgl64.Vec3{dir[0] * speed, dir[1]*speed + 5, dir[2] * speed}
		if _, err := e.AddParticle(center, vel, cat, nil); err != nil {
			return err
		}
	}
	return nil
}

// Hourglass builds the upper bulb: discs whose radius narrows toward the
// middle layer and widens again.
func Hourglass(e *sand.Engine, center mgl64.Vec3, radius int, cat sand.Category) error {
	for y := 0; y < radius*2; y++ {
		d := y - radius
		if d < 0 {
			d = -d
		}
		r := radius - d/2
		if r < 1 {
			r = 1
		}
		for x := -r; x <= r; x++ {
			for z := -r; z <= r; z++ {
				if math.Sqrt(float64(x*x+z*z)) > float64(r) {
					continue
				}
				pos := center.Add(mgl64.Vec3{float64(x), float64(y), float64(z)}.Mul(Spacing))
				if err := place(e, pos, cat); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Dunes raises a square field of (2*extent+1)^2 sand columns whose
// heights follow 2D Perlin noise, between 1 and maxHeight particles.
func Dunes(e *sand.Engine, center mgl64.Vec3, extent, maxHeight int, cat sand.Category, seed int64) error {
	noise := perlin.NewPerlin(2, 2, 3, seed)
	for x := -extent; x <= extent; x++ {
		for z := -extent; z <= extent; z++ {
			n := noise.Noise2D(float64(x)/float64(extent+1), float64(z)/float64(extent+1))
			h := columnHeight(n, maxHeight)
			for y := 0; y < h; y++ {
				pos := center.Add(mgl64.Vec3{float64(x), float64(y), float64(z)}.Mul(Spacing))
				if err := place(e, pos, cat); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// columnHeight maps noise in roughly [-1, 1] onto [1, maxHeight].
func columnHeight(n float64, maxHeight int) int {
	t := math.Max(0, math.Min(1, (n+1)/2))
	h := 1 + int(math.Round(t*float64(maxHeight-1)))
	if h < 1 {
		return 1
	}
	return h
}
