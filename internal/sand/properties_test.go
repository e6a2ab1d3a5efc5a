package sand_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sandsim/internal/sand"
)

func plain(mass, size float64) *sand.Properties {
	return &sand.Properties{
		Name:         "plain",
		Color:        [3]float64{1, 1, 1},
		Mass:         mass,
		GravityScale: 1,
		Size:         size,
	}
}

func weightless() *sand.Engine {
	s := sand.DefaultSettings()
	s.GravityScale = 0
	e, err := sand.NewWithWorld(sand.DefaultWorld(), s)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func particle(e *sand.Engine, h sand.Handle) sand.Particle {
	p, ok := e.Particle(h)
	Expect(ok).To(BeTrue())
	return p
}

var _ = Describe("Engine", func() {
	Describe("free fall", func() {
		It("reaches the floor after sqrt(2(h-r)/g)", func() {
			e := sand.New()
			h, err := e.AddParticle(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, sand.Normal, plain(1, 0.5))
			Expect(err).NotTo(HaveOccurred())

			frame := e.Settings().TimeStep
			landed := -1.0
			for i := 1; i <= 600; i++ {
				e.Update(frame)
				if particle(e, h).Position[1] <= 0.5+1e-9 {
					landed = float64(i) * frame
					break
				}
			}

			want := math.Sqrt(2 * (10 - 0.5) / 9.81)
			Expect(landed).To(BeNumerically("~", want, 2*frame))
		})

		It("comes to rest on the floor with zero restitution", func() {
			e := sand.New()
			h, err := e.AddParticle(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{}, sand.Normal, plain(1, 0.5))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 180; i++ {
				e.Update(0)
			}
			p := particle(e, h)
			Expect(p.Position[1]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(p.Velocity.Len()).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("pair collisions", func() {
		var e *sand.Engine

		BeforeEach(func() {
			e = weightless()
		})

		It("exchanges velocities in a head-on elastic collision of equal masses", func() {
			props := plain(1, 0.5)
			props.Restitution = 1
			a, _ := e.AddParticle(mgl64.Vec3{-0.45, 10, 0}, mgl64.Vec3{1, 0, 0}, sand.Normal, props)
			b, _ := e.AddParticle(mgl64.Vec3{0.45, 10, 0}, mgl64.Vec3{-1, 0, 0}, sand.Normal, props)
			before := e.Momentum()

			e.Update(1.0 / 600)

			Expect(particle(e, a).Velocity[0]).To(BeNumerically("~", -1, 1e-9))
			Expect(particle(e, b).Velocity[0]).To(BeNumerically("~", 1, 1e-9))
			Expect(e.Momentum().Sub(before).Len()).To(BeNumerically("<", 1e-9))
		})

		It("never raises kinetic energy when restitution is zero", func() {
			a, _ := e.AddParticle(mgl64.Vec3{-0.45, 10, 0}, mgl64.Vec3{2, 0, 0}, sand.Normal, plain(1, 0.5))
			b, _ := e.AddParticle(mgl64.Vec3{0.45, 10, 0}, mgl64.Vec3{-1, 0, 0}, sand.Normal, plain(3, 0.5))
			before := e.KineticEnergy()

			e.Update(1.0 / 600)

			Expect(e.KineticEnergy()).To(BeNumerically("<=", before))
			// perfectly inelastic: both end with the common normal velocity
			Expect(particle(e, a).Velocity[0]).To(BeNumerically("~", -0.25, 1e-9))
			Expect(particle(e, b).Velocity[0]).To(BeNumerically("~", -0.25, 1e-9))
		})
	})

	Describe("boundary containment", func() {
		It("keeps every particle inside the box inset by its radius", func() {
			e := sand.New()
			e.Seed(7)
			for i, cat := range sand.Categories() {
				center := mgl64.Vec3{float64(i*6 - 15), 40, 0}
				Expect(e.AddParticlesBurst(center, 60, 6, cat, mgl64.Vec3{8, -30, -8})).To(Succeed())
			}

			w := e.World()
			for frame := 0; frame < 240; frame++ {
				e.Update(0)
				e.Each(func(h sand.Handle, p sand.Particle, props sand.Properties) bool {
					for axis := 0; axis < 3; axis++ {
						Expect(p.Position[axis]).To(BeNumerically(">=", w.Min[axis]+props.Size-1e-9))
						Expect(p.Position[axis]).To(BeNumerically("<=", w.Max[axis]-props.Size+1e-9))
					}
					return true
				})
			}
			Expect(e.CheckFinite()).To(Succeed())
		})
	})

	Describe("cohesion", func() {
		var e *sand.Engine

		BeforeEach(func() {
			e = weightless()
			Expect(e.SetParam("collisions", 0)).To(Succeed())
			Expect(e.SetParam("sub_steps", 1)).To(Succeed())
		})

		It("pulls two same-category particles together", func() {
			a, _ := e.AddParticle(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, sand.Viscous, nil)
			b, _ := e.AddParticle(mgl64.Vec3{1.5, 10, 0}, mgl64.Vec3{}, sand.Viscous, nil)

			e.Update(0)

			pa, pb := particle(e, a), particle(e, b)
			Expect(pa.Velocity[0]).To(BeNumerically(">", 0))
			Expect(pb.Velocity[0]).To(BeNumerically("<", 0))
			Expect(pb.Position.Sub(pa.Position).Len()).To(BeNumerically("<", 1.5))
		})

		It("ignores particles of another category", func() {
			a, _ := e.AddParticle(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, sand.Viscous, nil)
			b, _ := e.AddParticle(mgl64.Vec3{1.5, 10, 0}, mgl64.Vec3{}, sand.Heavy, nil)

			e.Update(0)

			Expect(particle(e, a).Velocity).To(Equal(mgl64.Vec3{}))
			Expect(particle(e, b).Velocity).To(Equal(mgl64.Vec3{}))
		})
	})

	Describe("clear", func() {
		It("is idempotent and leaves empty stats", func() {
			e := sand.New()
			Expect(e.AddParticlesBurst(mgl64.Vec3{0, 20, 0}, 50, 4, sand.Light, mgl64.Vec3{})).To(Succeed())
			e.Update(0)

			e.ClearParticles()
			e.ClearParticles()

			Expect(e.Len()).To(BeZero())
			Expect(e.Stats()).To(Equal(sand.Stats{}))
			Expect(e.ParticleData().Count()).To(BeZero())
		})
	})
})
