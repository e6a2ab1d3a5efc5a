package sand

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

// bare returns properties with every optional effect switched off.
func bare(mass, size float64) Properties {
	return Properties{
		Name:         "test",
		Color:        [3]float64{0.5, 0.5, 0.5},
		Mass:         mass,
		GravityScale: 1,
		Size:         size,
	}
}

func weightless(t *testing.T, subSteps int) *Engine {
	t.Helper()
	s := DefaultSettings()
	s.GravityScale = 0
	s.SubSteps = subSteps
	e, err := NewWithWorld(DefaultWorld(), s)
	require.NoError(t, err)
	return e
}

func add(t *testing.T, e *Engine, pos, vel mgl64.Vec3, cat Category, p *Properties) Handle {
	t.Helper()
	h, err := e.AddParticle(pos, vel, cat, p)
	require.NoError(t, err)
	return h
}

func get(t *testing.T, e *Engine, h Handle) Particle {
	t.Helper()
	p, ok := e.Particle(h)
	require.True(t, ok)
	return p
}

func assertVec(t *testing.T, want, got mgl64.Vec3, msg string) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "%s axis %d: want %v got %v", msg, i, want, got)
	}
}

func TestWorldValidate(t *testing.T) {
	assert.NoError(t, DefaultWorld().Validate())

	tests := []struct {
		name   string
		mutate func(*World)
	}{
		{"inverted x", func(w *World) { w.Min[0], w.Max[0] = 5, -5 }},
		{"flat y", func(w *World) { w.Max[1] = w.Min[1] }},
		{"zero cell", func(w *World) { w.CellSize = 0 }},
		{"NaN gravity", func(w *World) { w.Gravity[1] = math.NaN() }},
		{"Inf bound", func(w *World) { w.Max[2] = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWorld()
			tt.mutate(&w)
			assert.ErrorIs(t, w.Validate(), ErrInvalidWorld)
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero sub steps", func(s *Settings) { s.SubSteps = 0 }},
		{"negative sub steps", func(s *Settings) { s.SubSteps = -3 }},
		{"zero time step", func(s *Settings) { s.TimeStep = 0 }},
		{"negative gravity scale", func(s *Settings) { s.GravityScale = -1 }},
		{"negative friction scale", func(s *Settings) { s.FrictionScale = -0.5 }},
		{"damping above one", func(s *Settings) { s.CollisionDamping = 2 }},
		{"NaN time step", func(s *Settings) { s.TimeStep = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

			e := New()
			assert.Error(t, e.SetSettings(s))
			assert.Equal(t, DefaultSettings(), e.Settings())
		})
	}
}

func TestNewWithWorldRejectsBadInput(t *testing.T) {
	w := DefaultWorld()
	w.CellSize = -1
	_, err := NewWithWorld(w, DefaultSettings())
	assert.ErrorIs(t, err, ErrInvalidWorld)

	s := DefaultSettings()
	s.SubSteps = 0
	_, err = NewWithWorld(DefaultWorld(), s)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestAddParticleRejectsBadInput(t *testing.T) {
	e := New()

	_, err := e.AddParticle(mgl64.Vec3{}, mgl64.Vec3{}, Category(17), nil)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = e.AddParticle(mgl64.Vec3{math.NaN(), 0, 0}, mgl64.Vec3{}, Normal, nil)
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = e.AddParticle(mgl64.Vec3{}, mgl64.Vec3{0, math.Inf(-1), 0}, Normal, nil)
	assert.ErrorIs(t, err, ErrNonFinite)

	bad := bare(0, 0.5)
	_, err = e.AddParticle(mgl64.Vec3{}, mgl64.Vec3{}, Normal, &bad)
	assert.ErrorIs(t, err, ErrInvalidProperties)

	bad = bare(1, -0.5)
	_, err = e.AddParticle(mgl64.Vec3{}, mgl64.Vec3{}, Normal, &bad)
	assert.ErrorIs(t, err, ErrInvalidProperties)

	assert.Equal(t, 0, e.Len())
}

func TestAddParticleAssignsHandlesInOrder(t *testing.T) {
	e := New()
	for i := 0; i < 5; i++ {
		h := add(t, e, mgl64.Vec3{float64(i), 5, 0}, mgl64.Vec3{}, Normal, nil)
		assert.Equal(t, Handle(i), h)
	}
	p := get(t, e, 3)
	assert.Equal(t, 3.0, p.Position[0])
	assert.True(t, p.Active)
	assert.Zero(t, p.Age)

	_, ok := e.Particle(5)
	assert.False(t, ok)
	_, ok = e.Particle(-1)
	assert.False(t, ok)
}

func TestSetMaterialRetargetsLiveParticles(t *testing.T) {
	e := New()
	shared := add(t, e, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{}, Normal, nil)
	custom := bare(2, 0.3)
	owned := add(t, e, mgl64.Vec3{3, 5, 0}, mgl64.Vec3{}, Normal, &custom)

	require.NoError(t, e.SetMaterialParam(Normal, "size", 0.8))

	p, err := e.Properties(shared)
	require.NoError(t, err)
	assert.Equal(t, 0.8, p.Size)

	p, err = e.Properties(owned)
	require.NoError(t, err)
	assert.Equal(t, 0.3, p.Size)

	assert.ErrorIs(t, e.SetMaterialParam(Normal, "mass", -1), ErrInvalidProperties)
	assert.ErrorIs(t, e.SetMaterialParam(Normal, "bogus", 1), ErrUnknownParam)
	assert.ErrorIs(t, e.SetMaterialParam(Category(8), "mass", 1), ErrUnknownCategory)

	params, err := e.MaterialParams(Normal)
	require.NoError(t, err)
	assert.Equal(t, 0.8, params["size"])

	e.ResetMaterials()
	m, err := e.Material(Normal)
	require.NoError(t, err)
	assert.Equal(t, DefaultProperties(Normal), m)
}

func TestClearParticles(t *testing.T) {
	e := New()
	custom := bare(1, 0.5)
	add(t, e, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{}, Heavy, &custom)
	require.NoError(t, e.AddParticlesBurst(mgl64.Vec3{0, 20, 0}, 30, 3, Light, mgl64.Vec3{}))
	require.NoError(t, e.SetMaterialParam(Light, "mass", 0.5))
	e.Update(0)

	e.ClearParticles()

	assert.Equal(t, 0, e.Len())
	assert.Len(t, e.materials, int(numCategories))
	assert.Equal(t, Stats{}, e.Stats())
	assert.Equal(t, 0, e.ParticleData().Count())
	_, err := e.Properties(0)
	assert.ErrorIs(t, err, ErrBadHandle)

	// category edits survive a clear
	m, _ := e.Material(Light)
	assert.Equal(t, 0.5, m.Mass)
}

func TestAddParticlesBurst(t *testing.T) {
	e := New()
	e.Seed(42)
	center := mgl64.Vec3{0, 20, 0}
	base := mgl64.Vec3{0, -5, 0}
	require.NoError(t, e.AddParticlesBurst(center, 100, 2, Bouncy, base))
	require.Equal(t, 100, e.Len())

	e.Each(func(h Handle, p Particle, _ Properties) bool {
		for axis := 0; axis < 3; axis++ {
			assert.LessOrEqual(t, math.Abs(p.Position[axis]-center[axis]), 2.0)
			assert.LessOrEqual(t, math.Abs(p.Velocity[axis]-base[axis]), 1.0)
		}
		assert.Equal(t, Bouncy, p.Category)
		return true
	})

	other := New()
	other.Seed(42)
	require.NoError(t, other.AddParticlesBurst(center, 100, 2, Bouncy, base))
	assert.Equal(t, e.ParticleData(), other.ParticleData())

	assert.ErrorIs(t, e.AddParticlesBurst(center, 1, math.NaN(), Normal, base), ErrNonFinite)
	assert.ErrorIs(t, e.AddParticlesBurst(center, 1, 1, Category(99), base), ErrUnknownCategory)
}

func TestSetActiveSkipsParticle(t *testing.T) {
	e := New()
	h := add(t, e, mgl64.Vec3{0, 20, 0}, mgl64.Vec3{}, Normal, nil)
	add(t, e, mgl64.Vec3{5, 20, 0}, mgl64.Vec3{}, Normal, nil)
	require.NoError(t, e.SetActive(h, false))
	assert.ErrorIs(t, e.SetActive(10, false), ErrBadHandle)

	e.Update(0)

	p := get(t, e, h)
	assert.Equal(t, mgl64.Vec3{0, 20, 0}, p.Position)
	assert.Zero(t, p.Age)
	assert.Equal(t, 1, e.ActiveCount())
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, 1, e.Stats().Count)
	assert.Equal(t, 1, e.ParticleData().Count())
}

func TestParticleDataMatchesActiveOrder(t *testing.T) {
	e := New()
	add(t, e, mgl64.Vec3{1, 2, 3}, mgl64.Vec3{}, Normal, nil)
	hidden := add(t, e, mgl64.Vec3{4, 5, 6}, mgl64.Vec3{}, Heavy, nil)
	add(t, e, mgl64.Vec3{7, 8, 9}, mgl64.Vec3{}, Bouncy, nil)
	require.NoError(t, e.SetActive(hidden, false))

	snap := e.ParticleData()
	require.Equal(t, 2, snap.Count())
	assert.Equal(t, []float32{1, 2, 3, 7, 8, 9}, snap.Positions)

	n, b := DefaultProperties(Normal), DefaultProperties(Bouncy)
	assert.Equal(t, []float32{
		float32(n.Color[0]), float32(n.Color[1]), float32(n.Color[2]),
		float32(b.Color[0]), float32(b.Color[1]), float32(b.Color[2]),
	}, snap.Colors)
	assert.Equal(t, []float32{float32(n.Size), float32(b.Size)}, snap.Sizes)
}

func TestStats(t *testing.T) {
	e := New()
	assert.Equal(t, Stats{}, e.Stats())

	add(t, e, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{3, 4, 0}, Normal, nil)
	add(t, e, mgl64.Vec3{5, 6, 0}, mgl64.Vec3{0, 0, 1}, Normal, nil)

	st := e.Stats()
	assert.Equal(t, 2, st.Count)
	assert.InDelta(t, 3.0, st.MeanSpeed, tol)
	assert.InDelta(t, 4.0, st.MeanHeight, tol)
	assert.InDelta(t, 5.0, e.MaxSpeed(), tol)
	assert.InDelta(t, 0.5*25+0.5*1, e.KineticEnergy(), tol)
	assertVec(t, mgl64.Vec3{3, 4, 1}, e.Momentum(), "momentum")
}

func TestParams(t *testing.T) {
	e := New()
	params := e.GetParams()
	assert.Equal(t, 1.0, params["gravity_scale"])
	assert.Equal(t, 1.0, params["collisions"])
	assert.Equal(t, 2.0, params["sub_steps"])

	require.NoError(t, e.SetParam("sub_steps", 3.6))
	assert.Equal(t, 4, e.Settings().SubSteps)
	require.NoError(t, e.SetParam("collisions", 0))
	assert.False(t, e.Settings().Collisions)
	require.NoError(t, e.SetParam("friction", 0.25))
	assert.Equal(t, 0.25, e.Settings().FrictionScale)

	assert.ErrorIs(t, e.SetParam("sub_steps", 0), ErrInvalidSettings)
	assert.ErrorIs(t, e.SetParam("sub_steps", math.NaN()), ErrInvalidSettings)
	assert.ErrorIs(t, e.SetParam("time_step", -1), ErrInvalidSettings)
	assert.ErrorIs(t, e.SetParam("wind", 1), ErrUnknownParam)
	assert.Equal(t, 4, e.Settings().SubSteps)
}

func TestSetNamedParam(t *testing.T) {
	e := New()
	require.NoError(t, e.SetNamedParam("gravity_scale", 0.5))
	assert.Equal(t, 0.5, e.Settings().GravityScale)

	require.NoError(t, e.SetNamedParam("heavy.mass", 4))
	heavy, err := e.Material(Heavy)
	require.NoError(t, err)
	assert.Equal(t, 4.0, heavy.Mass)

	assert.ErrorIs(t, e.SetNamedParam("lava.mass", 1), ErrUnknownCategory)
	assert.ErrorIs(t, e.SetNamedParam("heavy.charge", 1), ErrUnknownParam)
	assert.ErrorIs(t, e.SetNamedParam("heavy.mass", -1), ErrInvalidProperties)
}

func TestCheckFinite(t *testing.T) {
	e := New()
	h := add(t, e, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{}, Normal, nil)
	assert.NoError(t, e.CheckFinite())

	e.particles[h].Velocity[1] = math.Inf(1)
	assert.ErrorIs(t, e.CheckFinite(), ErrNonFinite)
}
