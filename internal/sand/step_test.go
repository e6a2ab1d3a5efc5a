package sand

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateDefaultsToConfiguredTimeStep(t *testing.T) {
	e := New()
	h := add(t, e, mgl64.Vec3{0, 20, 0}, mgl64.Vec3{}, Normal, nil)

	e.Update(0)
	assert.InDelta(t, DefaultSettings().TimeStep, get(t, e, h).Age, tol)

	e.Update(-1)
	assert.InDelta(t, 2*DefaultSettings().TimeStep, get(t, e, h).Age, tol)

	e.Update(0.5)
	assert.InDelta(t, 2*DefaultSettings().TimeStep+0.5, get(t, e, h).Age, tol)
}

// Symplectic Euler over n sub-steps of dt/n drops a particle at rest by
// g*dt^2*(n+1)/(2n) while the velocity always ends at g*dt.
func TestSubStepsSplitFrame(t *testing.T) {
	const dt = 0.1
	g := DefaultWorld().Gravity[1]

	for _, n := range []int{1, 2, 4} {
		s := DefaultSettings()
		s.SubSteps = n
		e, err := NewWithWorld(DefaultWorld(), s)
		require.NoError(t, err)
		p := bare(1, 0.5)
		h := add(t, e, mgl64.Vec3{0, 30, 0}, mgl64.Vec3{}, Normal, &p)

		e.Update(dt)

		got := get(t, e, h)
		assert.InDelta(t, g*dt, got.Velocity[1], tol, "sub steps %d", n)
		want := 30 + g*dt*dt*float64(n+1)/(2*float64(n))
		assert.InDelta(t, want, got.Position[1], tol, "sub steps %d", n)
	}
}

func TestGravityComposesGlobalAndCategoryScale(t *testing.T) {
	s := DefaultSettings()
	s.GravityScale = 0.5
	s.SubSteps = 1
	e, err := NewWithWorld(DefaultWorld(), s)
	require.NoError(t, err)

	p := bare(1, 0.5)
	p.GravityScale = 3
	h := add(t, e, mgl64.Vec3{0, 30, 0}, mgl64.Vec3{}, Normal, &p)

	e.Update(0.01)
	assert.InDelta(t, -9.81*0.5*3*0.01, get(t, e, h).Velocity[1], tol)
}

func TestViscousDamping(t *testing.T) {
	assert.InDelta(t, 0.95, viscousDamping(0.5, 0.1), tol)
	assert.Equal(t, 0.0, viscousDamping(0.7, 10))
	assert.Equal(t, 1.0, viscousDamping(0, 1))

	e := weightless(t, 1)
	p := bare(1, 0.5)
	p.Viscosity = 1
	h := add(t, e, mgl64.Vec3{0, 20, 0}, mgl64.Vec3{4, 0, 0}, Normal, &p)

	e.Update(0.25)
	assert.InDelta(t, 3.0, get(t, e, h).Velocity[0], tol)

	// a step longer than 1/viscosity stops the particle, it never reverses
	e.Update(5)
	assert.Equal(t, 0.0, get(t, e, h).Velocity[0])
}

func TestBounceReflectsAndSlides(t *testing.T) {
	e := weightless(t, 1)
	p := bare(1, 0.5)
	p.Restitution = 0.5
	p.Friction = 0.4
	h := add(t, e, mgl64.Vec3{0, 0.55, 0}, mgl64.Vec3{2, -6, 0}, Normal, &p)

	e.Update(0.1)

	got := get(t, e, h)
	assertVec(t, mgl64.Vec3{0.2, 0.5, 0}, got.Position, "position")
	assertVec(t, mgl64.Vec3{1.2, 3, 0}, got.Velocity, "velocity")
}

func TestBounceUpperWallUsesGlobalFriction(t *testing.T) {
	e := weightless(t, 1)
	require.NoError(t, e.SetParam("friction", 0.5))
	p := bare(1, 0.5)
	p.Restitution = 1
	p.Friction = 0.4
	h := add(t, e, mgl64.Vec3{24.4, 10, 0}, mgl64.Vec3{2, 1, -1}, Normal, &p)

	e.Update(0.1)

	got := get(t, e, h)
	assert.InDelta(t, 24.5, got.Position[0], tol)
	assertVec(t, mgl64.Vec3{-2, 0.8, -0.8}, got.Velocity, "velocity")
}

// The contact pair is visited from both sides in one pass, so a resting
// overlap is corrected twice: 0.9 -> 0.95 -> 0.975 for equal masses.
func TestResolvesEachPairFromBothSides(t *testing.T) {
	e := weightless(t, 1)
	p := bare(1, 0.5)
	a := add(t, e, mgl64.Vec3{-0.45, 10, 0}, mgl64.Vec3{}, Normal, &p)
	b := add(t, e, mgl64.Vec3{0.45, 10, 0}, mgl64.Vec3{}, Normal, &p)

	e.Update(0.01)

	pa, pb := get(t, e, a), get(t, e, b)
	assert.InDelta(t, 0.975, pb.Position[0]-pa.Position[0], tol)
	assertVec(t, mgl64.Vec3{}, pa.Velocity, "a velocity")
	assertVec(t, mgl64.Vec3{}, pb.Velocity, "b velocity")
}

func TestHeavierParticleMovesLess(t *testing.T) {
	e := weightless(t, 1)
	light, heavy := bare(1, 0.5), bare(3, 0.5)
	a := add(t, e, mgl64.Vec3{-0.45, 10, 0}, mgl64.Vec3{}, Normal, &light)
	b := add(t, e, mgl64.Vec3{0.45, 10, 0}, mgl64.Vec3{}, Normal, &heavy)

	e.Update(0.01)

	da := math.Abs(get(t, e, a).Position[0] + 0.45)
	db := math.Abs(get(t, e, b).Position[0] - 0.45)
	assert.Greater(t, da, db)
	assert.InDelta(t, 3.0, da/db, 0.2)
}

func TestFrictionActsAlongTangent(t *testing.T) {
	e := weightless(t, 1)
	p := bare(1, 0.5)
	p.Friction = 0.5
	a := add(t, e, mgl64.Vec3{-0.45, 10, 0}, mgl64.Vec3{1, 1, 0}, Normal, &p)
	b := add(t, e, mgl64.Vec3{0.45, 10, 0}, mgl64.Vec3{-1, 0, 0}, Normal, &p)

	e.Update(0.001)

	// normal impulse j = 1 stops the x motion, friction moves 0.5*j*mu of
	// the tangential relative velocity across, half to each side
	assertVec(t, mgl64.Vec3{0, 0.75, 0}, get(t, e, a).Velocity, "a velocity")
	assertVec(t, mgl64.Vec3{0, 0.25, 0}, get(t, e, b).Velocity, "b velocity")
}

func TestCollisionsCanBeDisabled(t *testing.T) {
	e := weightless(t, 1)
	require.NoError(t, e.SetParam("collisions", 0))
	p := bare(1, 0.5)
	a := add(t, e, mgl64.Vec3{-0.45, 10, 0}, mgl64.Vec3{}, Normal, &p)
	b := add(t, e, mgl64.Vec3{0.45, 10, 0}, mgl64.Vec3{}, Normal, &p)

	e.Update(0.01)

	assert.Equal(t, -0.45, get(t, e, a).Position[0])
	assert.Equal(t, 0.45, get(t, e, b).Position[0])
}

func TestCoincidentParticlesAreSkipped(t *testing.T) {
	e := weightless(t, 1)
	p := bare(1, 0.5)
	add(t, e, mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, Normal, &p)
	add(t, e, mgl64.Vec3{0.001, 10, 0}, mgl64.Vec3{}, Normal, &p)

	e.Update(0.01)
	require.NoError(t, e.CheckFinite())
}

func TestCohesionDisabledGlobally(t *testing.T) {
	e := weightless(t, 1)
	require.NoError(t, e.SetParam("cohesion", 0))
	a := add(t, e, mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, Viscous, nil)
	add(t, e, mgl64.Vec3{1.5, 10, 0}, mgl64.Vec3{}, Viscous, nil)

	e.Update(0.01)
	assertVec(t, mgl64.Vec3{}, get(t, e, a).Velocity, "velocity")
}

func TestCohesionFalloff(t *testing.T) {
	e := weightless(t, 1)
	require.NoError(t, e.SetParam("collisions", 0))
	p := bare(1, 0.5)
	p.Cohesion = 2
	a := add(t, e, mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, Normal, &p)
	add(t, e, mgl64.Vec3{1, 10, 0}, mgl64.Vec3{}, Normal, &p)

	const dt = 0.01
	e.Update(dt)

	// radius 2, distance 1: strength = 2 * (1 - 1/2)
	assert.InDelta(t, 1.0*dt, get(t, e, a).Velocity[0], tol)
}

func TestContainmentSweepClampsPushedParticles(t *testing.T) {
	e := weightless(t, 1)
	p := bare(1, 0.5)
	// the first particle rests on the floor, the second sits on top of it
	// and pushes it down during its own collision pass
	floor := add(t, e, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{}, Normal, &p)
	add(t, e, mgl64.Vec3{0, 1.2, 0}, mgl64.Vec3{}, Normal, &p)

	e.Update(0.01)

	assert.GreaterOrEqual(t, get(t, e, floor).Position[1], 0.5-tol)
}
