package sand

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/sandsim/internal/spatial"
)

// Handle addresses a particle by insertion order. Handles stay valid until
// ClearParticles.
type Handle int

// Particle is the per-instance mutable state. Physical parameters live in
// the engine's material table and are looked up through props.
type Particle struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Category Category
	Age      float64
	Active   bool

	props int
}

// World is the fixed geometry of the simulation.
type World struct {
	Gravity  mgl64.Vec3 `yaml:"gravity"`
	Min      mgl64.Vec3 `yaml:"min"`
	Max      mgl64.Vec3 `yaml:"max"`
	CellSize float64    `yaml:"cell_size"`
}

func DefaultWorld() World {
	return World{
		Gravity:  mgl64.Vec3{0, -9.81, 0},
		Min:      mgl64.Vec3{-25, 0, -25},
		Max:      mgl64.Vec3{25, 50, 25},
		CellSize: spatial.DefaultCellSize,
	}
}

func (w World) Validate() error {
	if !finite(w.Gravity) {
		return fmt.Errorf("%w: gravity must be finite, got %v", ErrInvalidWorld, w.Gravity)
	}
	if !finite(w.Min) || !finite(w.Max) {
		return fmt.Errorf("%w: bounds must be finite", ErrInvalidWorld)
	}
	for axis := 0; axis < 3; axis++ {
		if w.Min[axis] >= w.Max[axis] {
			return fmt.Errorf("%w: min[%d]=%g must be below max[%d]=%g",
				ErrInvalidWorld, axis, w.Min[axis], axis, w.Max[axis])
		}
	}
	if !(w.CellSize > 0) || math.IsInf(w.CellSize, 0) {
		return fmt.Errorf("%w: cell size must be positive, got %g", ErrInvalidWorld, w.CellSize)
	}
	return nil
}

// Settings are the global tunables. They may change between any two
// Update calls.
type Settings struct {
	GravityScale  float64 `yaml:"gravity_scale"`
	FrictionScale float64 `yaml:"friction_scale"`
	Collisions    bool    `yaml:"collisions"`
	Cohesion      bool    `yaml:"cohesion"`
	TimeStep      float64 `yaml:"time_step"`
	SubSteps      int     `yaml:"sub_steps"`
	// CollisionDamping is carried for hosts that display it; the contact
	// response does not read it.
	CollisionDamping float64 `yaml:"collision_damping"`
}

func DefaultSettings() Settings {
	return Settings{
		GravityScale:     1.0,
		FrictionScale:    1.0,
		Collisions:       true,
		Cohesion:         true,
		TimeStep:         1.0 / 60.0,
		SubSteps:         2,
		CollisionDamping: 0.8,
	}
}

func (s Settings) Validate() error {
	switch {
	case !(s.GravityScale >= 0) || math.IsInf(s.GravityScale, 0):
		return fmt.Errorf("%w: gravity scale must be non-negative, got %g", ErrInvalidSettings, s.GravityScale)
	case !(s.FrictionScale >= 0) || math.IsInf(s.FrictionScale, 0):
		return fmt.Errorf("%w: friction scale must be non-negative, got %g", ErrInvalidSettings, s.FrictionScale)
	case !(s.TimeStep > 0) || math.IsInf(s.TimeStep, 0):
		return fmt.Errorf("%w: time step must be positive, got %g", ErrInvalidSettings, s.TimeStep)
	case s.SubSteps < 1:
		return fmt.Errorf("%w: sub steps must be at least 1, got %d", ErrInvalidSettings, s.SubSteps)
	case !(s.CollisionDamping >= 0 && s.CollisionDamping <= 1):
		return fmt.Errorf("%w: collision damping must be in [0, 1], got %g", ErrInvalidSettings, s.CollisionDamping)
	}
	return nil
}

// Engine owns the particles, the material table and the broad-phase grid.
type Engine struct {
	particles []Particle
	// materials[:numCategories] are the category entries, anything after
	// is a custom set owned by exactly one particle.
	materials []Properties
	world     World
	settings  Settings
	grid      *spatial.Grid
	rng       *rand.Rand
	scratch   []int
}

// New returns an engine with the default world and settings.
func New() *Engine {
	e, err := NewWithWorld(DefaultWorld(), DefaultSettings())
	if err != nil {
		panic(err)
	}
	return e
}

func NewWithWorld(w World, s Settings) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		world:    w,
		settings: s,
		grid:     spatial.NewGrid(w.CellSize),
		rng:      rand.New(rand.NewSource(1)),
		scratch:  make([]int, 0, 64),
	}
	e.materials = make([]Properties, numCategories)
	copy(e.materials, defaultProperties[:])
	return e, nil
}

func (e *Engine) World() World       { return e.world }
func (e *Engine) Settings() Settings { return e.settings }

func (e *Engine) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.settings = s
	return nil
}

// Seed reseeds the source used by AddParticlesBurst.
func (e *Engine) Seed(seed int64) { e.rng = rand.New(rand.NewSource(seed)) }

// Material returns the current parameters of a category.
func (e *Engine) Material(cat Category) (Properties, error) {
	if !cat.Valid() {
		return Properties{}, fmt.Errorf("%w: %d", ErrUnknownCategory, int(cat))
	}
	return e.materials[cat], nil
}

// SetMaterial replaces a category's parameters. Every particle created
// without custom properties picks the change up on the next step.
func (e *Engine) SetMaterial(cat Category, p Properties) error {
	if !cat.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(cat))
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s: %w", cat, err)
	}
	e.materials[cat] = p
	return nil
}

func (e *Engine) ResetMaterials() {
	copy(e.materials[:numCategories], defaultProperties[:])
}

// AddParticle appends a particle. With custom == nil the particle follows
// its category's shared entry; otherwise it gets a private copy of custom.
func (e *Engine) AddParticle(pos, vel mgl64.Vec3, cat Category, custom *Properties) (Handle, error) {
	if !cat.Valid() {
		return -1, fmt.Errorf("%w: %d", ErrUnknownCategory, int(cat))
	}
	if !finite(pos) || !finite(vel) {
		return -1, fmt.Errorf("%w: position %v velocity %v", ErrNonFinite, pos, vel)
	}
	props := int(cat)
	if custom != nil {
		if err := custom.Validate(); err != nil {
			return -1, err
		}
		e.materials = append(e.materials, *custom)
		props = len(e.materials) - 1
	}
	e.particles = append(e.particles, Particle{
		Position: pos,
		Velocity: vel,
		Category: cat,
		Active:   true,
		props:    props,
	})
	return Handle(len(e.particles) - 1), nil
}

// AddParticlesBurst scatters count particles uniformly in a cube of half
// width spread around center, each with vel plus a uniform jitter in
// [-1, 1) per axis.
func (e *Engine) AddParticlesBurst(center mgl64.Vec3, count int, spread float64, cat Category, vel mgl64.Vec3) error {
	if !cat.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(cat))
	}
	if !finite(center) || !finite(vel) || math.IsNaN(spread) || math.IsInf(spread, 0) {
		return fmt.Errorf("%w: burst center %v spread %g velocity %v", ErrNonFinite, center, spread, vel)
	}
	for i := 0; i < count; i++ {
		offset := mgl64.Vec3{
			(e.rng.Float64() - 0.5) * 2 * spread,
			(e.rng.Float64() - 0.5) * 2 * spread,
			(e.rng.Float64() - 0.5) * 2 * spread,
		}
		jitter := mgl64.Vec3{
			(e.rng.Float64() - 0.5) * 2,
			(e.rng.Float64() - 0.5) * 2,
			(e.rng.Float64() - 0.5) * 2,
		}
		if _, err := e.AddParticle(center.Add(offset), vel.Add(jitter), cat, nil); err != nil {
			return err
		}
	}
	return nil
}

// ClearParticles drops every particle and custom material. Category
// entries, including live edits, are kept.
func (e *Engine) ClearParticles() {
	e.particles = nil
	e.materials = e.materials[:numCategories:numCategories]
	e.grid = spatial.NewGrid(e.world.CellSize)
}

func (e *Engine) Len() int { return len(e.particles) }

func (e *Engine) ActiveCount() int {
	n := 0
	for i := range e.particles {
		if e.particles[i].Active {
			n++
		}
	}
	return n
}

// Particle returns a copy of the particle behind h.
func (e *Engine) Particle(h Handle) (Particle, bool) {
	if h < 0 || int(h) >= len(e.particles) {
		return Particle{}, false
	}
	return e.particles[h], true
}

// Properties returns the parameters currently driving the particle behind h.
func (e *Engine) Properties(h Handle) (Properties, error) {
	if h < 0 || int(h) >= len(e.particles) {
		return Properties{}, fmt.Errorf("%w: %d", ErrBadHandle, h)
	}
	return e.materials[e.particles[h].props], nil
}

// SetActive soft-deletes or revives a particle. Inactive particles keep
// their slot and handle but are skipped by physics and snapshots.
func (e *Engine) SetActive(h Handle, active bool) error {
	if h < 0 || int(h) >= len(e.particles) {
		return fmt.Errorf("%w: %d", ErrBadHandle, h)
	}
	e.particles[h].Active = active
	return nil
}

// Each calls fn for every active particle in insertion order until fn
// returns false.
func (e *Engine) Each(fn func(h Handle, p Particle, props Properties) bool) {
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		if !fn(Handle(i), *p, e.materials[p.props]) {
			return
		}
	}
}

// CheckFinite reports the first particle whose position or velocity is
// NaN or Inf.
func (e *Engine) CheckFinite() error {
	for i := range e.particles {
		p := &e.particles[i]
		if !finite(p.Position) || !finite(p.Velocity) {
			return fmt.Errorf("%w: particle %d position %v velocity %v", ErrNonFinite, i, p.Position, p.Velocity)
		}
	}
	return nil
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
