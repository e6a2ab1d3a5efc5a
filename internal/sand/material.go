package sand

import (
	"fmt"
	"math"
	"strings"
)

// Category identifies one of the built-in sand behaviours.
type Category int

const (
	Normal Category = iota
	Heavy
	Light
	Bouncy
	Viscous
	Explosive

	numCategories
)

var categoryNames = [numCategories]string{
	Normal:    "normal",
	Heavy:     "heavy",
	Light:     "light",
	Bouncy:    "bouncy",
	Viscous:   "viscous",
	Explosive: "explosive",
}

// Categories returns every built-in category in declaration order.
func Categories() []Category {
	cats := make([]Category, numCategories)
	for i := range cats {
		cats[i] = Category(i)
	}
	return cats
}

func (c Category) Valid() bool { return c >= 0 && c < numCategories }

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory accepts the lower-case identifiers returned by String,
// ignoring case and surrounding space.
func ParseCategory(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range categoryNames {
		if s == n {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Properties are the physical parameters shared by a category.
type Properties struct {
	Name         string     `yaml:"name" json:"name"`
	Color        [3]float64 `yaml:"color" json:"color"`
	Mass         float64    `yaml:"mass" json:"mass"`
	Friction     float64    `yaml:"friction" json:"friction"`
	Restitution  float64    `yaml:"restitution" json:"restitution"`
	Cohesion     float64    `yaml:"cohesion" json:"cohesion"`
	Viscosity    float64    `yaml:"viscosity" json:"viscosity"`
	GravityScale float64    `yaml:"gravity_scale" json:"gravity_scale"`
	Size         float64    `yaml:"size" json:"size"`
}

var defaultProperties = [numCategories]Properties{
	Normal: {
		Name: "Normal Sand", Color: [3]float64{0.96, 0.87, 0.70},
		Mass: 1.0, Friction: 0.4, Restitution: 0.1, Cohesion: 0.0,
		Viscosity: 0.0, GravityScale: 1.0, Size: 0.5,
	},
	Heavy: {
		Name: "Heavy Sand", Color: [3]float64{0.4, 0.35, 0.3},
		Mass: 3.0, Friction: 0.6, Restitution: 0.05, Cohesion: 0.1,
		Viscosity: 0.1, GravityScale: 1.5, Size: 0.6,
	},
	Light: {
		Name: "Light Sand", Color: [3]float64{1.0, 0.98, 0.9},
		Mass: 0.3, Friction: 0.2, Restitution: 0.3, Cohesion: 0.0,
		Viscosity: 0.0, GravityScale: 0.5, Size: 0.4,
	},
	Bouncy: {
		Name: "Bouncy Sand", Color: [3]float64{0.2, 0.8, 0.4},
		Mass: 0.8, Friction: 0.2, Restitution: 0.8, Cohesion: 0.0,
		Viscosity: 0.0, GravityScale: 1.0, Size: 0.5,
	},
	Viscous: {
		Name: "Viscous Sand", Color: [3]float64{0.6, 0.3, 0.1},
		Mass: 1.5, Friction: 0.8, Restitution: 0.0, Cohesion: 0.5,
		Viscosity: 0.7, GravityScale: 0.8, Size: 0.55,
	},
	Explosive: {
		Name: "Explosive Sand", Color: [3]float64{1.0, 0.3, 0.1},
		Mass: 1.0, Friction: 0.3, Restitution: 0.5, Cohesion: 0.0,
		Viscosity: 0.0, GravityScale: 1.0, Size: 0.45,
	},
}

// DefaultProperties returns the built-in parameters of cat. Unknown
// categories get the Normal set.
func DefaultProperties(cat Category) Properties {
	if !cat.Valid() {
		return defaultProperties[Normal]
	}
	return defaultProperties[cat]
}

// Validate rejects values that would break the collision math or produce
// non-finite state.
func (p Properties) Validate() error {
	checks := []struct {
		name string
		val  float64
		ok   bool
		want string
	}{
		{"mass", p.Mass, p.Mass > 0, "must be positive"},
		{"size", p.Size, p.Size > 0, "must be positive"},
		{"gravity_scale", p.GravityScale, p.GravityScale > 0, "must be positive"},
		{"friction", p.Friction, p.Friction >= 0, "must be non-negative"},
		{"restitution", p.Restitution, p.Restitution >= 0 && p.Restitution <= 1, "must be in [0, 1]"},
		{"cohesion", p.Cohesion, p.Cohesion >= 0, "must be non-negative"},
		{"viscosity", p.Viscosity, p.Viscosity >= 0 && p.Viscosity <= 1, "must be in [0, 1]"},
	}
	for _, c := range checks {
		if math.IsNaN(c.val) || math.IsInf(c.val, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidProperties, c.name, c.val)
		}
		if !c.ok {
			return fmt.Errorf("%w: %s %s, got %g", ErrInvalidProperties, c.name, c.want, c.val)
		}
	}
	for i, ch := range p.Color {
		if !(ch >= 0 && ch <= 1) {
			return fmt.Errorf("%w: color channel %d must be in [0, 1], got %g", ErrInvalidProperties, i, ch)
		}
	}
	return nil
}

// Params flattens the tunable fields into the name/value form used by the
// live views.
func (p Properties) Params() map[string]float64 {
	return map[string]float64{
		"mass":          p.Mass,
		"friction":      p.Friction,
		"restitution":   p.Restitution,
		"cohesion":      p.Cohesion,
		"viscosity":     p.Viscosity,
		"gravity_scale": p.GravityScale,
		"size":          p.Size,
	}
}

// With returns a copy of p with the named field set. The result is not
// validated.
func (p Properties) With(name string, v float64) (Properties, error) {
	switch name {
	case "mass":
		p.Mass = v
	case "friction":
		p.Friction = v
	case "restitution":
		p.Restitution = v
	case "cohesion":
		p.Cohesion = v
	case "viscosity":
		p.Viscosity = v
	case "gravity_scale":
		p.GravityScale = v
	case "size":
		p.Size = v
	default:
		return p, fmt.Errorf("%w: material %q", ErrUnknownParam, name)
	}
	return p, nil
}
