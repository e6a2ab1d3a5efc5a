package sand

import (
	"fmt"
	"math"
	"strings"
)

// GetParams exposes the global tunables by name. Booleans read as 0 or 1.
func (e *Engine) GetParams() map[string]float64 {
	s := e.settings
	return map[string]float64{
		"gravity_scale": s.GravityScale,
		"friction":      s.FrictionScale,
		"collisions":    boolParam(s.Collisions),
		"cohesion":      boolParam(s.Cohesion),
		"time_step":     s.TimeStep,
		"sub_steps":     float64(s.SubSteps),
	}
}

// SetParam sets one global tunable. Booleans treat any non-zero value as
// true; sub_steps is rounded to the nearest integer.
func (e *Engine) SetParam(name string, v float64) error {
	s := e.settings
	switch name {
	case "gravity_scale":
		s.GravityScale = v
	case "friction":
		s.FrictionScale = v
	case "collisions":
		s.Collisions = v != 0
	case "cohesion":
		s.Cohesion = v != 0
	case "time_step":
		s.TimeStep = v
	case "sub_steps":
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: sub steps must be finite, got %g", ErrInvalidSettings, v)
		}
		s.SubSteps = int(math.Round(v))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return e.SetSettings(s)
}

// MaterialParams exposes a category's tunable fields by name.
func (e *Engine) MaterialParams(cat Category) (map[string]float64, error) {
	p, err := e.Material(cat)
	if err != nil {
		return nil, err
	}
	return p.Params(), nil
}

// SetMaterialParam changes one field of a category's shared entry.
func (e *Engine) SetMaterialParam(cat Category, name string, v float64) error {
	p, err := e.Material(cat)
	if err != nil {
		return err
	}
	p, err = p.With(name, v)
	if err != nil {
		return err
	}
	return e.SetMaterial(cat, p)
}

func boolParam(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// SetNamedParam accepts either a global tunable ("friction") or a
// category field written as category.field ("heavy.mass").
func (e *Engine) SetNamedParam(name string, v float64) error {
	cat, field, ok := strings.Cut(name, ".")
	if !ok {
		return e.SetParam(name, v)
	}
	c, err := ParseCategory(cat)
	if err != nil {
		return err
	}
	return e.SetMaterialParam(c, field, v)
}
