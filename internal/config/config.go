package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
)

const (
	DefaultPreset   = "pyramid"
	DefaultDt       = 1.0 / 60.0
	DefaultDuration = 10.0
	DefaultSeed     = 1
	DefaultLogLevel = "info"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Engine    sand.Settings               `yaml:"engine"`
	World     sand.World                  `yaml:"world"`
	Materials map[string]MaterialOverride `yaml:"materials,omitempty"`
	Emitter   EmitterConfig               `yaml:"emitter"`
	Run       RunConfig                   `yaml:"run"`
	LogLevel  string                      `yaml:"log_level"`
}

// MaterialOverride replaces only the fields that are set.
type MaterialOverride struct {
	Color        *[3]float64 `yaml:"color,omitempty"`
	Mass         *float64    `yaml:"mass,omitempty"`
	Friction     *float64    `yaml:"friction,omitempty"`
	Restitution  *float64    `yaml:"restitution,omitempty"`
	Cohesion     *float64    `yaml:"cohesion,omitempty"`
	Viscosity    *float64    `yaml:"viscosity,omitempty"`
	GravityScale *float64    `yaml:"gravity_scale,omitempty"`
	Size         *float64    `yaml:"size,omitempty"`
}

type EmitterConfig struct {
	Enabled  bool       `yaml:"enabled"`
	Category string     `yaml:"category"`
	Rate     int        `yaml:"rate"`
	Spread   float64    `yaml:"spread"`
	Position mgl64.Vec3 `yaml:"position"`
	Velocity mgl64.Vec3 `yaml:"velocity"`
}

type RunConfig struct {
	Preset        string  `yaml:"preset"`
	Dt            float64 `yaml:"dt"`
	Duration      float64 `yaml:"duration"`
	Seed          int64   `yaml:"seed"`
	ValidateState bool    `yaml:"validate_state"`
}

func DefaultConfig() *Config {
	em := scene.DefaultEmitter()
	return &Config{
		Engine: sand.DefaultSettings(),
		World:  sand.DefaultWorld(),
		Emitter: EmitterConfig{
			Enabled:  em.Enabled,
			Category: em.Category.String(),
			Rate:     em.Rate,
			Spread:   em.Spread,
			Position: em.Position,
			Velocity: em.Velocity,
		},
		Run: RunConfig{
			Preset:        DefaultPreset,
			Dt:            DefaultDt,
			Duration:      DefaultDuration,
			Seed:          DefaultSeed,
			ValidateState: true,
		},
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base. Keys missing from the file keep
// their value in base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (o MaterialOverride) Apply(p sand.Properties) sand.Properties {
	if o.Color != nil {
		p.Color = *o.Color
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Mass, o.Mass)
	set(&p.Friction, o.Friction)
	set(&p.Restitution, o.Restitution)
	set(&p.Cohesion, o.Cohesion)
	set(&p.Viscosity, o.Viscosity)
	set(&p.GravityScale, o.GravityScale)
	set(&p.Size, o.Size)
	return p
}

// Validate checks everything NewEngine and the runner will rely on.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: engine: %w", ErrInvalidConfig, err)
	}
	if err := c.World.Validate(); err != nil {
		return fmt.Errorf("%w: world: %w", ErrInvalidConfig, err)
	}
	if _, err := c.materials(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.NewEmitter(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Run.Preset != "" {
		if _, ok := scene.Presets[c.Run.Preset]; !ok {
			return fmt.Errorf("%w: run: %w: %q", ErrInvalidConfig, scene.ErrUnknownPreset, c.Run.Preset)
		}
	}
	if !(c.Run.Dt > 0) {
		return fmt.Errorf("%w: run: dt must be positive, got %g", ErrInvalidConfig, c.Run.Dt)
	}
	if !(c.Run.Duration > 0) {
		return fmt.Errorf("%w: run: duration must be positive, got %g", ErrInvalidConfig, c.Run.Duration)
	}
	return nil
}

type materialEntry struct {
	cat   sand.Category
	props sand.Properties
}

// materials merges the overrides over the catalog in category order.
func (c *Config) materials() ([]materialEntry, error) {
	names := make([]string, 0, len(c.Materials))
	for name := range c.Materials {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]materialEntry, 0, len(names))
	for _, name := range names {
		cat, err := sand.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("materials: %w", err)
		}
		p := c.Materials[name].Apply(sand.DefaultProperties(cat))
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("materials: %s: %w", name, err)
		}
		out = append(out, materialEntry{cat, p})
	}
	return out, nil
}

func (c *Config) NewEmitter() (scene.Emitter, error) {
	cat, err := sand.ParseCategory(c.Emitter.Category)
	if err != nil {
		return scene.Emitter{}, fmt.Errorf("emitter: %w", err)
	}
	if c.Emitter.Rate < 0 {
		return scene.Emitter{}, fmt.Errorf("emitter: rate must be non-negative, got %d", c.Emitter.Rate)
	}
	if !(c.Emitter.Spread >= 0) {
		return scene.Emitter{}, fmt.Errorf("emitter: spread must be non-negative, got %g", c.Emitter.Spread)
	}
	return scene.Emitter{
		Enabled:  c.Emitter.Enabled,
		Category: cat,
		Rate:     c.Emitter.Rate,
		Spread:   c.Emitter.Spread,
		Position: c.Emitter.Position,
		Velocity: c.Emitter.Velocity,
	}, nil
}

// NewEngine builds an empty engine with the world, settings, material
// overrides and seed applied.
func (c *Config) NewEngine() (*sand.Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	e, err := sand.NewWithWorld(c.World, c.Engine)
	if err != nil {
		return nil, err
	}
	mats, err := c.materials()
	if err != nil {
		return nil, err
	}
	for _, m := range mats {
		if err := e.SetMaterial(m.cat, m.props); err != nil {
			return nil, err
		}
	}
	e.Seed(c.Run.Seed)
	return e, nil
}
